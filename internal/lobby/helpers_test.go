package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/michaelgreenl/game-lobby/internal/store"
)

type emitted struct {
	event   string
	payload any
}

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []emitted
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{event: event, payload: payload})
}

func (c *fakeConn) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (c *fakeConn) last(event string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].event == event {
			return c.events[i].payload, true
		}
	}
	return nil, false
}

func (c *fakeConn) lastSnapshot(t *testing.T, event string) Snapshot {
	t.Helper()
	payload, ok := c.last(event)
	if !ok {
		t.Fatalf("no %s event received", event)
	}
	snap, ok := payload.(Snapshot)
	if !ok {
		t.Fatalf("%s payload is %T, want Snapshot", event, payload)
	}
	return snap
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]store.GameRecord
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]store.GameRecord{}}
}

func (f *fakeStore) CreateGameRecord(_ context.Context, rec store.GameRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	if rec.ID == "" {
		rec.ID = store.NewID()
	}
	f.records[rec.ID] = rec
	return rec.ID, nil
}

func (f *fakeStore) UpdateGameRecord(_ context.Context, rec store.GameRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[rec.ID]; !ok {
		return store.ErrNotFound
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeStore) FindGameRecord(_ context.Context, id string) (*store.GameRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeStore) FindActiveGameRecordFor(_ context.Context, identity string) (*store.GameRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if store.IsTerminalPhase(rec.Phase) {
			continue
		}
		if rec.PlayerX == identity || rec.PlayerO == identity {
			r := rec
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) phase(t *testing.T, id string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		t.Fatalf("record %s not found", id)
	}
	return rec.Phase
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	return NewEngine(fs, NewRegistry(), opts...), fs
}

// startGame wires two connected players into an active game and returns its id.
func startGame(t *testing.T, e *Engine, a, b *fakeConn) string {
	t.Helper()
	ctx := context.Background()
	e.Connect(ctx, "A", a)
	e.Connect(ctx, "B", b)
	if err := e.CreateGame(ctx, "A"); err != nil {
		t.Fatalf("create game: %v", err)
	}
	snap := a.lastSnapshot(t, EventGameCreated)
	if err := e.JoinGame(ctx, "B", snap.ID); err != nil {
		t.Fatalf("join game: %v", err)
	}
	return snap.ID
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
