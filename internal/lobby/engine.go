package lobby

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/michaelgreenl/game-lobby/internal/store"
)

const (
	defaultDisconnectGrace   = 30 * time.Second
	defaultFinishedRetention = 60 * time.Second
)

var (
	ErrAlreadyInGame  = errors.New("already_in_game")
	ErrGameNotFound   = errors.New("game_not_found")
	ErrInvalidPhase   = errors.New("invalid_phase")
	ErrSelfJoin       = errors.New("self_join")
	ErrNotYourTurn    = errors.New("not_your_turn")
	ErrCellOccupied   = errors.New("cell_occupied")
	ErrInvalidCell    = errors.New("invalid_cell")
	ErrNotParticipant = errors.New("not_participant")
	ErrNotCreator     = errors.New("not_creator")
)

// GameStore is the slice of the durable store the engine writes through to.
type GameStore interface {
	CreateGameRecord(ctx context.Context, rec store.GameRecord) (string, error)
	UpdateGameRecord(ctx context.Context, rec store.GameRecord) error
	FindGameRecord(ctx context.Context, id string) (*store.GameRecord, error)
	FindActiveGameRecordFor(ctx context.Context, identity string) (*store.GameRecord, error)
}

// Engine owns the session table and drives every lifecycle transition. The
// engine mutex guards only table membership; each game carries its own lock so
// events on different games never serialize against each other.
type Engine struct {
	store    GameStore
	registry *Registry

	grace     time.Duration
	retention time.Duration

	mu    sync.Mutex
	games map[string]*Game
}

type Option func(*Engine)

func WithDisconnectGrace(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.grace = d
		}
	}
}

func WithFinishedRetention(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.retention = d
		}
	}
}

func NewEngine(st GameStore, reg *Registry, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		registry:  reg,
		grace:     defaultDisconnectGrace,
		retention: defaultFinishedRetention,
		games:     map[string]*Game{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lookup returns the live game for id, or nil.
func (e *Engine) lookup(id string) *Game {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.games[id]
}

// inTable reports whether g is still the table entry for its id. Grace and
// eviction timers hold direct pointers and must not act on evicted games.
func (e *Engine) inTable(g *Game) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.games[g.ID] == g
}

func (e *Engine) evict(g *Game) {
	e.mu.Lock()
	if e.games[g.ID] == g {
		delete(e.games, g.ID)
	}
	e.mu.Unlock()
}

// findGamesWith returns every table entry where pred holds for the game and
// the identity's seat.
func (e *Engine) findGamesWith(identity string, pred func(g *Game, p *Participant) bool) []*Game {
	e.mu.Lock()
	candidates := make([]*Game, 0, len(e.games))
	for _, g := range e.games {
		candidates = append(candidates, g)
	}
	e.mu.Unlock()
	var matched []*Game
	for _, g := range candidates {
		g.mu.Lock()
		p := g.participant(identity)
		ok := p != nil && pred(g, p)
		g.mu.Unlock()
		if ok {
			matched = append(matched, g)
		}
	}
	return matched
}

// findGameWith returns one table entry where pred holds, or nil.
func (e *Engine) findGameWith(identity string, pred func(g *Game, p *Participant) bool) *Game {
	if gs := e.findGamesWith(identity, pred); len(gs) > 0 {
		return gs[0]
	}
	return nil
}

// OpenGames lists every game still waiting for a second player, in stable
// order. The list is a best-effort snapshot; join re-validates regardless.
func (e *Engine) OpenGames() []OpenGame {
	e.mu.Lock()
	candidates := make([]*Game, 0, len(e.games))
	for _, g := range e.games {
		candidates = append(candidates, g)
	}
	e.mu.Unlock()

	open := []OpenGame{}
	for _, g := range candidates {
		g.mu.Lock()
		if g.Phase == PhaseWaiting {
			snap := g.snapshotLocked()
			open = append(open, OpenGame{ID: snap.ID, Players: snap.Players})
		}
		g.mu.Unlock()
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	return open
}

// broadcastLobby republishes the open-game list to every connected channel.
// Called after any create, join or cancellation.
func (e *Engine) broadcastLobby() {
	e.registry.Broadcast(EventUpdateGameList, e.OpenGames())
}

// emitToGroup fans an event out to every channel of the given identities.
func (e *Engine) emitToGroup(identities []string, event string, payload any) {
	for _, id := range identities {
		for _, c := range e.registry.Conns(id) {
			c.Send(event, payload)
		}
	}
}

// groupLocked lists both seats' identities. Callers hold g.mu.
func groupLocked(g *Game) []string {
	ids := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		ids = append(ids, p.Identity)
	}
	return ids
}

// scheduleEvictionLocked arms the retention timer for a finished game.
// Callers hold g.mu.
func (e *Engine) scheduleEvictionLocked(g *Game) {
	if g.evictTimer != nil {
		g.evictTimer.Stop()
	}
	g.evictTimer = time.AfterFunc(e.retention, func() {
		e.evict(g)
	})
}

// persist writes the game's durable projection, tolerating failure for
// mid-session transitions: memory stays the source of truth while the game is
// live, so a failed write is logged rather than blocking gameplay.
func (e *Engine) persist(ctx context.Context, rec store.GameRecord) {
	if err := e.store.UpdateGameRecord(ctx, rec); err != nil {
		log.Error().Err(err).Str("game_id", rec.ID).Str("phase", rec.Phase).Msg("game record write failed")
	}
}
