package lobby

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/michaelgreenl/game-lobby/internal/store"
)

// finishGame plays A to a row-zero win and returns the finished game id.
func finishGame(t *testing.T, e *Engine, a, b *fakeConn) string {
	t.Helper()
	id := startGame(t, e, a, b)
	mustMove(t, e, "A", id, 0)
	mustMove(t, e, "B", id, 4)
	mustMove(t, e, "A", id, 1)
	mustMove(t, e, "B", id, 5)
	mustMove(t, e, "A", id, 2)
	return id
}

func TestSingleRematchVoteNotifiesOpponent(t *testing.T) {
	e, _ := newTestEngine(t)
	a := newFakeConn("a1")
	b := newFakeConn("b1")
	id := finishGame(t, e, a, b)

	if err := e.RequestRematch(context.Background(), "A", id); err != nil {
		t.Fatalf("rematch vote: %v", err)
	}
	if b.count(EventOpponentWantsRematch) != 1 {
		t.Fatal("opponent must be notified of the first vote")
	}
	if a.count(EventOpponentWantsRematch) != 0 {
		t.Fatal("the voter must not be notified")
	}
	if a.count(EventGameStarted)+b.count(EventGameStarted) != 2 {
		t.Fatal("a single vote must not start a new game")
	}
}

func TestDuplicateRematchVoteIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	a := newFakeConn("a1")
	b := newFakeConn("b1")
	id := finishGame(t, e, a, b)
	ctx := context.Background()

	if err := e.RequestRematch(ctx, "A", id); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := e.RequestRematch(ctx, "A", id); err != nil {
		t.Fatalf("duplicate vote: %v", err)
	}
	if b.count(EventOpponentWantsRematch) != 1 {
		t.Fatalf("duplicate vote must not re-notify, got %d", b.count(EventOpponentWantsRematch))
	}
}

func TestBothVotesStartExactlyOneNewGame(t *testing.T) {
	e, _ := newTestEngine(t)
	a := newFakeConn("a1")
	b := newFakeConn("b1")
	id := finishGame(t, e, a, b)
	ctx := context.Background()

	if err := e.RequestRematch(ctx, "A", id); err != nil {
		t.Fatalf("vote A: %v", err)
	}
	if err := e.RequestRematch(ctx, "B", id); err != nil {
		t.Fatalf("vote B: %v", err)
	}

	// One gameStarted beyond the original on each side.
	if a.count(EventGameStarted) != 2 || b.count(EventGameStarted) != 2 {
		t.Fatalf("expected exactly one new gameStarted per player, got A=%d B=%d",
			a.count(EventGameStarted), b.count(EventGameStarted))
	}

	snap := a.lastSnapshot(t, EventGameStarted)
	if snap.ID == id {
		t.Fatal("rematch must allocate a fresh game id")
	}
	if snap.Phase != string(PhaseActive) {
		t.Fatalf("rematch starts active, got %s", snap.Phase)
	}
	if snap.Turn != "B" {
		t.Fatalf("previous second player opens the rematch, got turn=%s", snap.Turn)
	}
	for _, p := range snap.Players {
		switch p.ID {
		case "A":
			if p.Symbol != "O" {
				t.Fatalf("A must now play O, got %s", p.Symbol)
			}
		case "B":
			if p.Symbol != "X" {
				t.Fatalf("B must now play X, got %s", p.Symbol)
			}
		}
	}
	for _, cell := range snap.Board {
		if cell != "" {
			t.Fatalf("rematch board must be empty: %+v", snap.Board)
		}
	}

	// The old game is gone from the table.
	if err := e.RequestRematch(ctx, "A", id); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound on the old game, got %v", err)
	}

	// The new game is live.
	mustMove(t, e, "B", snap.ID, 0)
}

func TestRematchWithOfflineVoterArmsForfeitCountdown(t *testing.T) {
	e, fs := newTestEngine(t, WithDisconnectGrace(60*time.Millisecond))
	a := newFakeConn("a1")
	b := newFakeConn("b1")
	id := finishGame(t, e, a, b)
	ctx := context.Background()

	// B votes, then drops their only channel before A answers the vote.
	if err := e.RequestRematch(ctx, "B", id); err != nil {
		t.Fatalf("vote B: %v", err)
	}
	e.Disconnect(ctx, "B", b)
	if err := e.RequestRematch(ctx, "A", id); err != nil {
		t.Fatalf("vote A: %v", err)
	}

	snap := a.lastSnapshot(t, EventGameStarted)
	if snap.ID == id {
		t.Fatal("rematch must allocate a fresh game id")
	}
	for _, p := range snap.Players {
		if p.ID == "B" && p.Online {
			t.Fatal("B must start the rematch offline")
		}
	}

	// No disconnect event will ever fire for B in the new game, so the
	// countdown armed at creation must forfeit it.
	waitFor(t, time.Second, func() bool { return a.count(EventGameOver) == 2 })
	over := a.lastSnapshot(t, EventGameOver)
	if over.ID != snap.ID || over.Winner != "A" {
		t.Fatalf("expected A to win the abandoned rematch: %+v", over)
	}
	if fs.phase(t, snap.ID) != store.PhaseWonGame {
		t.Fatal("forfeit must persist")
	}
}

func TestRematchRequiresFinishedPhase(t *testing.T) {
	e, _ := newTestEngine(t)
	a := newFakeConn("a1")
	b := newFakeConn("b1")
	id := startGame(t, e, a, b)
	ctx := context.Background()

	if err := e.RequestRematch(ctx, "A", id); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase on active game, got %v", err)
	}
	if err := e.RequestRematch(ctx, "A", "missing"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestRematchOutlivesRetentionOfOldGame(t *testing.T) {
	// The finished game is evicted after the retention window; votes then
	// land on nothing.
	e, _ := newTestEngine(t, WithFinishedRetention(50*time.Millisecond))
	a := newFakeConn("a1")
	b := newFakeConn("b1")
	id := finishGame(t, e, a, b)

	waitFor(t, time.Second, func() bool { return e.lookup(id) == nil })
	if err := e.RequestRematch(context.Background(), "A", id); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound after eviction, got %v", err)
	}
}
