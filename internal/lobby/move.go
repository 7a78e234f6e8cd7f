package lobby

import (
	"context"

	"github.com/michaelgreenl/game-lobby/internal/game"
)

// MakeMove applies a server-validated move. Invalid attempts change nothing;
// intermediate moves are not persisted (phase transitions are), so only
// winning and drawing moves write through.
func (e *Engine) MakeMove(ctx context.Context, identity, gameID string, cell int) error {
	g := e.lookup(gameID)
	if g == nil {
		return ErrGameNotFound
	}

	g.mu.Lock()
	if g.Phase != PhaseActive {
		g.mu.Unlock()
		return ErrInvalidPhase
	}
	if g.Turn != identity {
		g.mu.Unlock()
		return ErrNotYourTurn
	}
	if cell < 0 || cell >= len(g.Board) {
		g.mu.Unlock()
		return ErrInvalidCell
	}
	if g.Board[cell] != game.Empty {
		g.mu.Unlock()
		return ErrCellOccupied
	}

	p := g.participant(identity)
	g.Board[cell] = p.Symbol

	res := game.Evaluate(g.Board)
	switch res.Outcome {
	case game.Win:
		g.Phase = PhaseWon
		g.Winner = identity
		e.scheduleEvictionLocked(g)
		rec := g.recordLocked()
		snap := g.snapshotLocked()
		group := groupLocked(g)
		g.mu.Unlock()
		e.persist(ctx, rec)
		e.emitToGroup(group, EventGameOver, snap)
	case game.Draw:
		g.Phase = PhaseDrawn
		e.scheduleEvictionLocked(g)
		rec := g.recordLocked()
		snap := g.snapshotLocked()
		group := groupLocked(g)
		g.mu.Unlock()
		e.persist(ctx, rec)
		e.emitToGroup(group, EventGameOver, snap)
	default:
		g.Turn = g.opponentOf(identity).Identity
		snap := g.snapshotLocked()
		group := groupLocked(g)
		g.mu.Unlock()
		e.emitToGroup(group, EventBoardUpdated, snap)
	}
	return nil
}
