package lobby

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/michaelgreenl/game-lobby/internal/game"
	"github.com/michaelgreenl/game-lobby/internal/store"
)

// RequestRematch records a vote on a finished game. The first vote notifies
// the opponent; the second atomically hands both players off to a brand-new
// game with swapped symbols and an empty board. The handoff runs as one
// critical section on the old game so exactly one new game is created no
// matter how the two votes interleave.
func (e *Engine) RequestRematch(ctx context.Context, identity, gameID string) error {
	g := e.lookup(gameID)
	if g == nil {
		return ErrGameNotFound
	}

	g.mu.Lock()
	if !g.Phase.Finished() {
		g.mu.Unlock()
		return ErrInvalidPhase
	}
	p := g.participant(identity)
	if p == nil {
		g.mu.Unlock()
		return ErrNotParticipant
	}
	if g.rematchVotes[identity] {
		// Duplicate vote; set semantics.
		g.mu.Unlock()
		return nil
	}
	g.rematchVotes[identity] = true
	if len(g.rematchVotes) < len(g.Players) || len(g.Players) < 2 {
		opp := g.opponentOf(identity)
		g.mu.Unlock()
		e.emitToGroup([]string{opp.Identity}, EventOpponentWantsRematch, RematchNotice{GameID: gameID})
		return nil
	}

	// Both voted. Symbols swap: the old second player opens the rematch.
	oldX := g.Players[0]
	oldO := g.Players[1]
	if oldX.Symbol != game.X {
		oldX, oldO = oldO, oldX
	}

	id, err := e.store.CreateGameRecord(ctx, store.GameRecord{
		PlayerX: oldO.Identity,
		PlayerO: oldX.Identity,
		Phase:   store.PhaseActive,
		Turn:    oldO.Identity,
	})
	if err != nil {
		// Drop this vote so a retry can complete the pair.
		delete(g.rematchVotes, identity)
		g.mu.Unlock()
		log.Error().Err(err).Str("game_id", gameID).Msg("rematch record create failed")
		return err
	}

	next := &Game{
		ID:    id,
		Turn:  oldO.Identity,
		Phase: PhaseActive,
		Players: []*Participant{
			{Identity: oldO.Identity, Symbol: game.X, Online: e.registry.Online(oldO.Identity)},
			{Identity: oldX.Identity, Symbol: game.O, Online: e.registry.Online(oldX.Identity)},
		},
		rematchVotes: map[string]bool{},
		graceTimers:  map[string]*time.Timer{},
	}

	g.rematchVotes = map[string]bool{}
	if g.evictTimer != nil {
		g.evictTimer.Stop()
	}
	group := groupLocked(g)
	g.mu.Unlock()

	e.mu.Lock()
	e.games[id] = next
	if e.games[gameID] == g {
		delete(e.games, gameID)
	}
	e.mu.Unlock()

	// A voter may have gone fully offline between voting and the handoff; no
	// disconnect event will fire for them in the new game, so the forfeit
	// countdown starts here.
	next.mu.Lock()
	for _, p := range next.Players {
		if !p.Online {
			e.startGraceTimerLocked(next, p.Identity)
		}
	}
	snap := next.snapshotLocked()
	next.mu.Unlock()

	log.Info().Str("old_game_id", gameID).Str("game_id", id).Msg("rematch started")
	e.emitToGroup(group, EventGameStarted, snap)
	return nil
}
