package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Connect handles a freshly authenticated channel. A participant marked
// offline in a live game is reconciled back into it; anyone else just gets
// the current lobby list.
func (e *Engine) Connect(ctx context.Context, identity string, c Conn) {
	e.registry.Add(identity, c)

	// Finished games still in their retention window count: a reconnecting
	// player may yet vote for a rematch or fetch the final board.
	g := e.findGameWith(identity, func(g *Game, p *Participant) bool {
		return !p.Online
	})
	if g == nil {
		c.Send(EventUpdateGameList, e.OpenGames())
		return
	}

	g.mu.Lock()
	p := g.participant(identity)
	if p == nil || p.Online {
		// Raced another channel of the same identity; nothing to reconcile.
		g.mu.Unlock()
		c.Send(EventUpdateGameList, e.OpenGames())
		return
	}
	e.cancelGraceTimerLocked(g, identity)
	p.Online = true
	snap := g.snapshotLocked()
	group := groupLocked(g)
	g.mu.Unlock()

	log.Info().Str("identity", identity).Str("game_id", snap.ID).Msg("player reconnected")
	e.emitToGroup(group, EventGameReconnected, snap)
}

// Disconnect handles one channel closing. Session-level consequences only
// apply once the identity's last channel is gone, and then every session
// still holding the identity is reconciled.
func (e *Engine) Disconnect(ctx context.Context, identity string, c Conn) {
	if !e.registry.Remove(identity, c) {
		return
	}
	for _, g := range e.findGamesWith(identity, func(*Game, *Participant) bool {
		return true
	}) {
		e.reconcileDeparture(ctx, g, identity)
	}
}

func (e *Engine) reconcileDeparture(ctx context.Context, g *Game, identity string) {
	g.mu.Lock()
	switch g.Phase {
	case PhaseWaiting:
		// The lone creator left; the game cannot start.
		g.mu.Unlock()
		e.cancelWaitingGame(ctx, g, "Game cancelled: creator disconnected.")
	case PhaseActive:
		p := g.participant(identity)
		p.Online = false
		opp := g.opponentOf(identity)
		e.startGraceTimerLocked(g, identity)
		gameID := g.ID
		g.mu.Unlock()

		log.Info().Str("identity", identity).Str("game_id", gameID).Dur("grace", e.grace).Msg("player disconnected")
		e.emitToGroup([]string{opp.Identity}, EventOpponentDisconnected, DisconnectNotice{
			GameID: gameID,
			Message: fmt.Sprintf("Opponent disconnected. You will win in %d seconds if they don't reconnect.",
				int(e.grace/time.Second)),
		})
	case PhaseWon, PhaseDrawn:
		// A finished game lingers for rematch votes; snapshots served in
		// that window must show the seat offline.
		if p := g.participant(identity); p != nil {
			p.Online = false
		}
		g.mu.Unlock()
	default:
		g.mu.Unlock()
	}
}

// startGraceTimerLocked arms the forfeit countdown for (game, identity).
// At most one timer per pair: arming again replaces any stale handle.
// Callers hold g.mu.
func (e *Engine) startGraceTimerLocked(g *Game, identity string) {
	if t := g.graceTimers[identity]; t != nil {
		t.Stop()
	}
	g.graceTimers[identity] = time.AfterFunc(e.grace, func() {
		e.graceTimerFired(g, identity)
	})
}

// cancelGraceTimerLocked stops the countdown; cancelling an absent or
// already-fired timer is a no-op. Callers hold g.mu.
func (e *Engine) cancelGraceTimerLocked(g *Game, identity string) {
	if t := g.graceTimers[identity]; t != nil {
		t.Stop()
		delete(g.graceTimers, identity)
	}
}

// graceTimerFired awards the opponent a forfeit win if the disconnected
// participant never came back. Cancellation is best-effort, so the state is
// re-verified under the game lock here to close the race with a last-moment
// reconnection.
func (e *Engine) graceTimerFired(g *Game, identity string) {
	if !e.inTable(g) {
		return
	}
	g.mu.Lock()
	p := g.participant(identity)
	if g.Phase != PhaseActive || p == nil || p.Online {
		g.mu.Unlock()
		return
	}
	delete(g.graceTimers, identity)
	opp := g.opponentOf(identity)
	g.mu.Unlock()

	log.Info().Str("identity", identity).Str("game_id", g.ID).Msg("grace timer expired, forfeiting")
	e.finishWithWinner(context.Background(), g, opp.Identity)
}

// cancelWaitingGame terminates a game that never got its second player.
func (e *Engine) cancelWaitingGame(ctx context.Context, g *Game, message string) {
	g.mu.Lock()
	if g.Phase != PhaseWaiting {
		g.mu.Unlock()
		return
	}
	g.Phase = PhaseCancelled
	rec := g.recordLocked()
	group := groupLocked(g)
	gameID := g.ID
	g.mu.Unlock()

	e.persist(ctx, rec)
	e.evict(g)
	log.Info().Str("game_id", gameID).Msg("game cancelled")
	e.emitToGroup(group, EventGameCancelled, CancelNotice{GameID: gameID, Message: message})
	e.broadcastLobby()
}

// finishWithWinner drives the shared terminal path used by winning moves,
// forfeits and grace-timer expiry.
func (e *Engine) finishWithWinner(ctx context.Context, g *Game, winner string) {
	g.mu.Lock()
	if g.Phase != PhaseActive {
		g.mu.Unlock()
		return
	}
	g.Phase = PhaseWon
	g.Winner = winner
	for _, t := range g.graceTimers {
		t.Stop()
	}
	g.graceTimers = map[string]*time.Timer{}
	e.scheduleEvictionLocked(g)
	rec := g.recordLocked()
	snap := g.snapshotLocked()
	group := groupLocked(g)
	g.mu.Unlock()

	e.persist(ctx, rec)
	e.emitToGroup(group, EventGameOver, snap)
}
