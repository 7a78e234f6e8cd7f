package lobby

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/michaelgreenl/game-lobby/internal/game"
	"github.com/michaelgreenl/game-lobby/internal/store"
)

// CreateGame opens a new game awaiting a second player. An identity may hold
// at most one non-terminal game at a time. The durable record is written
// before the table entry is installed; if the write fails no in-memory state
// is left behind.
func (e *Engine) CreateGame(ctx context.Context, identity string) error {
	if g := e.findGameWith(identity, func(g *Game, p *Participant) bool {
		return !g.Phase.Terminal()
	}); g != nil {
		return ErrAlreadyInGame
	}

	id, err := e.store.CreateGameRecord(ctx, store.GameRecord{
		PlayerX: identity,
		Phase:   store.PhaseWaiting,
		Turn:    identity,
	})
	if err != nil {
		log.Error().Err(err).Str("identity", identity).Msg("create game record failed")
		return err
	}

	g := newGame(id, identity)
	e.mu.Lock()
	e.games[id] = g
	e.mu.Unlock()

	g.mu.Lock()
	snap := g.snapshotLocked()
	g.mu.Unlock()

	log.Info().Str("game_id", id).Str("identity", identity).Msg("game created")
	e.emitToGroup([]string{identity}, EventGameCreated, snap)
	e.broadcastLobby()
	return nil
}

// JoinGame seats a second player. Absent games, wrong phases, self-joins and
// joiners already holding a live game are rejected without touching state;
// the server re-validates here no matter what lobby list the client saw.
func (e *Engine) JoinGame(ctx context.Context, identity, gameID string) error {
	g := e.lookup(gameID)
	if g == nil {
		return ErrGameNotFound
	}

	// Same one-live-game policy as CreateGame. Holding a seat in this very
	// game is left to the phase and self-join checks below.
	if held := e.findGameWith(identity, func(g *Game, p *Participant) bool {
		return !g.Phase.Terminal()
	}); held != nil && held != g {
		return ErrAlreadyInGame
	}

	g.mu.Lock()
	if g.Phase != PhaseWaiting {
		g.mu.Unlock()
		return ErrInvalidPhase
	}
	if g.Players[0].Identity == identity {
		g.mu.Unlock()
		return ErrSelfJoin
	}
	g.Players = append(g.Players, &Participant{Identity: identity, Symbol: game.O, Online: true})
	g.Phase = PhaseActive
	rec := g.recordLocked()
	snap := g.snapshotLocked()
	group := groupLocked(g)
	g.mu.Unlock()

	e.persist(ctx, rec)
	log.Info().Str("game_id", gameID).Str("identity", identity).Msg("game started")
	e.emitToGroup(group, EventGameStarted, snap)
	e.broadcastLobby()
	return nil
}

// CancelGame is the creator's explicit abort, legal only before anyone joins.
func (e *Engine) CancelGame(ctx context.Context, identity, gameID string) error {
	g := e.lookup(gameID)
	if g == nil {
		return ErrGameNotFound
	}
	g.mu.Lock()
	if g.Phase != PhaseWaiting {
		g.mu.Unlock()
		return ErrInvalidPhase
	}
	if g.Players[0].Identity != identity {
		g.mu.Unlock()
		return ErrNotCreator
	}
	g.mu.Unlock()

	e.cancelWaitingGame(ctx, g, "Game cancelled by creator.")
	return nil
}

// Forfeit immediately finishes an active game with the opponent as winner.
// Same terminal path as grace-timer expiry, just synchronous.
func (e *Engine) Forfeit(ctx context.Context, identity, gameID string) error {
	g := e.lookup(gameID)
	if g == nil {
		return ErrGameNotFound
	}
	g.mu.Lock()
	if g.Phase != PhaseActive {
		g.mu.Unlock()
		return ErrInvalidPhase
	}
	p := g.participant(identity)
	if p == nil {
		g.mu.Unlock()
		return ErrNotParticipant
	}
	opp := g.opponentOf(identity)
	g.mu.Unlock()

	log.Info().Str("game_id", gameID).Str("identity", identity).Msg("forfeit")
	e.finishWithWinner(ctx, g, opp.Identity)
	return nil
}

// FetchState rejoins the requester to a game's group and emits a
// reconnected-style snapshot. A game absent from the table is read through
// from the durable store; the rehydrated board starts empty because the
// durable projection does not capture in-progress cells.
func (e *Engine) FetchState(ctx context.Context, identity, gameID string) error {
	g := e.lookup(gameID)
	if g == nil {
		rec, err := e.store.FindGameRecord(ctx, gameID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrGameNotFound
			}
			return err
		}
		if rec.PlayerX != identity && rec.PlayerO != identity {
			return ErrNotParticipant
		}
		g = gameFromRecord(rec)
		e.mu.Lock()
		if existing := e.games[gameID]; existing != nil {
			// Raced a concurrent rehydration; use the winner.
			g = existing
		} else if !g.Phase.Terminal() {
			e.games[gameID] = g
		}
		e.mu.Unlock()
		log.Info().Str("game_id", gameID).Str("identity", identity).Msg("game rehydrated from store")
	}

	g.mu.Lock()
	p := g.participant(identity)
	if p == nil {
		g.mu.Unlock()
		return ErrNotParticipant
	}
	e.cancelGraceTimerLocked(g, identity)
	p.Online = e.registry.Online(identity)
	snap := g.snapshotLocked()
	g.mu.Unlock()

	e.emitToGroup([]string{identity}, EventGameReconnected, snap)
	return nil
}

// CheckActiveGame looks for any non-terminal game holding the identity,
// searching the live table first and the durable store second, and answers
// with the found game or an explicit none.
func (e *Engine) CheckActiveGame(ctx context.Context, identity string, c Conn) {
	if g := e.findGameWith(identity, func(g *Game, p *Participant) bool {
		return !g.Phase.Terminal()
	}); g != nil {
		g.mu.Lock()
		snap := g.snapshotLocked()
		g.mu.Unlock()
		c.Send(EventActiveGame, ActiveGameResponse{Game: &snap})
		return
	}

	rec, err := e.store.FindActiveGameRecordFor(ctx, identity)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("identity", identity).Msg("active game lookup failed")
		}
		c.Send(EventActiveGame, ActiveGameResponse{})
		return
	}
	g := gameFromRecord(rec)
	g.mu.Lock()
	snap := g.snapshotLocked()
	g.mu.Unlock()
	c.Send(EventActiveGame, ActiveGameResponse{Game: &snap})
}
