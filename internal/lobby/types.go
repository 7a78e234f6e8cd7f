package lobby

import (
	"sync"
	"time"

	"github.com/michaelgreenl/game-lobby/internal/game"
	"github.com/michaelgreenl/game-lobby/internal/store"
)

// Conn is one live channel for an identity. An identity may hold several at
// once (multiple tabs); events fan out to all of them. Send must not block.
type Conn interface {
	ID() string
	Send(event string, payload any)
}

type Phase string

const (
	PhaseWaiting   Phase = store.PhaseWaiting
	PhaseActive    Phase = store.PhaseActive
	PhaseWon       Phase = store.PhaseWonGame
	PhaseDrawn     Phase = store.PhaseDrawnGame
	PhaseCancelled Phase = store.PhaseCancelled
)

func (p Phase) Terminal() bool {
	return p == PhaseWon || p == PhaseDrawn || p == PhaseCancelled
}

func (p Phase) Finished() bool {
	return p == PhaseWon || p == PhaseDrawn
}

// Participant is one identity's seat within a game.
type Participant struct {
	Identity string
	Symbol   game.Mark
	Online   bool
}

// Game is the live, in-memory session state. Owned by the Engine; all access
// goes through its mutex so events touching the same game serialize while
// different games proceed independently.
type Game struct {
	mu sync.Mutex

	ID      string
	Players []*Participant
	Board   game.Board
	Turn    string
	Phase   Phase
	Winner  string

	rematchVotes map[string]bool
	graceTimers  map[string]*time.Timer
	evictTimer   *time.Timer
}

func newGame(id, creator string) *Game {
	return &Game{
		ID:           id,
		Players:      []*Participant{{Identity: creator, Symbol: game.X, Online: true}},
		Turn:         creator,
		Phase:        PhaseWaiting,
		rematchVotes: map[string]bool{},
		graceTimers:  map[string]*time.Timer{},
	}
}

func (g *Game) participant(identity string) *Participant {
	for _, p := range g.Players {
		if p.Identity == identity {
			return p
		}
	}
	return nil
}

func (g *Game) opponentOf(identity string) *Participant {
	for _, p := range g.Players {
		if p.Identity != identity {
			return p
		}
	}
	return nil
}

type PlayerView struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Online bool   `json:"online"`
}

// Snapshot is the full wire view of a game sent to clients.
type Snapshot struct {
	ID      string       `json:"id"`
	Players []PlayerView `json:"players"`
	Board   [9]string    `json:"board"`
	Turn    string       `json:"turn"`
	Phase   string       `json:"phase"`
	Winner  string       `json:"winner,omitempty"`
}

// snapshotLocked builds a Snapshot. Callers hold g.mu.
func (g *Game) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:     g.ID,
		Turn:   g.Turn,
		Phase:  string(g.Phase),
		Winner: g.Winner,
	}
	for _, p := range g.Players {
		s.Players = append(s.Players, PlayerView{ID: p.Identity, Symbol: string(p.Symbol), Online: p.Online})
	}
	for i, cell := range g.Board {
		s.Board[i] = string(cell)
	}
	return s
}

// recordLocked projects the live game onto its durable shape. The board is
// deliberately absent from the projection; a cold rehydration starts it empty.
func (g *Game) recordLocked() store.GameRecord {
	rec := store.GameRecord{
		ID:     g.ID,
		Phase:  string(g.Phase),
		Winner: g.Winner,
		Turn:   g.Turn,
	}
	for _, p := range g.Players {
		if p.Symbol == game.X {
			rec.PlayerX = p.Identity
		} else {
			rec.PlayerO = p.Identity
		}
	}
	return rec
}

// gameFromRecord rehydrates a live game from its durable projection. All
// participants start offline; Connect and FetchState flip them back.
func gameFromRecord(rec *store.GameRecord) *Game {
	g := &Game{
		ID:           rec.ID,
		Turn:         rec.Turn,
		Phase:        Phase(rec.Phase),
		Winner:       rec.Winner,
		rematchVotes: map[string]bool{},
		graceTimers:  map[string]*time.Timer{},
	}
	g.Players = append(g.Players, &Participant{Identity: rec.PlayerX, Symbol: game.X})
	if rec.PlayerO != "" {
		g.Players = append(g.Players, &Participant{Identity: rec.PlayerO, Symbol: game.O})
	}
	return g
}

// OpenGame is one lobby list entry: a game still awaiting its second player.
type OpenGame struct {
	ID      string       `json:"id"`
	Players []PlayerView `json:"players"`
}
