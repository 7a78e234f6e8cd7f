package store

import "time"

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// GameRecord is the persisted projection of a session. It carries only the
// fields needed to survive a restart; in-progress board state is not stored.
type GameRecord struct {
	ID        string
	PlayerX   string
	PlayerO   string
	Phase     string
	Winner    string
	Turn      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal phases. Mirrors lobby phase names so records round-trip unchanged.
const (
	PhaseWaiting   = "waiting"
	PhaseActive    = "active"
	PhaseWonGame   = "won"
	PhaseDrawnGame = "drawn"
	PhaseCancelled = "cancelled"
)

func IsTerminalPhase(phase string) bool {
	switch phase {
	case PhaseWonGame, PhaseDrawnGame, PhaseCancelled:
		return true
	}
	return false
}
