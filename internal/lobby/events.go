package lobby

// Outbound event names, engine to channel.
const (
	EventUpdateGameList       = "updateGameList"
	EventGameCreated          = "gameCreated"
	EventGameStarted          = "gameStarted"
	EventBoardUpdated         = "boardUpdated"
	EventGameOver             = "gameOver"
	EventOpponentDisconnected = "opponentDisconnected"
	EventGameReconnected      = "gameReconnected"
	EventOpponentWantsRematch = "opponentWantsRematch"
	EventGameCancelled        = "gameCancelled"
	EventActiveGame           = "activeGame"
	EventError                = "error"
)

type DisconnectNotice struct {
	GameID  string `json:"gameId"`
	Message string `json:"message"`
}

type CancelNotice struct {
	GameID  string `json:"gameId"`
	Message string `json:"message"`
}

type RematchNotice struct {
	GameID string `json:"gameId"`
}

type ErrorNotice struct {
	Code string `json:"code"`
}

// ActiveGameResponse carries the found session, or null when there is none.
type ActiveGameResponse struct {
	Game *Snapshot `json:"game"`
}
