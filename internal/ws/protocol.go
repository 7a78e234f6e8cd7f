package ws

// Inbound message types, channel to engine. The authenticated identity rides
// out-of-band on the connection, never in the message.
const (
	TypeCreateGame      = "createGame"
	TypeJoinGame        = "joinGame"
	TypeMakeMove        = "makeMove"
	TypeRequestRematch  = "requestRematch"
	TypeCancelGame      = "cancelGame"
	TypeForfeit         = "forfeit"
	TypeFetchState      = "fetchState"
	TypeCheckActiveGame = "checkActiveGame"
)

type Message struct {
	Type   string `json:"type"`
	GameID string `json:"gameId,omitempty"`
	Cell   *int   `json:"cell,omitempty"`
}

// Event is the outbound envelope for every engine push.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}
