package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/michaelgreenl/game-lobby/internal/auth"
	"github.com/michaelgreenl/game-lobby/internal/lobby"
	"github.com/michaelgreenl/game-lobby/internal/store"
)

// Client is one live channel for an identity. It implements lobby.Conn.
type Client struct {
	id       string
	identity string
	conn     *websocket.Conn
	send     chan []byte
}

func (c *Client) ID() string { return c.id }

// Send marshals and queues an event without blocking the engine. A client so
// far behind that its buffer is full simply loses the event; snapshots are
// self-contained, so the next one repairs the gap.
func (c *Client) Send(event string, payload any) {
	msg, err := json.Marshal(Event{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("event marshal failed")
		return
	}
	defer func() { _ = recover() }()
	select {
	case c.send <- msg:
	default:
	}
}

type Server struct {
	auth     *auth.Service
	engine   *lobby.Engine
	upgrader websocket.Upgrader
}

func NewServer(authSvc *auth.Service, engine *lobby.Engine, allowedOrigin string) *Server {
	return &Server{
		auth:   authSvc,
		engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// HandleWS authenticates and upgrades one channel. A bad credential refuses
// the connection before any session state is touched.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	identity, err := s.auth.Verify(token)
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{
		id:       store.NewID(),
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, 32),
	}

	go s.writeLoop(client)
	s.readLoop(client)
}

func (s *Server) readLoop(c *Client) {
	ctx := context.Background()
	s.engine.Connect(ctx, c.identity, c)
	defer func() {
		s.engine.Disconnect(ctx, c.identity, c)
		safeClose(c.send)
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(ctx, c, raw)
	}
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// dispatch routes one inbound message. A panic in a handler closes nothing:
// one failing event must not take down unrelated sessions.
func (s *Server) dispatch(ctx context.Context, c *Client, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("identity", c.identity).Msg("handler panic recovered")
		}
	}()

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	var err error
	switch msg.Type {
	case TypeCreateGame:
		err = s.engine.CreateGame(ctx, c.identity)
	case TypeJoinGame:
		err = s.engine.JoinGame(ctx, c.identity, msg.GameID)
	case TypeMakeMove:
		if msg.Cell == nil {
			err = lobby.ErrInvalidCell
			break
		}
		err = s.engine.MakeMove(ctx, c.identity, msg.GameID, *msg.Cell)
	case TypeRequestRematch:
		err = s.engine.RequestRematch(ctx, c.identity, msg.GameID)
	case TypeCancelGame:
		err = s.engine.CancelGame(ctx, c.identity, msg.GameID)
	case TypeForfeit:
		err = s.engine.Forfeit(ctx, c.identity, msg.GameID)
	case TypeFetchState:
		err = s.engine.FetchState(ctx, c.identity, msg.GameID)
	case TypeCheckActiveGame:
		s.engine.CheckActiveGame(ctx, c.identity, c)
	default:
		return
	}

	if err != nil {
		log.Debug().Err(err).Str("identity", c.identity).Str("type", msg.Type).Msg("event rejected")
		c.Send(lobby.EventError, lobby.ErrorNotice{Code: err.Error()})
	}
}

func safeClose(ch chan []byte) {
	defer func() { _ = recover() }()
	close(ch)
}
