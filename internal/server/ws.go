package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/politicalpower/power-server-go/internal/game"
	"github.com/politicalpower/power-server-go/internal/game/rules"
	"github.com/politicalpower/power-server-go/internal/session"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 * 1024
)

// Server is the realtime relay: it owns the websocket endpoint, routes
// inbound envelopes to the engine, and fans engine results back out to
// game rooms. All rules decisions stay in the engine; the relay only
// translates between wire frames and engine calls.
type Server struct {
	engine   *game.Engine
	sessions session.Store
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer wires the relay to an engine and session store.
func NewServer(engine *game.Engine, sessions session.Store, allowedOrigins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:   engine,
		sessions: sessions,
		hub:      NewHub(logger),
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}

	// Engine events become lightweight room announcements. The hub only
	// enqueues frames here, so the engine lock is never re-entered.
	engine.Bus().Subscribe(func(ev rules.Event) {
		s.hub.Broadcast(ev.GameID, "game-event", map[string]any{
			"type":     string(ev.Type),
			"playerId": ev.PlayerID,
			"targetId": ev.TargetID,
			"cardId":   ev.CardID,
			"amount":   ev.Amount,
		})
	})
	return s
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}

// Routes returns the HTTP mux: the websocket endpoint and a health probe.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(s.hub)
	go s.writePump(conn, c)
	s.readPump(conn, c)
}

func (s *Server) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readPump(conn *websocket.Conn, c *Client) {
	defer func() {
		s.dropClient(c)
		conn.Close()
	}()
	conn.SetReadLimit(maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.sendError(c, "bad_envelope", "message is not a valid envelope")
			continue
		}
		s.dispatch(c, env)
	}
}

// dropClient handles an unclean or clean disconnect: the seat survives,
// only the connection flag flips.
func (s *Server) dropClient(c *Client) {
	gameID, userID := c.seat()
	s.hub.Leave(c)
	c.closeSend()
	if gameID == "" || userID == "" {
		return
	}
	state, err := s.engine.MarkDisconnected(gameID, userID)
	if err != nil {
		return
	}
	s.hub.Broadcast(gameID, "player-disconnected", map[string]any{
		"gameState": state,
		"playerId":  userID,
	})
}

func (s *Server) dispatch(c *Client, env Envelope) {
	switch env.Event {
	case "create-game":
		s.handleCreate(c, env.Data)
	case "join-game":
		s.handleJoin(c, env.Data)
	case "leave-game":
		s.handleLeave(c)
	case "start-game":
		s.handleStart(c, env.Data)
	case "game-action":
		s.handleAction(c, env.Data)
	case "resume":
		s.handleResume(c, env.Data)
	default:
		s.sendError(c, "unknown_event", env.Event)
	}
}

func (s *Server) sendError(c *Client, code, message string) {
	s.hub.Send(c, "error", map[string]any{
		"code":    code,
		"message": message,
	})
}

func (s *Server) rejectf(c *Client, err error) {
	s.sendError(c, game.RejectCode(err), err.Error())
}

func (s *Server) handleCreate(c *Client, data json.RawMessage) {
	var params game.CreateParams
	if err := json.Unmarshal(data, &params); err != nil {
		s.sendError(c, "bad_payload", "invalid create-game payload")
		return
	}
	state, err := s.engine.CreateGame(params)
	if err != nil {
		s.rejectf(c, err)
		return
	}
	s.hub.Send(c, "game-created", map[string]any{
		"success": true,
		"game":    state,
	})
	s.logger.Info("relay created game",
		zap.String("game_id", state.GameID),
		zap.Int("players", len(state.Players)),
	)
}

type joinPayload struct {
	GameID string `json:"gameId"`
	Player struct {
		UserID   string `json:"userId"`
		Username string `json:"username"`
	} `json:"player"`
}

func (s *Server) handleJoin(c *Client, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.sendError(c, "bad_payload", "invalid join-game payload")
		return
	}

	state, err := s.engine.Join(p.GameID, p.Player.UserID, p.Player.Username)
	if errors.Is(err, game.ErrAlreadyJoined) {
		// Seat already exists (e.g. seeded at create-game); just attach
		// this connection to it.
		state, err = s.engine.Snapshot(p.GameID)
	}
	if err != nil {
		s.rejectf(c, err)
		return
	}

	sess, err := s.sessions.Create(context.Background(), p.GameID, p.Player.UserID, p.Player.Username)
	if err != nil {
		s.logger.Error("session create failed", zap.Error(err))
		s.sendError(c, "internal_error", "could not create session")
		return
	}

	c.bind(p.GameID, p.Player.UserID, sess.Token)
	s.hub.Join(p.GameID, c)

	s.hub.Send(c, "joined", map[string]any{
		"success":      true,
		"game":         state,
		"playerId":     p.Player.UserID,
		"sessionToken": sess.Token,
	})
	s.hub.Broadcast(p.GameID, "player-joined", map[string]any{
		"gameState": state,
		"player": map[string]string{
			"userId":   p.Player.UserID,
			"username": p.Player.Username,
		},
	})
}

func (s *Server) handleLeave(c *Client) {
	gameID, userID := c.seat()
	if gameID == "" {
		s.rejectf(c, game.ErrGameNotFound)
		return
	}
	state, err := s.engine.Leave(gameID, userID)
	if err != nil {
		s.rejectf(c, err)
		return
	}
	s.hub.Leave(c)
	c.bind("", "", "")
	s.hub.Broadcast(gameID, "player-left", map[string]any{
		"gameState": state,
		"playerId":  userID,
	})
}

type startPayload struct {
	GameID string `json:"gameId"`
}

func (s *Server) handleStart(c *Client, data json.RawMessage) {
	var p startPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.sendError(c, "bad_payload", "invalid start-game payload")
		return
	}
	gameID := p.GameID
	if gameID == "" {
		gameID, _ = c.seat()
	}
	state, err := s.engine.Start(gameID)
	if err != nil {
		s.rejectf(c, err)
		return
	}
	s.hub.Broadcast(gameID, "game-started", map[string]any{
		"gameState": state,
	})
}

func (s *Server) handleAction(c *Client, data json.RawMessage) {
	var act game.Action
	if err := json.Unmarshal(data, &act); err != nil {
		s.sendError(c, "bad_payload", "invalid game-action payload")
		return
	}
	gameID, userID := c.seat()
	if gameID == "" {
		s.rejectf(c, game.ErrGameNotFound)
		return
	}
	if act.PlayerID == "" {
		act.PlayerID = userID
	}

	state, err := s.engine.Apply(gameID, act)
	if err != nil {
		// Rejections go only to the originating connection; the shared
		// state is untouched and other clients see nothing.
		s.hub.Send(c, "game-action-response", map[string]any{
			"success": false,
			"error":   game.RejectCode(err),
		})
		return
	}

	s.hub.Send(c, "game-action-response", map[string]any{"success": true})
	s.hub.Broadcast(gameID, "game-updated", map[string]any{
		"gameState": state,
	})
}

type resumePayload struct {
	Token string `json:"token"`
}

func (s *Server) handleResume(c *Client, data json.RawMessage) {
	var p resumePayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.sendError(c, "bad_payload", "invalid resume payload")
		return
	}
	sess, err := s.sessions.Get(context.Background(), p.Token)
	if errors.Is(err, session.ErrNotFound) {
		s.sendError(c, "session_not_found", "no session for token")
		return
	}
	if err != nil {
		s.logger.Error("session lookup failed", zap.Error(err))
		s.sendError(c, "internal_error", "could not look up session")
		return
	}

	state, err := s.engine.Reconnect(sess.GameID, sess.UserID)
	if err != nil {
		s.rejectf(c, err)
		return
	}

	c.bind(sess.GameID, sess.UserID, sess.Token)
	s.hub.Join(sess.GameID, c)

	s.hub.Send(c, "game-state", map[string]any{
		"gameState": state,
		"you": map[string]string{
			"playerId": sess.UserID,
			"username": sess.Username,
		},
	})
	s.hub.Broadcast(sess.GameID, "game-updated", map[string]any{
		"gameState": state,
	})
}
