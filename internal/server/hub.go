package server

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Envelope is the wire frame for every relay message, inbound and
// outbound: an event name plus a JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// sendBuffer bounds each client's outbound queue. A client that cannot
// drain this many frames is considered dead and dropped.
const sendBuffer = 64

// Client is one websocket connection's relay-side state.
type Client struct {
	hub  *Hub
	send chan []byte

	mu     sync.Mutex
	gameID string
	userID string
	token  string

	closeOnce sync.Once
}

func newClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBuffer),
	}
}

// bind associates the connection with a seat after a successful join or
// resume.
func (c *Client) bind(gameID, userID, token string) {
	c.mu.Lock()
	c.gameID, c.userID, c.token = gameID, userID, token
	c.mu.Unlock()
}

// seat returns the bound game and user, empty before any join.
func (c *Client) seat() (gameID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID, c.userID
}

// enqueue pushes a marshaled frame without blocking. Reports false when
// the buffer is full; the caller drops the client.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub tracks which connections belong to which game room and fans
// outbound frames to them. It never touches game rules; that is the
// engine's job.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Join places a client in a game room. A client may only occupy one room;
// joining a second removes it from the first.
func (h *Hub) Join(gameID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		if id == gameID {
			continue
		}
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[gameID] = room
	}
	room[c] = struct{}{}
}

// Leave removes a client from every room.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
}

// RoomSize returns the number of connections in a game room.
func (h *Hub) RoomSize(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// Broadcast sends an event to every connection in a game room. Slow
// clients are skipped, not waited on.
func (h *Hub) Broadcast(gameID, event string, data any) {
	frame, err := marshalEnvelope(event, data)
	if err != nil {
		h.logger.Error("broadcast marshal failed",
			zap.String("game_id", gameID),
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[gameID] {
		if !c.enqueue(frame) {
			h.logger.Warn("dropping frame for slow client",
				zap.String("game_id", gameID),
				zap.String("event", event),
			)
		}
	}
}

// Send delivers an event to a single connection.
func (h *Hub) Send(c *Client, event string, data any) {
	frame, err := marshalEnvelope(event, data)
	if err != nil {
		h.logger.Error("send marshal failed",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}
	c.enqueue(frame)
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: payload})
}
