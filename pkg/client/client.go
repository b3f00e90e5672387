// Package client implements the relay's client-side connection state
// machine: one place that owns dialing, bounded retry, and the degraded
// fallback, exposing a single typed event stream to consumers.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	// StateDegraded means all dial attempts failed and the connection
	// operates against an in-process mock transport. Sends succeed
	// locally and produce synthetic acknowledgements so the caller can
	// keep running offline.
	StateDegraded
)

var stateNames = map[State]string{
	StateDisconnected: "disconnected",
	StateConnecting:   "connecting",
	StateConnected:    "connected",
	StateDegraded:     "degraded",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state_%d", int(s))
}

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("connection closed")

// Message is one inbound envelope from the relay.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Options configure dialing and retry.
type Options struct {
	URL         string
	MaxAttempts int           // dial attempts before degrading; default 3
	RetryDelay  time.Duration // pause between attempts; default 2s
	DialTimeout time.Duration // per-attempt timeout; default 5s
	Logger      *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// transport abstracts the wire so the degraded mode can swap in a mock.
type transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Conn is one logical connection to the relay.
type Conn struct {
	opts Options
	dial func(ctx context.Context, url string) (transport, error)

	mu    sync.Mutex
	state State
	tr    transport

	events chan Message
	states chan State
	done   chan struct{}
	closed bool
}

// New creates an unconnected Conn. Call Connect to dial.
func New(opts Options) *Conn {
	return &Conn{
		opts:   opts.withDefaults(),
		dial:   dialWebsocket,
		events: make(chan Message, 32),
		states: make(chan State, 8),
		done:   make(chan struct{}),
		state:  StateDisconnected,
	}
}

func dialWebsocket(ctx context.Context, url string) (transport, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: ws}, nil
}

type wsTransport struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// Events is the single inbound stream. Degraded-mode synthetic replies
// arrive on the same channel as live relay events.
func (c *Conn) Events() <-chan Message {
	return c.events
}

// States emits every state transition in order.
func (c *Conn) States() <-chan State {
	return c.states
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	if c.closed || c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	select {
	case c.states <- s:
	default:
		// A consumer that stopped draining state changes still gets the
		// latest via State().
	}
	c.opts.Logger.Debug("connection state changed", zap.Stringer("state", s))
}

// Connect dials the relay with bounded retry. After MaxAttempts failures
// the connection degrades to the mock transport instead of failing: the
// caller keeps a working (if offline) connection either way.
func (c *Conn) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
		tr, err := c.dial(dialCtx, c.opts.URL)
		cancel()
		if err == nil {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				tr.Close()
				return ErrClosed
			}
			c.tr = tr
			c.mu.Unlock()
			c.setState(StateConnected)
			go c.readLoop(tr)
			return nil
		}
		lastErr = err
		c.opts.Logger.Warn("dial failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.opts.MaxAttempts),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return ctx.Err()
		case <-c.done:
			return ErrClosed
		case <-time.After(c.opts.RetryDelay):
		}
	}

	c.opts.Logger.Warn("all dial attempts failed; entering degraded mode",
		zap.Error(lastErr),
	)
	mock := newMockTransport()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.tr = mock
	c.mu.Unlock()
	c.setState(StateDegraded)
	go c.readLoop(mock)
	return nil
}

func (c *Conn) readLoop(tr transport) {
	for {
		data, err := tr.ReadMessage()
		if err != nil {
			c.mu.Lock()
			current := c.tr == tr && !c.closed
			c.mu.Unlock()
			if current {
				c.setState(StateDisconnected)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.opts.Logger.Warn("dropping unparseable frame", zap.Error(err))
			continue
		}
		select {
		case c.events <- msg:
		case <-c.done:
			return
		}
	}
}

// Emit sends an event envelope to the relay (or the mock, when degraded).
func (c *Conn) Emit(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		return err
	}

	c.mu.Lock()
	tr := c.tr
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if tr == nil {
		return fmt.Errorf("emit %s: not connected", event)
	}
	return tr.WriteMessage(frame)
}

// Close tears the connection down. The Events and States channels stop
// receiving but stay open, so concurrent readers never race a close.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	tr := c.tr
	c.tr = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	close(c.done)
	if tr != nil {
		tr.Close()
	}
	return nil
}
