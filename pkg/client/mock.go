package client

import (
	"encoding/json"
	"errors"
	"sync"
)

// mockTransport backs the degraded state. Every write is acknowledged
// with a synthetic "degraded" reply naming the original event, so
// consumers can surface the offline condition instead of hanging on a
// response that will never come.
type mockTransport struct {
	mu     sync.Mutex
	inbox  chan []byte
	closed bool
}

func newMockTransport() *mockTransport {
	return &mockTransport{inbox: make(chan []byte, 32)}
}

func (t *mockTransport) ReadMessage() ([]byte, error) {
	data, ok := <-t.inbox
	if !ok {
		return nil, errors.New("mock transport closed")
	}
	return data, nil
}

func (t *mockTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("mock transport closed")
	}

	event := "unknown"
	var msg Message
	if err := json.Unmarshal(data, &msg); err == nil && msg.Event != "" {
		event = msg.Event
	}
	reply, _ := json.Marshal(map[string]any{
		"event": "degraded",
		"data":  map[string]any{"request": event, "success": false},
	})
	select {
	case t.inbox <- reply:
	default:
		// Consumer stopped reading; dropping the synthetic ack is fine.
	}
	return nil
}

func (t *mockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.inbox)
	}
	return nil
}
