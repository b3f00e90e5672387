package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainOne(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	default:
		t.Fatal("expected a queued frame")
		return Envelope{}
	}
}

func TestHub_BroadcastReachesRoomOnly(t *testing.T) {
	hub := NewHub(nil)
	a := newClient(hub)
	b := newClient(hub)
	other := newClient(hub)

	hub.Join("g1", a)
	hub.Join("g1", b)
	hub.Join("g2", other)

	hub.Broadcast("g1", "game-updated", map[string]string{"hello": "world"})

	for _, c := range []*Client{a, b} {
		env := drainOne(t, c)
		assert.Equal(t, "game-updated", env.Event)
	}
	assert.Empty(t, other.send)
}

func TestHub_SendTargetsOneClient(t *testing.T) {
	hub := NewHub(nil)
	a := newClient(hub)
	b := newClient(hub)
	hub.Join("g1", a)
	hub.Join("g1", b)

	hub.Send(a, "error", map[string]string{"code": "not_your_turn"})

	env := drainOne(t, a)
	assert.Equal(t, "error", env.Event)
	assert.Empty(t, b.send)
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	a := newClient(hub)
	hub.Join("g1", a)
	require.Equal(t, 1, hub.RoomSize("g1"))

	hub.Leave(a)
	assert.Equal(t, 0, hub.RoomSize("g1"))

	hub.Broadcast("g1", "game-updated", nil)
	assert.Empty(t, a.send)
}

func TestHub_JoiningSecondRoomLeavesFirst(t *testing.T) {
	hub := NewHub(nil)
	a := newClient(hub)
	hub.Join("g1", a)
	hub.Join("g2", a)

	assert.Equal(t, 0, hub.RoomSize("g1"))
	assert.Equal(t, 1, hub.RoomSize("g2"))
}

func TestHub_SlowClientFramesDropped(t *testing.T) {
	hub := NewHub(nil)
	a := newClient(hub)
	hub.Join("g1", a)

	// Fill the buffer; further frames must be dropped, not block.
	for i := 0; i < sendBuffer+10; i++ {
		hub.Broadcast("g1", "game-event", i)
	}
	assert.Len(t, a.send, sendBuffer)
}

func TestClient_SeatBinding(t *testing.T) {
	hub := NewHub(nil)
	c := newClient(hub)

	gameID, userID := c.seat()
	assert.Empty(t, gameID)
	assert.Empty(t, userID)

	c.bind("g1", "p1", "token")
	gameID, userID = c.seat()
	assert.Equal(t, "g1", gameID)
	assert.Equal(t, "p1", userID)
}

func TestEnvelope_Marshal(t *testing.T) {
	frame, err := marshalEnvelope("joined", map[string]bool{"success": true})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, "joined", env.Event)
	assert.JSONEq(t, `{"success":true}`, string(env.Data))
}
