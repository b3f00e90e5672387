package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politicalpower/power-server-go/internal/card"
	"github.com/politicalpower/power-server-go/internal/game"
	"github.com/politicalpower/power-server-go/internal/session"
)

func testRelay(t *testing.T) (*httptest.Server, *game.Engine) {
	t.Helper()
	one := 1
	catalog, err := card.NewCatalog([]card.Card{
		{ID: "vanilla", Name: "Backbencher", Type: card.TypeAlly, Influence: &one},
	})
	require.NoError(t, err)

	engine := game.NewEngine(catalog, game.DefaultSettings(), nil, game.Options{
		Seed: 1,
		Dice: func() int { return 4 },
	})
	relay := NewServer(engine, session.NewMemoryStore(time.Hour), []string{"*"}, nil)

	srv := httptest.NewServer(relay.Routes())
	t.Cleanup(srv.Close)
	return srv, engine
}

func dialRelay(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: payload}))
}

// awaitEvent reads frames until the named event arrives, skipping the
// engine's game-event announcements and unrelated broadcasts.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("reading for %s: %v", event, err)
		}
		if env.Event == event {
			return env.Data
		}
	}
	t.Fatalf("timed out waiting for %s", event)
	return nil
}

func deckOf(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "vanilla"
	}
	return ids
}

func TestRelay_CreateJoinStartFlow(t *testing.T) {
	srv, _ := testRelay(t)
	alice := dialRelay(t, srv)
	bob := dialRelay(t, srv)

	send(t, alice, "create-game", game.CreateParams{
		Name:        "integration",
		DeckCardIDs: deckOf(20),
	})
	var created struct {
		Success bool `json:"success"`
		Game    struct {
			GameID string `json:"gameId"`
		} `json:"game"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, alice, "game-created"), &created))
	require.True(t, created.Success)
	gameID := created.Game.GameID

	send(t, alice, "join-game", map[string]any{
		"gameId": gameID,
		"player": map[string]string{"userId": "p1", "username": "Alice"},
	})
	var joined struct {
		Success      bool   `json:"success"`
		PlayerID     string `json:"playerId"`
		SessionToken string `json:"sessionToken"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, alice, "joined"), &joined))
	require.True(t, joined.Success)
	require.NotEmpty(t, joined.SessionToken)

	send(t, bob, "join-game", map[string]any{
		"gameId": gameID,
		"player": map[string]string{"userId": "p2", "username": "Bob"},
	})
	awaitEvent(t, bob, "joined")

	// Alice sees Bob's arrival.
	var playerJoined struct {
		Player struct {
			UserID string `json:"userId"`
		} `json:"player"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, alice, "player-joined"), &playerJoined))
	assert.Equal(t, "p2", playerJoined.Player.UserID)

	send(t, alice, "start-game", map[string]string{"gameId": gameID})
	var started struct {
		GameState struct {
			Phase string `json:"phase"`
			Round int    `json:"round"`
		} `json:"gameState"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, bob, "game-started"), &started))
	assert.Equal(t, "PLAY", started.GameState.Phase)
	assert.Equal(t, 1, started.GameState.Round)
}

func TestRelay_ActionResponsesAndBroadcast(t *testing.T) {
	srv, _ := testRelay(t)
	alice := dialRelay(t, srv)
	bob := dialRelay(t, srv)

	gameID := setupStartedGame(t, alice, bob)

	// Out of turn: rejection goes only to Bob.
	send(t, bob, "game-action", map[string]string{"type": "END_TURN"})
	var rejected struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, bob, "game-action-response"), &rejected))
	assert.False(t, rejected.Success)
	assert.Equal(t, "not_your_turn", rejected.Error)

	// In turn: success plus a room-wide game-updated.
	send(t, alice, "game-action", map[string]string{"type": "END_TURN"})
	var accepted struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, alice, "game-action-response"), &accepted))
	assert.True(t, accepted.Success)

	var updated struct {
		GameState struct {
			GameID         string `json:"gameId"`
			ActivePlayerID string `json:"activePlayerId"`
		} `json:"gameState"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, bob, "game-updated"), &updated))
	assert.Equal(t, gameID, updated.GameState.GameID)
	assert.Equal(t, "p2", updated.GameState.ActivePlayerID)
}

func TestRelay_ResumeRestoresSeat(t *testing.T) {
	srv, engine := testRelay(t)
	alice := dialRelay(t, srv)
	bob := dialRelay(t, srv)

	gameID := setupStartedGame(t, alice, bob)

	var joined struct {
		SessionToken string `json:"sessionToken"`
	}
	// Bob rejoins on a fresh connection using his token.
	send(t, bob, "join-game", map[string]any{
		"gameId": gameID,
		"player": map[string]string{"userId": "p2", "username": "Bob"},
	})
	require.NoError(t, json.Unmarshal(awaitEvent(t, bob, "joined"), &joined))

	bob.Close()
	// The drop marks Bob disconnected.
	require.Eventually(t, func() bool {
		state, err := engine.Snapshot(gameID)
		if err != nil {
			return false
		}
		p, ok := state.Player("p2")
		return ok && !p.IsConnected
	}, 5*time.Second, 20*time.Millisecond)

	bob2 := dialRelay(t, srv)
	send(t, bob2, "resume", map[string]string{"token": joined.SessionToken})
	var restored struct {
		You struct {
			PlayerID string `json:"playerId"`
		} `json:"you"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, bob2, "game-state"), &restored))
	assert.Equal(t, "p2", restored.You.PlayerID)

	state, err := engine.Snapshot(gameID)
	require.NoError(t, err)
	p2, _ := state.Player("p2")
	assert.True(t, p2.IsConnected)
}

func TestRelay_ResumeUnknownToken(t *testing.T) {
	srv, _ := testRelay(t)
	conn := dialRelay(t, srv)

	send(t, conn, "resume", map[string]string{"token": "bogus"})
	var errReply struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, conn, "error"), &errReply))
	assert.Equal(t, "session_not_found", errReply.Code)
}

// setupStartedGame creates a two-player game with both connections
// seated and the game started.
func setupStartedGame(t *testing.T, alice, bob *websocket.Conn) string {
	t.Helper()

	send(t, alice, "create-game", game.CreateParams{
		Name:        "integration",
		DeckCardIDs: deckOf(20),
		Players: []game.PlayerSeed{
			{UserID: "p1", Username: "Alice"},
			{UserID: "p2", Username: "Bob"},
		},
	})
	var created struct {
		Game struct {
			GameID string `json:"gameId"`
		} `json:"game"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, alice, "game-created"), &created))
	gameID := created.Game.GameID

	// Seats exist from creation; joining binds the connections to them.
	send(t, alice, "join-game", map[string]any{
		"gameId": gameID,
		"player": map[string]string{"userId": "p1", "username": "Alice"},
	})
	awaitEvent(t, alice, "joined")
	send(t, bob, "join-game", map[string]any{
		"gameId": gameID,
		"player": map[string]string{"userId": "p2", "username": "Bob"},
	})
	awaitEvent(t, bob, "joined")

	send(t, alice, "start-game", map[string]string{"gameId": gameID})
	awaitEvent(t, alice, "game-started")
	return gameID
}
