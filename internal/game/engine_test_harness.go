package game

import (
	"testing"

	"github.com/politicalpower/power-server-go/internal/card"
	"github.com/politicalpower/power-server-go/internal/game/rules"
)

// EngineTestHarness drives a game through the engine the way the relay
// would, with scripted dice so resolution outcomes are deterministic.
type EngineTestHarness struct {
	t      *testing.T
	Engine *Engine
	GameID string

	dice    []int
	diceIdx int
}

// harnessCatalog is a small fixed catalog for engine tests. "vanilla" is
// a 1-influence ally with no effect; decks of repeated vanillas make
// every play identical so tests can focus on flow, not card luck.
func harnessCatalog(t *testing.T) *card.Catalog {
	t.Helper()
	one := 1
	two := 2
	cat, err := card.NewCatalog([]card.Card{
		{ID: "vanilla", Name: "Backbencher", Type: card.TypeAlly, Influence: &one},
		{ID: "heavy", Name: "Power Broker", Type: card.TypeAlly, Influence: &two},
		{ID: "surge", Name: "Polling Surge", Type: card.TypeAction, Influence: &one, EffectText: "momentum_shift"},
		{ID: "expose", Name: "Exposé", Type: card.TypePlot, EffectText: "mandate_bonus"},
		{ID: "filibuster", Name: "Filibuster", Type: card.TypeAction, Influence: &one, EffectText: "block_coalition"},
		{ID: "leak", Name: "Press Leak", Type: card.TypePlot, EffectText: "break_coalition"},
	})
	if err != nil {
		t.Fatalf("harness catalog: %v", err)
	}
	return cat
}

// vanillaDeck returns n copies of the vanilla card id.
func vanillaDeck(n int) []string {
	deck := make([]string, n)
	for i := range deck {
		deck[i] = "vanilla"
	}
	return deck
}

// NewEngineTestHarness creates an engine with scripted dice, a game with
// the given players, and starts it. The deck defaults to 40 vanillas.
func NewEngineTestHarness(t *testing.T, playerIDs []string, dice ...int) *EngineTestHarness {
	return NewEngineTestHarnessWithParams(t, CreateParams{
		Name:        "test game",
		DeckCardIDs: vanillaDeck(40),
		Players:     seeds(playerIDs),
	}, dice...)
}

// NewEngineTestHarnessWithParams creates and starts a game with explicit
// creation parameters.
func NewEngineTestHarnessWithParams(t *testing.T, params CreateParams, dice ...int) *EngineTestHarness {
	t.Helper()
	h := &EngineTestHarness{t: t, dice: dice}
	h.Engine = NewEngine(harnessCatalog(t), DefaultSettings(), nil, Options{
		Seed: 1,
		Dice: h.nextDie,
	})

	state, err := h.Engine.CreateGame(params)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	h.GameID = state.GameID

	if _, err := h.Engine.Start(h.GameID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	return h
}

func seeds(playerIDs []string) []PlayerSeed {
	out := make([]PlayerSeed, len(playerIDs))
	for i, id := range playerIDs {
		out[i] = PlayerSeed{UserID: id, Username: id}
	}
	return out
}

// nextDie pops the next scripted roll, defaulting to 1 when the script
// runs out.
func (h *EngineTestHarness) nextDie() int {
	if h.diceIdx >= len(h.dice) {
		return 1
	}
	v := h.dice[h.diceIdx]
	h.diceIdx++
	return v
}

// State fetches the current snapshot.
func (h *EngineTestHarness) State() *GameState {
	h.t.Helper()
	state, err := h.Engine.Snapshot(h.GameID)
	if err != nil {
		h.t.Fatalf("snapshot: %v", err)
	}
	return state
}

// Apply submits an action, failing the test on rejection.
func (h *EngineTestHarness) Apply(act Action) *GameState {
	h.t.Helper()
	state, err := h.Engine.Apply(h.GameID, act)
	if err != nil {
		h.t.Fatalf("apply %s for %s: %v", act.Type, act.PlayerID, err)
	}
	return state
}

// ApplyExpectingError submits an action that must be rejected.
func (h *EngineTestHarness) ApplyExpectingError(act Action) error {
	h.t.Helper()
	_, err := h.Engine.Apply(h.GameID, act)
	if err == nil {
		h.t.Fatalf("expected %s for %s to be rejected", act.Type, act.PlayerID)
	}
	return err
}

// PlayFirst plays the first card in the player's hand.
func (h *EngineTestHarness) PlayFirst(playerID string) *GameState {
	h.t.Helper()
	p := h.player(playerID)
	if len(p.Hand) == 0 {
		h.t.Fatalf("player %s has an empty hand", playerID)
	}
	return h.Apply(Action{Type: ActionPlayCard, PlayerID: playerID, CardID: p.Hand[0]})
}

// EndTurn passes the player's turn.
func (h *EngineTestHarness) EndTurn(playerID string) *GameState {
	h.t.Helper()
	return h.Apply(Action{Type: ActionEndTurn, PlayerID: playerID})
}

// RevealAll processes the reveal phase in one step.
func (h *EngineTestHarness) RevealAll(playerID string) *GameState {
	h.t.Helper()
	return h.Apply(Action{Type: ActionProcessPhase, PlayerID: playerID})
}

// Roll rolls the dice for the player.
func (h *EngineTestHarness) Roll(playerID string) *GameState {
	h.t.Helper()
	return h.Apply(Action{Type: ActionRollDice, PlayerID: playerID})
}

func (h *EngineTestHarness) player(playerID string) *Player {
	h.t.Helper()
	p, ok := h.State().Player(playerID)
	if !ok {
		h.t.Fatalf("player %s not found", playerID)
	}
	return p
}

// AssertPhase fails unless the game is in the given phase.
func (h *EngineTestHarness) AssertPhase(expected rules.Phase) {
	h.t.Helper()
	if got := h.State().Phase; got != expected {
		h.t.Fatalf("expected phase %s, got %s", expected, got)
	}
}

// AssertActive fails unless the given player holds the turn.
func (h *EngineTestHarness) AssertActive(playerID string) {
	h.t.Helper()
	if got := h.State().ActivePlayerID; got != playerID {
		h.t.Fatalf("expected active player %s, got %s", playerID, got)
	}
}

// AssertMandates fails unless the player holds the expected mandates.
func (h *EngineTestHarness) AssertMandates(playerID string, expected int) {
	h.t.Helper()
	if got := h.player(playerID).Mandates; got != expected {
		h.t.Fatalf("expected %d mandates for %s, got %d", expected, playerID, got)
	}
}

// AssertRound fails unless the game is in the expected round.
func (h *EngineTestHarness) AssertRound(expected int) {
	h.t.Helper()
	if got := h.State().Round; got != expected {
		h.t.Fatalf("expected round %d, got %d", expected, got)
	}
}

// PlayRound takes every player through PLAY (first card), reveals, and
// rolls, consuming one scripted die per player.
func (h *EngineTestHarness) PlayRound(playerIDs []string) {
	h.t.Helper()
	for _, id := range playerIDs {
		h.PlayFirst(id)
	}
	h.RevealAll(playerIDs[0])
	for _, id := range playerIDs {
		h.Roll(id)
	}
}
