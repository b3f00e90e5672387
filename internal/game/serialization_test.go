package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checksumTestState() *GameState {
	return &GameState{
		GameID: "g1",
		Name:   "checksum game",
		Round:  2,
		Players: []*Player{
			{UserID: "p1", Username: "Alice", Hand: []string{"a", "b"}, Mandates: 1},
			{UserID: "p2", Username: "Bob", Hand: []string{"c"}, Influence: 3},
		},
		ActivePlayerID:   "p1",
		MomentumLevel:    2,
		PendingProposals: map[string]string{"p2": "p1"},
		Coalitions:       []Coalition{{Player1ID: "p1", Player2ID: "p2", RoundFormed: 1, Active: true}},
		CenterCards:      []*CenterCard{{PlayerID: "p1", CardID: "a", Position: 0}},
		Deck:             Deck{DrawPile: []string{"d", "e"}, DiscardPile: []string{"f"}},
	}
}

func TestChecksum_StableAcrossClones(t *testing.T) {
	g := checksumTestState()
	clone := g.Clone()

	assert.Equal(t, g.ComputeChecksum(), clone.ComputeChecksum())
	assert.True(t, clone.VerifyChecksum(g.ComputeChecksum()))
}

func TestChecksum_SensitiveToRulesState(t *testing.T) {
	g := checksumTestState()
	base := g.ComputeChecksum()

	mutations := []func(*GameState){
		func(s *GameState) { s.Players[0].Mandates++ },
		func(s *GameState) { s.Players[1].Hand = append(s.Players[1].Hand, "z") },
		func(s *GameState) { s.MomentumLevel++ },
		func(s *GameState) { s.Coalitions[0].Active = false },
		func(s *GameState) { s.Deck.DrawPile[0], s.Deck.DrawPile[1] = s.Deck.DrawPile[1], s.Deck.DrawPile[0] },
		func(s *GameState) { s.CenterCards[0].Revealed = true },
		func(s *GameState) { s.ActivePlayerID = "p2" },
		func(s *GameState) { delete(s.PendingProposals, "p2") },
	}
	for i, mutate := range mutations {
		mutated := g.Clone()
		mutate(mutated)
		assert.NotEqual(t, base.Hash, mutated.ComputeChecksum().Hash, "mutation %d must change the checksum", i)
	}
}

func TestChecksum_IgnoresLog(t *testing.T) {
	g := checksumTestState()
	base := g.ComputeChecksum()

	g.appendLog("p1", "a message that must not affect the checksum")
	assert.Equal(t, base, g.ComputeChecksum())
}

func TestChecksum_ProposalOrderIndependent(t *testing.T) {
	g := checksumTestState()
	g.PendingProposals = map[string]string{"p2": "p1", "p3": "p1", "p4": "p2"}
	base := g.ComputeChecksum()

	// Rebuild the map to force a different internal layout.
	rebuilt := g.Clone()
	rebuilt.PendingProposals = map[string]string{"p4": "p2", "p2": "p1", "p3": "p1"}
	assert.Equal(t, base, rebuilt.ComputeChecksum())
}

func TestChecksum_Version(t *testing.T) {
	g := checksumTestState()
	c := g.ComputeChecksum()
	require.NotEmpty(t, c.Hash)
	assert.Len(t, c.Hash, 64)
	assert.Equal(t, 1, c.Version)
}
