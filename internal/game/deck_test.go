package game

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func TestNewDeck_ContainsExactlyGivenCards(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	d := NewDeck(ids, testRNG())

	assert.Len(t, d.DrawPile, 5)
	assert.Empty(t, d.DiscardPile)
	assert.Equal(t, sortedCopy(ids), sortedCopy(d.DrawPile))
}

func TestDeck_DrawReducesPile(t *testing.T) {
	d := NewDeck([]string{"a", "b", "c", "d", "e"}, testRNG())
	rng := testRNG()

	drawn := d.Draw(2, rng)
	require.Len(t, drawn, 2)
	assert.Len(t, d.DrawPile, 3)
	assert.Equal(t, 3, d.Remaining())
}

func TestDeck_DrawReshufflesDiscard(t *testing.T) {
	// Draw pile holds 2, discard holds 3; drawing 4 must reshuffle the
	// discard and deliver all 4.
	d := Deck{
		DrawPile:    []string{"c1", "c2"},
		DiscardPile: []string{"c3", "c4", "c5"},
	}
	rng := testRNG()

	drawn := d.Draw(4, rng)
	require.Len(t, drawn, 4)
	assert.Len(t, d.DrawPile, 1)
	assert.Empty(t, d.DiscardPile)

	// Conservation: drawn + remaining pile is the original multiset.
	all := append(append([]string{}, drawn...), d.DrawPile...)
	assert.Equal(t, []string{"c1", "c2", "c3", "c4", "c5"}, sortedCopy(all))
}

func TestDeck_DrawExhausted(t *testing.T) {
	d := Deck{DrawPile: []string{"only"}, DiscardPile: []string{}}
	rng := testRNG()

	drawn := d.Draw(3, rng)
	assert.Equal(t, []string{"only"}, drawn)
	assert.Equal(t, 0, d.Remaining())

	// Fully exhausted deck yields nothing, no error.
	assert.Empty(t, d.Draw(1, rng))
}

func TestDeck_DiscardFeedsFutureDraws(t *testing.T) {
	d := NewDeck([]string{"a", "b"}, testRNG())
	rng := testRNG()

	first := d.Draw(2, rng)
	require.Len(t, first, 2)
	d.Discard(first...)

	second := d.Draw(2, rng)
	assert.Len(t, second, 2)
	assert.Equal(t, sortedCopy(first), sortedCopy(second))
}

func TestDeck_CloneIsIndependent(t *testing.T) {
	d := NewDeck([]string{"a", "b", "c"}, testRNG())
	clone := d.Clone()

	d.Draw(1, testRNG())
	assert.Len(t, clone.DrawPile, 3)
}
