package game

import "math/rand"

// Deck is an ordered draw pile plus a discard pile of card ids. The top
// of the draw pile is the end of the slice. Together with player hands,
// the three containers always hold the deck's original card multiset:
// drawing never duplicates or loses a card.
type Deck struct {
	DrawPile    []string `json:"drawPile"`
	DiscardPile []string `json:"discardPile"`
}

// NewDeck builds a deck containing exactly the given ids, shuffled
// uniformly (Fisher-Yates), with an empty discard pile.
func NewDeck(cardIDs []string, rng *rand.Rand) Deck {
	pile := make([]string, len(cardIDs))
	copy(pile, cardIDs)
	shuffle(pile, rng)
	return Deck{DrawPile: pile, DiscardPile: []string{}}
}

func shuffle(ids []string, rng *rand.Rand) {
	for i := len(ids) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// Draw removes up to n cards from the top of the draw pile. When the
// draw pile runs short and the discard pile is non-empty, the discard
// pile is shuffled in before drawing continues. Fewer than n cards are
// returned only when the deck as a whole is exhausted; that is a normal
// condition, not an error.
func (d *Deck) Draw(n int, rng *rand.Rand) []string {
	drawn := make([]string, 0, n)
	for len(drawn) < n {
		if len(d.DrawPile) == 0 {
			if len(d.DiscardPile) == 0 {
				break
			}
			d.DrawPile = d.DiscardPile
			d.DiscardPile = []string{}
			shuffle(d.DrawPile, rng)
		}
		top := len(d.DrawPile) - 1
		drawn = append(drawn, d.DrawPile[top])
		d.DrawPile = d.DrawPile[:top]
	}
	return drawn
}

// Discard places the given ids on the discard pile.
func (d *Deck) Discard(ids ...string) {
	d.DiscardPile = append(d.DiscardPile, ids...)
}

// Remaining returns the total number of cards still in the deck.
func (d *Deck) Remaining() int {
	return len(d.DrawPile) + len(d.DiscardPile)
}

// Clone returns a deep copy of the deck.
func (d Deck) Clone() Deck {
	draw := make([]string, len(d.DrawPile))
	copy(draw, d.DrawPile)
	discard := make([]string, len(d.DiscardPile))
	copy(discard, d.DiscardPile)
	return Deck{DrawPile: draw, DiscardPile: discard}
}
