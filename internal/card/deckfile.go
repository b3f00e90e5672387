package card

import (
	"encoding/json"
	"fmt"
	"os"
)

// DeckFile mirrors the client-local deck persistence shape. Decks saved
// by the browser under the userDecks store deserialize into this struct
// and feed their card list into game creation.
type DeckFile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Cards       []string `json:"cards"`
	DrawPile    []string `json:"drawPile"`
	DiscardPile []string `json:"discardPile"`
}

// CardIDs flattens the deck back into a card id list. Fresh saves carry
// the full list in Cards; mid-game saves carry only the split piles, in
// which case both piles together are the deck.
func (f DeckFile) CardIDs() []string {
	if len(f.Cards) > 0 {
		out := make([]string, len(f.Cards))
		copy(out, f.Cards)
		return out
	}
	out := make([]string, 0, len(f.DrawPile)+len(f.DiscardPile))
	out = append(out, f.DrawPile...)
	out = append(out, f.DiscardPile...)
	return out
}

// Validate checks every card id in the deck against the catalog.
func (f DeckFile) Validate(cat *Catalog) error {
	ids := f.CardIDs()
	if len(ids) == 0 {
		return fmt.Errorf("deck %q has no cards", f.Name)
	}
	for _, id := range ids {
		if !cat.Has(id) {
			return fmt.Errorf("deck %q: %w: %s", f.Name, ErrUnknownCard, id)
		}
	}
	return nil
}

// LoadDeckFile reads one saved deck from a JSON file.
func LoadDeckFile(path string) (DeckFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DeckFile{}, fmt.Errorf("read deck: %w", err)
	}
	var deck DeckFile
	if err := json.Unmarshal(data, &deck); err != nil {
		return DeckFile{}, fmt.Errorf("parse deck: %w", err)
	}
	return deck, nil
}
