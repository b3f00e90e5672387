package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrUnknownCard is returned when a card id is not present in the
// catalog. Since decks and hands only ever contain catalog ids, hitting
// this from inside the engine indicates corrupt card data, not user
// input.
var ErrUnknownCard = errors.New("unknown card")

// Catalog is an immutable id-to-definition mapping shared read-only by
// every game.
type Catalog struct {
	byID map[string]Card
	ids  []string // insertion order, for deterministic listing
}

// NewCatalog builds a catalog from card definitions, parsing each card's
// legacy effect descriptor into tagged effects. Duplicate ids are a data
// error.
func NewCatalog(cards []Card) (*Catalog, error) {
	cat := &Catalog{byID: make(map[string]Card, len(cards))}
	for _, c := range cards {
		if c.ID == "" {
			return nil, fmt.Errorf("card %q has empty id", c.Name)
		}
		if _, dup := cat.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", c.ID)
		}
		c.Effects = ParseEffects(c.EffectText)
		cat.byID[c.ID] = c
		cat.ids = append(cat.ids, c.ID)
	}
	return cat, nil
}

// ByID looks up a card definition.
func (c *Catalog) ByID(id string) (Card, error) {
	def, ok := c.byID[id]
	if !ok {
		return Card{}, fmt.Errorf("%w: %s", ErrUnknownCard, id)
	}
	return def, nil
}

// Has reports whether the catalog contains the given id.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Len returns the number of card definitions.
func (c *Catalog) Len() int {
	return len(c.byID)
}

// IDs returns all card ids in load order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// LoadFile reads a catalog from a JSON array of card definitions.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(cards)
}
