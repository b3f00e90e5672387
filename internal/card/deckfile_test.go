package card

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDeckFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.json")
	data := `{
		"id": "d1",
		"name": "Grassroots",
		"cards": ["c1", "c1", "c2", "c3"]
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	deck, err := LoadDeckFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Grassroots", deck.Name)
	assert.Equal(t, []string{"c1", "c1", "c2", "c3"}, deck.CardIDs())
}

func TestLoadDeckFile_Missing(t *testing.T) {
	_, err := LoadDeckFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestDeckFile_CardIDsFlattensSavedPiles(t *testing.T) {
	// A mid-game save carries the split piles instead of the flat list.
	deck := DeckFile{
		Name:        "Resumed",
		DrawPile:    []string{"c1", "c2"},
		DiscardPile: []string{"c3"},
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, deck.CardIDs())

	// The flat list wins when both are present.
	deck.Cards = []string{"c2"}
	assert.Equal(t, []string{"c2"}, deck.CardIDs())
}

func TestDeckFile_Validate(t *testing.T) {
	cat, err := NewCatalog(testCards())
	require.NoError(t, err)

	good := DeckFile{Name: "ok", Cards: []string{"c1", "c2", "c3"}}
	assert.NoError(t, good.Validate(cat))

	unknown := DeckFile{Name: "bad", Cards: []string{"c1", "ghost"}}
	err = unknown.Validate(cat)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCard)

	empty := DeckFile{Name: "empty"}
	assert.Error(t, empty.Validate(cat))
}
