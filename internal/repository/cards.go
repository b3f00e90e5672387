package repository

import (
	"context"
	"fmt"

	"github.com/politicalpower/power-server-go/internal/card"
)

// CardRepository reads the card catalog from PostgreSQL.
type CardRepository struct {
	db *DB
}

// NewCardRepository creates a card repository.
func NewCardRepository(db *DB) *CardRepository {
	return &CardRepository{db: db}
}

// ListCards returns every card in the cards table.
func (r *CardRepository) ListCards(ctx context.Context) ([]card.Card, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, name, card_type, influence, effect, tags, campaign_value
		FROM cards
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []card.Card
	for rows.Next() {
		var (
			c         card.Card
			cardType  string
			influence *int
			tags      []string
		)
		if err := rows.Scan(&c.ID, &c.Name, &cardType, &influence, &c.EffectText, &tags, &c.CampaignValue); err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		c.Type = card.Type(cardType)
		c.Influence = influence
		c.Tags = tags
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card rows: %w", err)
	}
	return cards, nil
}

// LoadCatalog builds the in-memory catalog from the database.
func (r *CardRepository) LoadCatalog(ctx context.Context) (*card.Catalog, error) {
	cards, err := r.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	return card.NewCatalog(cards)
}
