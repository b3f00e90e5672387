package card

// Type classifies a card. The legacy client data uses
// politician/event/special for the same three categories.
type Type string

const (
	TypeAlly   Type = "ally"
	TypeAction Type = "action"
	TypePlot   Type = "plot"
)

// RevealPriority orders card types for effect resolution: allies resolve
// first, then actions, then plots. Unknown types resolve last.
func (t Type) RevealPriority() int {
	switch t {
	case TypeAlly:
		return 0
	case TypeAction:
		return 1
	case TypePlot:
		return 2
	default:
		return 3
	}
}

// Well-known tags inspected by the effect resolver.
const (
	TagPopulist   = "populist"
	TagDiplomat   = "diplomat"
	TagStrategist = "strategist"
)

// Card is an immutable card definition. Instances are created once at
// catalog load and shared read-only across all games.
type Card struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          Type     `json:"type"`
	Influence     *int     `json:"influence"` // nil means no base influence
	EffectText    string   `json:"effect"`    // legacy free-form descriptor
	Tags          []string `json:"tags"`
	CampaignValue int      `json:"campaignValue"`

	// Effects is parsed from EffectText at catalog load.
	Effects []Effect `json:"-"`
}

// BaseInfluence returns the card's base influence, treating an absent
// value as zero.
func (c Card) BaseInfluence() int {
	if c.Influence == nil {
		return 0
	}
	return *c.Influence
}

// HasTag reports whether the card carries the given tag.
func (c Card) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
