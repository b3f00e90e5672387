package card

import "strings"

// EffectKind identifies a card effect. The legacy data encodes effects as
// substrings of a free-form descriptor; ParseEffects converts that into
// this closed set once, at the catalog-loading boundary, so the resolver
// can switch exhaustively instead of string-matching.
type EffectKind int

const (
	// EffectCoalitionBoost grants a flat influence bonus while the acting
	// player is in an active coalition.
	EffectCoalitionBoost EffectKind = iota
	// EffectMomentumShift raises the global momentum level by one.
	EffectMomentumShift
	// EffectBlockCoalition forbids coalition actions for the rest of the
	// round.
	EffectBlockCoalition
	// EffectMandateBonus grants the acting player one mandate.
	EffectMandateBonus
	// EffectBreakCoalition deactivates one active coalition chosen at
	// random.
	EffectBreakCoalition
	// EffectUnknown is any descriptor the parser does not recognize. The
	// resolver logs it as applied and otherwise ignores it, so card data
	// can evolve ahead of the engine.
	EffectUnknown
)

var effectKindNames = map[EffectKind]string{
	EffectCoalitionBoost: "COALITION_BOOST",
	EffectMomentumShift:  "MOMENTUM_SHIFT",
	EffectBlockCoalition: "BLOCK_COALITION",
	EffectMandateBonus:   "MANDATE_BONUS",
	EffectBreakCoalition: "BREAK_COALITION",
	EffectUnknown:        "UNKNOWN",
}

func (k EffectKind) String() string {
	if name, ok := effectKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Effect is a parsed card effect with its parameters.
type Effect struct {
	Kind   EffectKind
	Amount int    // bonus size for boosts, zero otherwise
	Token  string // original descriptor for EffectUnknown
}

// CoalitionBoostAmount is the flat bonus granted by coalition_boost.
const CoalitionBoostAmount = 2

// effectTokens maps legacy descriptor tokens to parsed effects, in the
// order the legacy resolver checked them.
var effectTokens = []struct {
	token  string
	effect Effect
}{
	{"coalition_boost", Effect{Kind: EffectCoalitionBoost, Amount: CoalitionBoostAmount}},
	{"momentum_shift", Effect{Kind: EffectMomentumShift}},
	{"block_coalition", Effect{Kind: EffectBlockCoalition}},
	{"mandate_bonus", Effect{Kind: EffectMandateBonus, Amount: 1}},
	{"break_coalition", Effect{Kind: EffectBreakCoalition}},
}

// ParseEffects extracts tagged effects from a legacy descriptor string.
// A descriptor may carry several tokens; each recognized token yields one
// effect. A non-empty descriptor with no recognized token yields a single
// EffectUnknown so the play still produces a log entry.
func ParseEffects(descriptor string) []Effect {
	trimmed := strings.TrimSpace(descriptor)
	if trimmed == "" {
		return nil
	}
	lower := strings.ToLower(trimmed)

	var effects []Effect
	for _, entry := range effectTokens {
		if strings.Contains(lower, entry.token) {
			effects = append(effects, entry.effect)
		}
	}
	if len(effects) == 0 {
		effects = append(effects, Effect{Kind: EffectUnknown, Token: trimmed})
	}
	return effects
}
