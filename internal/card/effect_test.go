package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEffects_EmptyDescriptor(t *testing.T) {
	assert.Empty(t, ParseEffects(""))
	assert.Empty(t, ParseEffects("   "))
}

func TestParseEffects_SingleTokens(t *testing.T) {
	tests := []struct {
		descriptor string
		kind       EffectKind
		amount     int
	}{
		{"coalition_boost", EffectCoalitionBoost, CoalitionBoostAmount},
		{"momentum_shift", EffectMomentumShift, 0},
		{"block_coalition", EffectBlockCoalition, 0},
		{"mandate_bonus", EffectMandateBonus, 1},
		{"break_coalition", EffectBreakCoalition, 0},
	}
	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			effects := ParseEffects(tt.descriptor)
			require.Len(t, effects, 1)
			assert.Equal(t, tt.kind, effects[0].Kind)
			assert.Equal(t, tt.amount, effects[0].Amount)
		})
	}
}

func TestParseEffects_MultipleTokensInOneDescriptor(t *testing.T) {
	effects := ParseEffects("block_coalition momentum_shift")
	require.Len(t, effects, 2)

	kinds := []EffectKind{effects[0].Kind, effects[1].Kind}
	assert.Contains(t, kinds, EffectBlockCoalition)
	assert.Contains(t, kinds, EffectMomentumShift)
}

func TestParseEffects_CaseInsensitive(t *testing.T) {
	effects := ParseEffects("Coalition_Boost")
	require.Len(t, effects, 1)
	assert.Equal(t, EffectCoalitionBoost, effects[0].Kind)
}

func TestParseEffects_ProseDescriptor(t *testing.T) {
	// Legacy card data embeds tokens in free text.
	effects := ParseEffects("grants a mandate_bonus when revealed")
	require.Len(t, effects, 1)
	assert.Equal(t, EffectMandateBonus, effects[0].Kind)
}

func TestParseEffects_UnknownDescriptor(t *testing.T) {
	effects := ParseEffects("summon_dragons")
	require.Len(t, effects, 1)
	assert.Equal(t, EffectUnknown, effects[0].Kind)
	assert.Equal(t, "summon_dragons", effects[0].Token)
}

func TestEffectKind_String(t *testing.T) {
	assert.Equal(t, "COALITION_BOOST", EffectCoalitionBoost.String())
	assert.Equal(t, "UNKNOWN", EffectUnknown.String())
}
