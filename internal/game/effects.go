package game

import (
	"fmt"
	"math/rand"

	"github.com/politicalpower/power-server-go/internal/card"
	"github.com/politicalpower/power-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// momentumCap is the ceiling momentum_shift can raise the level to.
const momentumCap = 5

// momentumAllyThreshold: allies gain a bonus while momentum exceeds this.
const momentumAllyThreshold = 3

// EffectResolver turns a revealed card into a state delta: influence
// changes, mandate changes, coalition changes, momentum changes, and log
// entries. It never fails: unrecognized effects are logged no-ops so card
// data can evolve independently of the engine.
type EffectResolver struct {
	logger *zap.Logger
}

// NewEffectResolver creates a resolver.
func NewEffectResolver(logger *zap.Logger) *EffectResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EffectResolver{logger: logger}
}

// Apply resolves one revealed card for the given player, mutating the
// state in place and returning the events the application produced. The
// caller holds the game lock and is responsible for publishing.
func (r *EffectResolver) Apply(g *GameState, c card.Card, playerID string, rng *rand.Rand) []rules.Event {
	player, ok := g.Player(playerID)
	if !ok {
		// Center cards only reference joined players; reaching this is a
		// state-integrity bug, not a rules outcome.
		r.logger.Error("effect target player missing",
			zap.String("game_id", g.GameID),
			zap.String("player_id", playerID),
		)
		return nil
	}

	var events []rules.Event

	influence := c.BaseInfluence()
	influence += r.tagBonuses(g, c, playerID, &events)

	for _, eff := range c.Effects {
		switch eff.Kind {
		case card.EffectCoalitionBoost:
			if _, allied := g.ActiveCoalition(playerID); allied {
				influence += eff.Amount
				g.appendLog(playerID, fmt.Sprintf("%s gains +%d influence from coalition boost", player.Username, eff.Amount))
			}
		case card.EffectMomentumShift:
			if g.MomentumLevel < momentumCap {
				g.MomentumLevel++
				g.appendLog(playerID, fmt.Sprintf("momentum shifts to %d", g.MomentumLevel))
			} else {
				g.appendLog(playerID, fmt.Sprintf("momentum holds at %d", g.MomentumLevel))
			}
			ev := rules.NewEvent(rules.EventMomentumShifted, g.GameID, playerID)
			ev.Amount = g.MomentumLevel
			events = append(events, ev)
		case card.EffectBlockCoalition:
			g.BlockCoalitions = true
			g.appendLog(playerID, fmt.Sprintf("%s blocks coalitions for this round", player.Username))
			events = append(events, rules.NewEvent(rules.EventCoalitionsBlocked, g.GameID, playerID))
		case card.EffectMandateBonus:
			player.Mandates += eff.Amount
			g.appendLog(playerID, fmt.Sprintf("%s gains a mandate (%d total)", player.Username, player.Mandates))
			ev := rules.NewEvent(rules.EventMandateAwarded, g.GameID, playerID)
			ev.Amount = player.Mandates
			events = append(events, ev)
		case card.EffectBreakCoalition:
			events = append(events, r.breakRandomCoalition(g, playerID, rng)...)
		case card.EffectUnknown:
			// No-op by design: the play is acknowledged in the log with
			// zero additional effect.
			g.appendLog(playerID, fmt.Sprintf("%s applies %q", player.Username, eff.Token))
			r.logger.Debug("unknown effect token applied as no-op",
				zap.String("game_id", g.GameID),
				zap.String("card_id", c.ID),
				zap.String("token", eff.Token),
			)
		}
	}

	if influence != 0 {
		player.Influence += influence
	}
	g.appendLog(playerID, fmt.Sprintf("%s resolves %s for %d influence", player.Username, c.Name, influence))

	ev := rules.NewEvent(rules.EventEffectApplied, g.GameID, playerID)
	ev.CardID = c.ID
	ev.Amount = influence
	events = append(events, ev)
	return events
}

// tagBonuses computes the tag-conditional influence boosts. Each is
// additive and applied once per card play.
func (r *EffectResolver) tagBonuses(g *GameState, c card.Card, playerID string, events *[]rules.Event) int {
	bonus := 0
	if c.HasTag(card.TagPopulist) {
		bonus++
		g.appendLog(playerID, "populist appeal grants +1 influence")
	}
	if c.HasTag(card.TagDiplomat) && g.HasActiveCoalition() {
		bonus += 2
		g.appendLog(playerID, "diplomatic ties grant +2 influence")
	}
	if c.HasTag(card.TagStrategist) {
		b := g.Round
		if b > 2 {
			b = 2
		}
		bonus += b
		g.appendLog(playerID, fmt.Sprintf("strategic planning grants +%d influence", b))
	}
	if g.MomentumLevel > momentumAllyThreshold && c.Type == card.TypeAlly {
		bonus++
		g.appendLog(playerID, "high momentum grants +1 influence")
	}
	return bonus
}

// breakRandomCoalition deactivates one active coalition chosen uniformly
// at random. Both former partners lose one mandate, clamped at zero.
func (r *EffectResolver) breakRandomCoalition(g *GameState, actorID string, rng *rand.Rand) []rules.Event {
	var active []int
	for i, c := range g.Coalitions {
		if c.Active {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		g.appendLog(actorID, "the plot fizzles: no coalition to break")
		return nil
	}

	idx := active[rng.Intn(len(active))]
	g.Coalitions[idx].Active = false
	broken := g.Coalitions[idx]

	for _, id := range []string{broken.Player1ID, broken.Player2ID} {
		if p, ok := g.Player(id); ok && p.Mandates > 0 {
			p.Mandates--
		}
	}
	g.appendLog(actorID, fmt.Sprintf("the coalition between %s and %s is broken; both lose a mandate",
		broken.Player1ID, broken.Player2ID))

	ev := rules.NewEvent(rules.EventCoalitionBroken, g.GameID, broken.Player1ID)
	ev.TargetID = broken.Player2ID
	return []rules.Event{ev}
}
