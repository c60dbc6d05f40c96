package npc

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"cookduel/card"
	"cookduel/kitchen"
)

// RuleBrain makes decisions based on a PersonalityProfile with tunable parameters.
type RuleBrain struct {
	Persona *ChefPersona

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRuleBrain creates a RuleBrain from a persona definition.
func NewRuleBrain(persona *ChefPersona, seed int64) *RuleBrain {
	return &RuleBrain{
		Persona: persona,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (b *RuleBrain) Name() string { return b.Persona.Name }

// Decide implements Oracle. It never fails.
func (b *RuleBrain) Decide(_ context.Context, view View) (Decision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.decide(view), nil
}

func (b *RuleBrain) decide(view View) Decision {
	p := b.Persona.Brain
	aggression := clamp01(p.Aggression + (b.rng.Float64()-0.5)*p.Randomness*0.4)
	greed := clamp01(p.Greed + (b.rng.Float64()-0.5)*p.Randomness*0.4)

	if view.Over || !view.MyTurn {
		return PassDecision()
	}
	if view.Stunned {
		return b.idle(view)
	}
	if view.Cooking != nil {
		return Decision{Action: VerbTap}
	}
	if view.TurnBased && view.Phase == kitchen.PhaseDraw.String() {
		return Decision{Action: VerbDraw}
	}

	if d, ok := b.attack(view, aggression); ok {
		return d
	}

	plans := planOrders(view)
	if len(plans) > 0 {
		best := plans[0]
		if greed > 0.5 {
			sort.SliceStable(plans, func(i, j int) bool { return plans[i].points > plans[j].points })
			best = plans[0]
		}
		// hoarders skip cheap dishes while the pile still has cards
		if !(best.points <= 10 && view.CanDraw && b.rng.Float64() < p.Hoarding*0.5) {
			return Decision{
				Action:          VerbCook,
				TargetID:        best.orderID,
				IngredientIDs:   best.ids,
				WildAssignments: best.assignments,
			}
		}
	}

	if chaos, ok := findEffect(view.Hand, card.EffectChaos); ok && len(plans) == 0 && b.rng.Float64() < aggression {
		return Decision{Action: VerbWild, TargetID: chaos.ID}
	}
	if buff, ok := findEffect(view.Hand, card.EffectBuff); ok && view.DrawPileSize > 0 {
		return Decision{Action: VerbWild, TargetID: buff.ID}
	}
	if view.CanDraw {
		return Decision{Action: VerbDraw}
	}
	return b.idle(view)
}

// attack picks a hostile wild when the moment is right.
func (b *RuleBrain) attack(view View, aggression float64) (Decision, bool) {
	if b.rng.Float64() >= aggression {
		return Decision{}, false
	}
	if c, ok := findEffect(view.Hand, card.EffectStun); ok && view.OpponentCooking {
		return Decision{Action: VerbWild, TargetID: c.ID}, true
	}
	if view.OpponentHandSize == 0 {
		return Decision{}, false
	}
	if c, ok := findEffect(view.Hand, card.EffectShowdown); ok && bestRank(view.Hand) >= card.RankA {
		return Decision{Action: VerbWild, TargetID: c.ID}, true
	}
	if c, ok := findEffect(view.Hand, card.EffectTargeted); ok && view.OpponentHandSize >= 3 {
		return Decision{Action: VerbWild, TargetID: c.ID}, true
	}
	if c, ok := findEffect(view.Hand, card.EffectSabotage); ok {
		return Decision{Action: VerbWild, TargetID: c.ID}, true
	}
	return Decision{}, false
}

func (b *RuleBrain) idle(view View) Decision {
	if view.TurnBased {
		return Decision{Action: VerbEnd}
	}
	return PassDecision()
}

type plan struct {
	orderID     string
	points      int
	ids         []string
	assignments map[string]string
}

// planOrders lists every unclaimed order the hand can cook, in market order.
func planOrders(view View) []plan {
	var out []plan
	for _, o := range view.ActiveOrders {
		if o.Locked() {
			continue
		}
		ids, assign, ok := kitchen.PlanRecipe(o, view.Hand)
		if !ok {
			continue
		}
		out = append(out, plan{orderID: o.ID, points: o.Points, ids: ids, assignments: assign})
	}
	return out
}

func findEffect(hand card.List, effect card.Effect) (card.Card, bool) {
	for _, c := range hand {
		if c.IsWild() && c.Effect == effect {
			return c, true
		}
	}
	return card.Card{}, false
}

func bestRank(hand card.List) card.Rank {
	best := card.RankNone
	for _, c := range hand {
		if c.IsIngredient() && c.Rank > best {
			best = c.Rank
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
