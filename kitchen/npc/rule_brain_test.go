package npc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookduel/card"
	"cookduel/kitchen"
)

func calmPersona() *ChefPersona {
	return &ChefPersona{ID: "calm", Name: "CALM", Brain: PersonalityProfile{}}
}

func named(t *testing.T, name string, n int) card.Card {
	t.Helper()
	for _, c := range append(card.Ingredients(), card.Wilds()...) {
		if c.Name == name {
			c.ID = card.InstanceID(c.TemplateID, n)
			return c
		}
	}
	t.Fatalf("unknown card %q", name)
	return card.Card{}
}

func TestRuleBrainCooksWhatItCan(t *testing.T) {
	brain := NewRuleBrain(calmPersona(), 1)
	oj, _ := card.Lookup("o1")
	view := View{
		MyTurn:       true,
		Phase:        kitchen.PhaseLive.String(),
		Hand:         card.List{named(t, "Jeruk", 1), named(t, "Golden Apron", 1)},
		ActiveOrders: card.List{oj},
	}
	d, err := brain.Decide(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, VerbCook, d.Action)
	assert.Equal(t, "o1", d.TargetID)
	assert.Equal(t, map[string]string{"w1#1": "Es Batu"}, d.WildAssignments)
}

func TestRuleBrainTapsWhileCooking(t *testing.T) {
	brain := NewRuleBrain(calmPersona(), 1)
	oj, _ := card.Lookup("o1")
	d, _ := brain.Decide(context.Background(), View{MyTurn: true, Cooking: &oj})
	assert.Equal(t, VerbTap, d.Action)
}

func TestRuleBrainTurnFlow(t *testing.T) {
	brain := NewRuleBrain(calmPersona(), 1)
	ctx := context.Background()

	d, _ := brain.Decide(ctx, View{TurnBased: true, MyTurn: false})
	assert.Equal(t, VerbPass, d.Action)

	d, _ = brain.Decide(ctx, View{TurnBased: true, MyTurn: true, Phase: kitchen.PhaseDraw.String(), CanDraw: true})
	assert.Equal(t, VerbDraw, d.Action)

	d, _ = brain.Decide(ctx, View{TurnBased: true, MyTurn: true, Phase: kitchen.PhaseAction.String()})
	assert.Equal(t, VerbEnd, d.Action)

	d, _ = brain.Decide(ctx, View{TurnBased: true, MyTurn: true, Stunned: true, Phase: kitchen.PhaseDraw.String()})
	assert.Equal(t, VerbEnd, d.Action)
}

func TestAggressiveBrainStunsACookingOpponent(t *testing.T) {
	persona := &ChefPersona{ID: "mean", Name: "MEAN", Brain: PersonalityProfile{Aggression: 1}}
	brain := NewRuleBrain(persona, 3)
	view := View{
		MyTurn:           true,
		Hand:             card.List{named(t, "Power Outage", 1)},
		OpponentCooking:  true,
		OpponentHandSize: 2,
	}
	d, _ := brain.Decide(context.Background(), view)
	assert.Equal(t, Decision{Action: VerbWild, TargetID: "w4#1"}, d)
}

// Two brains playing through the reducer must finish or stall cleanly, never break invariants.
func TestBrainsPlayAFullGame(t *testing.T) {
	reg := DefaultRegistry()
	m := NewManager(reg, 99)
	a, err := m.Spawn("bu_rina")
	require.NoError(t, err)
	b, err := m.Spawn("rat_king")
	require.NoError(t, err)
	brains := [kitchen.PlayerCount]Oracle{a, b}

	for _, rules := range []kitchen.Rules{kitchen.DefaultRules(), kitchen.TurnRules()} {
		s, err := kitchen.NewGame(kitchen.Config{Rules: rules, Seed: 5})
		require.NoError(t, err)
		cards := s.CardCount()

		var now int64
		for step := 0; step < 3000 && !s.Over(); step++ {
			now += 400
			seat := step % kitchen.PlayerCount
			if rules.TurnPolicy == kitchen.TurnPolicyTurns {
				seat = s.CurrentPlayer
			}
			d, err := brains[seat].Decide(context.Background(), BuildView(s, seat, now))
			require.NoError(t, err)
			s, _ = kitchen.Apply(s, d.ToAction(s, seat, now))
			if s.Players[seat].IsStunned && rules.TurnPolicy == kitchen.TurnPolicyFree {
				s, _ = kitchen.Apply(s, kitchen.Recovery(seat))
			}
			require.Equal(t, cards, s.CardCount())
		}
		assert.Greater(t, s.Players[0].Score+s.Players[1].Score, 0, "somebody should have cooked")
	}
}

func TestWithFallbackTurnsErrorsIntoPass(t *testing.T) {
	o := WithFallback(failingOracle{})
	d, err := o.Decide(context.Background(), View{})
	require.NoError(t, err)
	assert.Equal(t, PassDecision(), d)
	assert.Equal(t, "failing", o.Name())
}

type failingOracle struct{}

func (failingOracle) Name() string { return "failing" }

func (failingOracle) Decide(context.Context, View) (Decision, error) {
	panic("model exploded")
}

func TestRegistryLoadFromJSON(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadFromJSON([]byte(`[{"id":"x","name":"X","brain":{"aggression":0.5}},{"name":"no id"}]`)))
	require.Len(t, r.All(), 1)
	assert.Equal(t, 0.5, r.Get("x").Brain.Aggression)
	assert.Error(t, r.LoadFromJSON([]byte(`{`)))

	_, err := NewManager(r, 1).Spawn("missing")
	assert.Error(t, err)
}

func TestManagerRandom(t *testing.T) {
	_, err := NewManager(NewRegistry(), 1).Random()
	assert.Error(t, err)

	reg := DefaultRegistry()
	picks := func(seed int64) []string {
		m := NewManager(reg, seed)
		var ids []string
		for i := 0; i < 6; i++ {
			b, err := m.Random()
			require.NoError(t, err)
			require.NotNil(t, reg.Get(b.Persona.ID))
			ids = append(ids, b.Persona.ID)
		}
		return ids
	}
	assert.Equal(t, picks(7), picks(7), "same seed, same chefs")
}
