package npc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookduel/card"
	"cookduel/kitchen"
)

func TestParseDecision(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Decision
	}{
		{"empty", "", PassDecision()},
		{"not json", "I think I will cook the sushi", PassDecision()},
		{"broken json", `{"action":"COOK",`, PassDecision()},
		{"unknown verb", `{"action":"FLAMBE"}`, PassDecision()},
		{"bare draw", `{"action":"draw"}`, Decision{Action: VerbDraw}},
		{
			"fenced cook",
			"Sure!\n```json\n{\"action\":\"START_COOK\",\"targetId\":\"o4#1\",\"ingredientIds\":[\"i11#1\",\"w1#1\",7],\"wildAssignments\":{\"w1#1\":\"Lemon\",\"x\":3}}\n```",
			Decision{
				Action:          VerbCook,
				TargetID:        "o4#1",
				IngredientIDs:   []string{"i11#1", "w1#1"},
				WildAssignments: map[string]string{"w1#1": "Lemon"},
			},
		},
		{"end alias", `{"action":"END_TURN"}`, Decision{Action: VerbEnd}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseDecision(tc.raw))
		})
	}
}

func TestDecisionToActionIsStillValidated(t *testing.T) {
	s, err := kitchen.NewGame(kitchen.Config{Rules: kitchen.DefaultRules(), Seed: 11})
	require.NoError(t, err)

	// a hallucinated card id yields an action the reducer refuses
	a := Decision{Action: VerbWild, TargetID: "w9#9"}.ToAction(s, 1, 0)
	next, out := kitchen.Apply(s, a)
	assert.Error(t, out.Err)
	assert.Equal(t, s.Players, next.Players)

	a = Decision{Action: VerbCook, TargetID: s.ActiveOrders[0].ID}.ToAction(s, 1, 0)
	_, out = kitchen.Apply(s, a)
	assert.Error(t, out.Err)

	assert.Equal(t, kitchen.ActionPass, Decision{Action: VerbEnd}.ToAction(s, 1, 0).Type)
	assert.Equal(t, kitchen.ActionPass, Decision{}.ToAction(s, 1, 0).Type)
	assert.Equal(t, kitchen.ActionDraw, Decision{Action: VerbDraw}.ToAction(s, 1, 0).Type)
}

func TestDecisionToActionUsesCardEffect(t *testing.T) {
	s, err := kitchen.NewGame(kitchen.Config{Rules: kitchen.TurnRules(), Seed: 12})
	require.NoError(t, err)
	w, _ := card.Lookup("w4")
	w.ID = "w4#1"
	s.Players[0].Hand = card.List{w}

	a := Decision{Action: VerbWild, TargetID: "w4#1"}.ToAction(s, 0, 0)
	assert.Equal(t, card.EffectStun, a.Effect)
	assert.Equal(t, kitchen.ActionEndTurn, Decision{Action: VerbEnd}.ToAction(s, 0, 0).Type)
}
