package kitchen

import (
	"fmt"
	"testing"

	"cookduel/card"
)

func blankState(rules Rules) *State {
	s := &State{
		Rules:   rules,
		Winner:  NoPlayer,
		Turn:    1,
		Discard: card.List{},
		Phase:   PhaseLive,
	}
	if rules.TurnPolicy == TurnPolicyTurns {
		s.Phase = PhaseDraw
	}
	for i := range s.Players {
		s.Players[i] = Player{
			ID:           i,
			Name:         fmt.Sprintf("P%d", i+1),
			Hand:         card.List{},
			CookedDishes: card.List{},
		}
	}
	return s
}

func ingredientCard(t *testing.T, name string, n int) card.Card {
	t.Helper()
	for _, c := range card.Ingredients() {
		if c.Name == name {
			c.ID = card.InstanceID(c.TemplateID, n)
			return c
		}
	}
	t.Fatalf("no ingredient named %q", name)
	return card.Card{}
}

func wildCard(t *testing.T, effect card.Effect, n int) card.Card {
	t.Helper()
	for _, c := range card.Wilds() {
		if c.Effect == effect {
			c.ID = card.InstanceID(c.TemplateID, n)
			return c
		}
	}
	t.Fatalf("no wild with effect %s", effect)
	return card.Card{}
}

func orderCard(t *testing.T, name string) card.Card {
	t.Helper()
	for _, c := range card.Orders() {
		if c.Name == name {
			c.ID = card.InstanceID(c.TemplateID, 1)
			return c
		}
	}
	t.Fatalf("no order named %q", name)
	return card.Card{}
}

// mustApply fails the test when a is rejected.
func mustApply(t *testing.T, s *State, a Action) *State {
	t.Helper()
	next, out := Apply(s, a)
	if out.Err != nil {
		t.Fatalf("%s rejected: %v (message %q)", a.Type, out.Err, next.Message)
	}
	return next
}

func tapN(t *testing.T, s *State, pid, n int) *State {
	t.Helper()
	for i := 0; i < n; i++ {
		s = mustApply(t, s, Tap(pid))
	}
	return s
}
