package kitchen

import (
	"fmt"

	"cookduel/card"
)

// applyWild 万能牌结算. The card leaves the actor's hand before its effect resolves;
// every effect degrades to a no-op when its target resource is missing.
func applyWild(s *State, pid int, cardID string, effect card.Effect) error {
	me := &s.Players[pid]
	if me.IsStunned {
		return ErrStunned
	}
	c, ok := me.Hand.Find(cardID)
	if !ok {
		return ErrCardNotInHand
	}
	if !c.IsWild() || c.Effect != effect {
		return ErrEffectMismatch
	}
	if c.Effect == card.EffectWildcard {
		return ErrWildcardNotPlayable
	}

	me.Hand.Remove(cardID)
	s.Discard.Add(c)

	opp := &s.Players[Opponent(pid)]
	msg := fmt.Sprintf("Played %s!", c.Name)

	switch c.Effect {
	case card.EffectStun:
		opp.IsStunned = true
		msg = fmt.Sprintf("%s: %s is stunned!", c.Name, opp.Name)
	case card.EffectSabotage:
		if lost, ok := opp.Hand.PopBack(); ok {
			s.Discard.Add(lost)
			msg = fmt.Sprintf("%s: %s lost %s.", c.Name, opp.Name, lost.Name)
		}
	case card.EffectBuff:
		drawn := s.DrawPile.PopFront(s.Rules.BuffDraw)
		me.Hand.Add(drawn...)
		msg = fmt.Sprintf("%s: drew %d cards.", c.Name, len(drawn))
	case card.EffectChaos:
		reshuffleMarket(s)
		msg = "Recipe Chaos!"
	case card.EffectTargeted:
		gone := opp.Hand.Extract(func(h card.Card) bool { return h.Name == c.Target })
		s.Discard.Add(gone...)
		msg = fmt.Sprintf("%s: %s discarded %d %s.", c.Name, opp.Name, len(gone), c.Target)
	case card.EffectShowdown:
		msg = showdown(s, pid, c.Name)
	case card.EffectWildcard, card.EffectNone:
		return ErrWildcardNotPlayable
	default:
		return fmt.Errorf("%w: effect %s", ErrInvalidAction, c.Effect)
	}
	s.Message = msg
	return nil
}

// reshuffleMarket 换单: unclaimed orders go to the bottom of the order deck and the same number
// is drawn from the top. Orders sitting in a cooking slot stay on the market.
func reshuffleMarket(s *State) {
	free := s.ActiveOrders.Extract(func(o card.Card) bool { return !o.Locked() })
	s.OrderDeck.Add(free...)
	s.ActiveOrders.Add(s.OrderDeck.PopFront(len(free))...)
}

// showdown 决斗: each side reveals its best ingredient (rank, then name, then id).
// The actor steals from the tail of the opponent's hand only on a strict win.
func showdown(s *State, pid int, wildName string) string {
	me, opp := &s.Players[pid], &s.Players[Opponent(pid)]
	mine, okMine := bestIngredient(me.Hand)
	theirs, okTheirs := bestIngredient(opp.Hand)
	if !okMine || !okTheirs {
		return fmt.Sprintf("%s: no duel.", wildName)
	}
	if !outranks(mine, theirs) {
		return fmt.Sprintf("%s: %s (%s) beats %s (%s).", wildName, opp.Name, theirs.Name, me.Name, mine.Name)
	}
	stolen := 0
	for stolen < s.Rules.StealCount {
		c, ok := opp.Hand.PopBack()
		if !ok {
			break
		}
		me.Hand.Add(c)
		stolen++
	}
	return fmt.Sprintf("%s: %s wins the duel and steals %d cards!", wildName, me.Name, stolen)
}

func bestIngredient(hand card.List) (card.Card, bool) {
	var best card.Card
	found := false
	for _, c := range hand {
		if !c.IsIngredient() {
			continue
		}
		if !found || outranks(c, best) {
			best, found = c, true
		}
	}
	return best, found
}

func outranks(a, b card.Card) bool {
	if a.Rank != b.Rank {
		return a.Rank > b.Rank
	}
	if a.Name != b.Name {
		return a.Name > b.Name
	}
	return a.ID > b.ID
}
