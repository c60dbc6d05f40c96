package kitchen

import (
	"fmt"

	"cookduel/card"
)

const (
	msgTapStove   = "TAP THE STOVE!"
	msgDishServed = "DISH SERVED!"
)

// startCooking 开始烹饪: moves the selected cards out of hand and claims the order.
func startCooking(s *State, pid int, orderID string, cardIDs []string, assignments map[string]string) error {
	p := &s.Players[pid]
	if p.IsStunned {
		return ErrStunned
	}
	if !p.CookingSlot.Idle() {
		return ErrSlotBusy
	}
	idx := s.ActiveOrders.Index(orderID)
	if idx < 0 {
		return ErrOrderNotActive
	}
	order := s.ActiveOrders[idx]
	if order.Locked() {
		return ErrOrderLocked
	}

	selected := make([]card.Card, 0, len(cardIDs))
	seen := make(map[string]struct{}, len(cardIDs))
	for _, id := range cardIDs {
		if _, dup := seen[id]; dup {
			return ErrInvalidAction
		}
		seen[id] = struct{}{}
		c, ok := p.Hand.Find(id)
		if !ok {
			return ErrCardNotInHand
		}
		selected = append(selected, c)
	}
	if err := ValidateRecipe(order, selected, assignments); err != nil {
		return err
	}

	used, ok := p.Hand.Take(cardIDs)
	if !ok {
		return ErrInvalidState("hand changed during cook")
	}
	s.Discard.Add(used...)

	s.ActiveOrders[idx].LockedBy = pid
	claimed := s.ActiveOrders[idx].Clone()
	p.CookingSlot = CookingSlot{Order: &claimed}
	if s.Rules.TurnPolicy == TurnPolicyTurns {
		s.Phase = PhaseTapping
	}
	s.Message = msgTapStove
	return nil
}

// tap 点击灶台. An empty slot is a silent no-op: the bool reports whether anything changed.
func tap(s *State, pid int) (bool, error) {
	p := &s.Players[pid]
	if p.IsStunned {
		return false, ErrStunned
	}
	order := p.CookingSlot.Order
	if order == nil {
		return false, nil
	}
	p.CookingSlot.TapsDone++
	if p.CookingSlot.TapsDone < order.TapsRequired {
		return true, nil
	}
	serve(s, pid)
	return true, nil
}

// serve completes a dish atomically: credit, archive, clear, replace, judge the winner.
func serve(s *State, pid int) {
	p := &s.Players[pid]
	dish := *p.CookingSlot.Order
	dish.LockedBy = card.NoOwner

	p.Score += dish.Points
	p.CookedDishes.Add(dish)
	p.CookingSlot = CookingSlot{}

	s.ActiveOrders.Remove(dish.ID)
	s.ActiveOrders.Add(s.OrderDeck.PopFront(1)...)

	s.Message = fmt.Sprintf("%s +%d", msgDishServed, dish.Points)
	if s.Rules.TurnPolicy == TurnPolicyTurns {
		s.Phase = PhaseAction
	}
	if p.Score >= s.Rules.WinningScore {
		s.Winner = pid
		s.Phase = PhaseOver
		s.Message = fmt.Sprintf("%s wins with %d points!", p.Name, p.Score)
	}
}
