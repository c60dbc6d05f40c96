package npc

import (
	"context"

	"cookduel/card"
	"cookduel/kitchen"
)

// View is a read-only projection of the game state visible to the seat an oracle drives.
type View struct {
	Seat             int        `json:"seat"`
	Phase            string     `json:"phase"`
	TurnBased        bool       `json:"turnBased"`
	MyTurn           bool       `json:"myTurn"`
	Over             bool       `json:"over"`
	Stunned          bool       `json:"stunned"`
	CanDraw          bool       `json:"canDraw"`
	Score            int        `json:"score"`
	OpponentScore    int        `json:"opponentScore"`
	WinningScore     int        `json:"winningScore"`
	Hand             card.List  `json:"hand"`
	ActiveOrders     card.List  `json:"activeOrders"`
	Cooking          *card.Card `json:"cooking,omitempty"`
	TapsDone         int        `json:"tapsDone"`
	OpponentHandSize int        `json:"opponentHandSize"`
	OpponentCooking  bool       `json:"opponentCooking"`
	DrawPileSize     int        `json:"drawPileSize"`
}

// BuildView projects s for seat at local time nowMs.
func BuildView(s *kitchen.State, seat int, nowMs int64) View {
	me := s.Players[seat]
	opp := s.Players[kitchen.Opponent(seat)]
	turns := s.Rules.TurnPolicy == kitchen.TurnPolicyTurns

	v := View{
		Seat:             seat,
		Phase:            s.Phase.String(),
		TurnBased:        turns,
		MyTurn:           !turns || s.CurrentPlayer == seat,
		Over:             s.Over(),
		Stunned:          me.IsStunned,
		Score:            me.Score,
		OpponentScore:    opp.Score,
		WinningScore:     s.Rules.WinningScore,
		Hand:             me.Hand.Clone(),
		ActiveOrders:     s.ActiveOrders.Clone(),
		TapsDone:         me.CookingSlot.TapsDone,
		OpponentHandSize: len(opp.Hand),
		OpponentCooking:  !opp.CookingSlot.Idle(),
		DrawPileSize:     len(s.DrawPile),
	}
	if o := me.CookingSlot.Order; o != nil {
		c := o.Clone()
		v.Cooking = &c
	}
	if turns {
		v.CanDraw = v.MyTurn && s.Phase == kitchen.PhaseDraw && !me.IsStunned
	} else {
		v.CanDraw = !me.IsStunned && me.DrawCooldown(nowMs) == 0 && len(s.DrawPile) > 0
	}
	return v
}

// Oracle is the core interface every opponent implementation satisfies.
// Decisions are advisory: the reducer validates them like any human input.
type Oracle interface {
	// Decide is called whenever the driven seat may act.
	Decide(ctx context.Context, view View) (Decision, error)
	// Name returns a human-readable identifier for logs.
	Name() string
}
