package kitchen

import (
	"errors"
	"fmt"
)

// Outcome 动作结果
type Outcome struct {
	// Changed is false for rejections and for accepted no-ops (PASS, TAP on an empty slot).
	Changed bool
	// ClearSelection tells the UI to drop its order/ingredient/wildcard selection.
	ClearSelection bool
	Err            error
}

func (o Outcome) Rejected() bool { return o.Err != nil }

// Apply 状态机入口: returns the next state for a. s is never modified.
//
// A structurally invalid action returns an unchanged copy. A well formed but illegal action
// returns a copy that differs only in Message, with Outcome.Err holding a *RuleError.
// Apply never panics.
func Apply(s *State, a Action) (next *State, out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			next = s.Clone()
			out = Outcome{Err: fmt.Errorf("%w: %s panicked: %v", ErrInvalidAction, a.Type, r)}
		}
	}()

	if err := a.Validate(); err != nil {
		return s.Clone(), Outcome{Err: err}
	}
	if a.Type == ActionSyncState {
		return a.State.Clone(), Outcome{Changed: true, ClearSelection: true}
	}
	if s == nil {
		return nil, Outcome{Err: ErrInvalidState("no game dealt")}
	}

	next = s.Clone()
	if err := reduce(next, a, &out); err != nil {
		rejected := s.Clone()
		rejected.Message = rejectionMessage(s, a, err)
		return rejected, Outcome{Err: &RuleError{Action: a.Type, Player: a.PlayerID, Err: err}}
	}
	if out.Changed {
		next.Version++
	}
	return next, out
}

func reduce(s *State, a Action, out *Outcome) error {
	if s.Over() {
		return ErrGameOver
	}
	turns := s.Rules.TurnPolicy == TurnPolicyTurns
	if turns && a.Type != ActionRecovery && a.Type != ActionPass && a.PlayerID != s.CurrentPlayer {
		return ErrNotYourTurn
	}
	p := &s.Players[a.PlayerID]

	switch a.Type {
	case ActionDraw:
		if turns && s.Phase != PhaseDraw {
			return ErrWrongPhase
		}
		if p.IsStunned {
			return ErrStunned
		}
		if !turns && a.AtMs < p.NextDrawAtMs {
			return ErrDrawCooldown
		}
		drawn := s.DrawPile.PopFront(s.Rules.DrawCount)
		p.Hand.Add(drawn...)
		if turns {
			s.Phase = PhaseAction
			s.Message = msgActionPhase
		} else {
			p.NextDrawAtMs = a.AtMs + s.Rules.DrawCooldownMs
			s.Message = fmt.Sprintf("%s drew %d cards.", p.Name, len(drawn))
		}
		out.Changed = true

	case ActionWild:
		if turns && s.Phase != PhaseAction {
			return ErrWrongPhase
		}
		if err := applyWild(s, a.PlayerID, a.CardID, a.Effect); err != nil {
			return err
		}
		out.Changed = true

	case ActionStartCook:
		if turns && s.Phase != PhaseAction {
			return ErrWrongPhase
		}
		if err := startCooking(s, a.PlayerID, a.OrderID, a.IngredientCardIDs, a.WildAssignments); err != nil {
			return err
		}
		out.Changed = true
		out.ClearSelection = true

	case ActionTap:
		if turns && s.Phase != PhaseTapping {
			return ErrWrongPhase
		}
		changed, err := tap(s, a.PlayerID)
		if err != nil {
			return err
		}
		out.Changed = changed

	case ActionRecovery:
		if !p.IsStunned {
			return nil
		}
		p.IsStunned = false
		s.Message = fmt.Sprintf("%s recovered!", p.Name)
		out.Changed = true

	case ActionEndTurn:
		if !turns || s.Phase == PhaseTapping {
			return ErrWrongPhase
		}
		// turn-boundary recovery: a stun costs the victim exactly one turn
		p.IsStunned = false
		s.CurrentPlayer = Opponent(a.PlayerID)
		s.Phase = PhaseDraw
		s.Turn++
		s.Message = fmt.Sprintf("%s's Turn.", s.Players[s.CurrentPlayer].Name)
		out.Changed = true
		out.ClearSelection = true

	case ActionPass:
		return nil

	default:
		return ErrInvalidAction
	}
	return nil
}

func rejectionMessage(s *State, a Action, err error) string {
	switch {
	case errors.Is(err, ErrStunned):
		if s.Rules.TurnPolicy == TurnPolicyTurns {
			return "STUNNED! Wait next turn."
		}
		return "STUNNED! Wait for the power to come back."
	case errors.Is(err, ErrMissingIngredients), errors.Is(err, ErrUnassignedWildcard):
		return "Missing ingredients!"
	case errors.Is(err, ErrOrderLocked):
		return "Order already taken!"
	case errors.Is(err, ErrDrawCooldown):
		left := s.Players[a.PlayerID].DrawCooldown(a.AtMs)
		return fmt.Sprintf("Wait %.1fs before drawing.", float64(left)/1000)
	case errors.Is(err, ErrNotYourTurn):
		return fmt.Sprintf("It's %s's turn.", s.Players[s.CurrentPlayer].Name)
	case errors.Is(err, ErrWrongPhase):
		return fmt.Sprintf("Can't %s during %s phase.", a.Type, s.Phase)
	case errors.Is(err, ErrGameOver):
		return "Game over! Start a new game."
	default:
		return fmt.Sprintf("%s rejected: %v", a.Type, err)
	}
}
