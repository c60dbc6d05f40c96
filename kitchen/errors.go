package kitchen

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAction       = errors.New("invalid action")
	ErrGameOver            = errors.New("game already over")
	ErrNotYourTurn         = errors.New("action out of turn")
	ErrWrongPhase          = errors.New("action not allowed in this phase")
	ErrStunned             = errors.New("player is stunned")
	ErrCardNotInHand       = errors.New("card not in hand")
	ErrOrderNotActive      = errors.New("order not on the market")
	ErrOrderLocked         = errors.New("order already claimed")
	ErrSlotBusy            = errors.New("cooking slot busy")
	ErrMissingIngredients  = errors.New("missing ingredients")
	ErrUnassignedWildcard  = errors.New("wildcard has no assignment")
	ErrNotAnOrder          = errors.New("not an order card")
	ErrDrawCooldown        = errors.New("draw on cooldown")
	ErrWildcardNotPlayable = errors.New("wildcard is consumed by cooking")
	ErrEffectMismatch      = errors.New("effect does not match card")
)

// RuleError 规则拒绝: the action was well formed but illegal in the current state.
type RuleError struct {
	Action ActionType
	Player int
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s by player %d rejected: %v", e.Action, e.Player, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
