package kitchen

import (
	"encoding/json"
	"fmt"

	"cookduel/card"
)

// Action 动作消息. It is a tagged union keyed by Type and carries everything a remote
// replica needs to replay it; receivers never fill in fields from their own state.
type Action struct {
	Type              ActionType        `json:"type"`
	PlayerID          int               `json:"playerId"`
	CardID            string            `json:"cardId,omitempty"`
	Effect            card.Effect       `json:"effect,omitempty"`
	OrderID           string            `json:"orderId,omitempty"`
	IngredientCardIDs []string          `json:"ingredientCardIds,omitempty"`
	WildAssignments   map[string]string `json:"wildAssignments,omitempty"`
	AtMs              int64             `json:"atMs,omitempty"`
	State             *State            `json:"state,omitempty"`
}

func Draw(pid int, atMs int64) Action {
	return Action{Type: ActionDraw, PlayerID: pid, AtMs: atMs}
}

func PlayWild(pid int, cardID string, effect card.Effect) Action {
	return Action{Type: ActionWild, PlayerID: pid, CardID: cardID, Effect: effect}
}

func StartCook(pid int, orderID string, cardIDs []string, assignments map[string]string) Action {
	return Action{
		Type:              ActionStartCook,
		PlayerID:          pid,
		OrderID:           orderID,
		IngredientCardIDs: cardIDs,
		WildAssignments:   assignments,
	}
}

func Tap(pid int) Action { return Action{Type: ActionTap, PlayerID: pid} }

func Recovery(pid int) Action { return Action{Type: ActionRecovery, PlayerID: pid} }

func EndTurn(pid int) Action { return Action{Type: ActionEndTurn, PlayerID: pid} }

func Pass(pid int) Action { return Action{Type: ActionPass, PlayerID: pid} }

// SyncState wraps a full snapshot for bootstrapping a joining peer.
func SyncState(pid int, s *State) Action {
	return Action{Type: ActionSyncState, PlayerID: pid, State: s.Clone()}
}

// Validate checks the shape of the action without looking at any game state.
func (a Action) Validate() error {
	if !validPlayer(a.PlayerID) {
		return fmt.Errorf("%w: player %d", ErrInvalidAction, a.PlayerID)
	}
	switch a.Type {
	case ActionDraw, ActionTap, ActionRecovery, ActionEndTurn, ActionPass:
		return nil
	case ActionWild:
		if a.CardID == "" {
			return fmt.Errorf("%w: WILD without cardId", ErrInvalidAction)
		}
		if _, ok := card.EffectDictionary[a.Effect]; !ok {
			return fmt.Errorf("%w: WILD effect %s", ErrInvalidAction, a.Effect)
		}
		return nil
	case ActionStartCook:
		if a.OrderID == "" {
			return fmt.Errorf("%w: START_COOK needs orderId", ErrInvalidAction)
		}
		return nil
	case ActionSyncState:
		if a.State == nil {
			return fmt.Errorf("%w: SYNC_STATE without state", ErrInvalidAction)
		}
		if err := a.State.check(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAction, a.Type)
	}
}

func EncodeAction(a Action) ([]byte, error) {
	return json.Marshal(a)
}

// DecodeAction parses a wire action. Unknown types decode fine and are rejected by Apply.
func DecodeAction(data []byte) (Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}
	return a, nil
}
