package kitchen

import "fmt"

// PlayerCount 固定双人对局
const PlayerCount = 2

// NoPlayer marks an absent winner or owner.
const NoPlayer = -1

// Phase 游戏阶段
type Phase byte

const (
	PhaseLive    Phase = 1 // free-for-all, no turn gating
	PhaseDraw    Phase = 2
	PhaseAction  Phase = 3
	PhaseTapping Phase = 4
	PhaseOver    Phase = 5
)

var PhaseDictionary = map[Phase]string{
	PhaseLive:    "LIVE",
	PhaseDraw:    "DRAW",
	PhaseAction:  "ACTION",
	PhaseTapping: "TAPPING",
	PhaseOver:    "OVER",
}

// TurnPolicy 回合策略
type TurnPolicy byte

const (
	TurnPolicyFree  TurnPolicy = 1
	TurnPolicyTurns TurnPolicy = 2
)

var TurnPolicyDictionary = map[TurnPolicy]string{
	TurnPolicyFree:  "FREE",
	TurnPolicyTurns: "TURNS",
}

// ActionType 动作类型, carried verbatim as the "type" tag on the wire.
type ActionType string

const (
	ActionDraw      ActionType = "DRAW"
	ActionWild      ActionType = "WILD"
	ActionStartCook ActionType = "START_COOK"
	ActionTap       ActionType = "TAP"
	ActionRecovery  ActionType = "RECOVERY"
	ActionSyncState ActionType = "SYNC_STATE"
	ActionEndTurn   ActionType = "END_TURN"
	ActionPass      ActionType = "PASS"
)

func (p Phase) String() string {
	if s, ok := PhaseDictionary[p]; ok {
		return s
	}
	return fmt.Sprintf("Phase(%d)", byte(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	s, ok := PhaseDictionary[p]
	if !ok {
		return nil, fmt.Errorf("kitchen: unknown phase %d", byte(p))
	}
	return []byte(s), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for k, v := range PhaseDictionary {
		if v == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("kitchen: unknown phase %q", b)
}

func (t TurnPolicy) String() string {
	if s, ok := TurnPolicyDictionary[t]; ok {
		return s
	}
	return fmt.Sprintf("TurnPolicy(%d)", byte(t))
}

func (t TurnPolicy) MarshalText() ([]byte, error) {
	s, ok := TurnPolicyDictionary[t]
	if !ok {
		return nil, fmt.Errorf("kitchen: unknown turn policy %d", byte(t))
	}
	return []byte(s), nil
}

func (t *TurnPolicy) UnmarshalText(b []byte) error {
	for k, v := range TurnPolicyDictionary {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("kitchen: unknown turn policy %q", b)
}

// ParseTurnPolicy accepts the wire names, case-sensitive.
func ParseTurnPolicy(s string) (TurnPolicy, error) {
	var t TurnPolicy
	err := t.UnmarshalText([]byte(s))
	return t, err
}
