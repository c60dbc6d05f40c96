package npc

import (
	"strings"

	"github.com/tidwall/gjson"

	"cookduel/card"
	"cookduel/kitchen"
)

// Verb 决策动作
type Verb string

const (
	VerbDraw Verb = "DRAW"
	VerbWild Verb = "WILD"
	VerbCook Verb = "COOK"
	VerbTap  Verb = "TAP"
	VerbEnd  Verb = "END"
	VerbPass Verb = "PASS"
)

var verbAliases = map[string]Verb{
	"DRAW":       VerbDraw,
	"WILD":       VerbWild,
	"PLAY_WILD":  VerbWild,
	"COOK":       VerbCook,
	"START_COOK": VerbCook,
	"TAP":        VerbTap,
	"END":        VerbEnd,
	"END_TURN":   VerbEnd,
	"PASS":       VerbPass,
}

// Decision is the structured intent an oracle returns.
type Decision struct {
	Action          Verb              `json:"action"`
	TargetID        string            `json:"targetId,omitempty"`
	IngredientIDs   []string          `json:"ingredientIds,omitempty"`
	WildAssignments map[string]string `json:"wildAssignments,omitempty"`
}

func PassDecision() Decision { return Decision{Action: VerbPass} }

// ParseDecision reads an oracle reply. Replies often wrap the JSON object in prose or
// code fences, so the outermost {...} span is used. Anything unreadable becomes PASS.
func ParseDecision(raw string) Decision {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return PassDecision()
	}
	body := raw[start : end+1]
	if !gjson.Valid(body) {
		return PassDecision()
	}

	verb, ok := verbAliases[strings.ToUpper(strings.TrimSpace(gjson.Get(body, "action").String()))]
	if !ok {
		return PassDecision()
	}
	d := Decision{
		Action:   verb,
		TargetID: gjson.Get(body, "targetId").String(),
	}
	for _, id := range gjson.Get(body, "ingredientIds").Array() {
		if id.Type == gjson.String && id.Str != "" {
			d.IngredientIDs = append(d.IngredientIDs, id.Str)
		}
	}
	gjson.Get(body, "wildAssignments").ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.String {
			return true
		}
		if d.WildAssignments == nil {
			d.WildAssignments = make(map[string]string)
		}
		d.WildAssignments[k.String()] = v.Str
		return true
	})
	return d
}

// ToAction turns a decision into an action for seat. The result is not trusted:
// a bad target or missing ingredient is rejected by kitchen.Apply.
func (d Decision) ToAction(s *kitchen.State, seat int, nowMs int64) kitchen.Action {
	switch d.Action {
	case VerbDraw:
		return kitchen.Draw(seat, nowMs)
	case VerbWild:
		effect := card.EffectNone
		if c, ok := s.Players[seat].Hand.Find(d.TargetID); ok {
			effect = c.Effect
		}
		return kitchen.PlayWild(seat, d.TargetID, effect)
	case VerbCook:
		return kitchen.StartCook(seat, d.TargetID, d.IngredientIDs, d.WildAssignments)
	case VerbTap:
		return kitchen.Tap(seat)
	case VerbEnd:
		if s.Rules.TurnPolicy == kitchen.TurnPolicyTurns {
			return kitchen.EndTurn(seat)
		}
		return kitchen.Pass(seat)
	default:
		return kitchen.Pass(seat)
	}
}
