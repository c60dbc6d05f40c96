package kitchen

import (
	"fmt"

	"cookduel/card"
)

// Rules 对局规则. They travel inside the state so both replicas judge actions identically.
type Rules struct {
	TurnPolicy     TurnPolicy `json:"turnPolicy"`
	WinningScore   int        `json:"winningScore"`
	HandSize       int        `json:"handSize"`
	DrawCount      int        `json:"drawCount"`
	ActiveOrders   int        `json:"activeOrders"`
	BuffDraw       int        `json:"buffDraw"`
	StealCount     int        `json:"stealCount"`
	DrawCooldownMs int64      `json:"drawCooldownMs"`
}

// DefaultRules returns the standard real-time rules.
func DefaultRules() Rules {
	return Rules{
		TurnPolicy:     TurnPolicyFree,
		WinningScore:   100,
		HandSize:       5,
		DrawCount:      2,
		ActiveOrders:   3,
		BuffDraw:       2,
		StealCount:     2,
		DrawCooldownMs: 3000,
	}
}

// TurnRules returns the standard hot-seat rules.
func TurnRules() Rules {
	r := DefaultRules()
	r.TurnPolicy = TurnPolicyTurns
	r.DrawCooldownMs = 0
	return r
}

func (r Rules) Validate() error {
	if _, ok := TurnPolicyDictionary[r.TurnPolicy]; !ok {
		return fmt.Errorf("unknown turn policy %d", byte(r.TurnPolicy))
	}
	if r.WinningScore <= 0 {
		return fmt.Errorf("WinningScore must be > 0")
	}
	if r.HandSize < 0 || r.DrawCount <= 0 {
		return fmt.Errorf("invalid draw sizes: hand=%d draw=%d", r.HandSize, r.DrawCount)
	}
	if r.ActiveOrders <= 0 {
		return fmt.Errorf("ActiveOrders must be > 0")
	}
	if r.BuffDraw < 0 || r.StealCount < 0 {
		return fmt.Errorf("BuffDraw and StealCount must be >= 0")
	}
	if r.DrawCooldownMs < 0 {
		return fmt.Errorf("DrawCooldownMs must be >= 0")
	}
	return nil
}

// Config 开局参数
type Config struct {
	Rules Rules

	// Player display names; blanks fall back to "Player 1"/"Player 2".
	Names [PlayerCount]string

	// Optional decks; nil uses the standard catalog.
	Deck   card.List
	Orders card.List

	// RNG seed (0 => time-based)
	Seed int64
}

func (c Config) validate() error {
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	deck := c.Deck
	if deck == nil {
		deck = card.StandardDeck()
	}
	if need := c.Rules.HandSize * PlayerCount; len(deck) < need {
		return fmt.Errorf("deck has %d cards, need %d to deal", len(deck), need)
	}
	ids := make(map[string]struct{}, len(deck))
	for _, cd := range deck {
		if cd.IsOrder() {
			return fmt.Errorf("order %s found in draw deck", cd.ID)
		}
		if _, dup := ids[cd.ID]; dup {
			return fmt.Errorf("duplicate card id %s", cd.ID)
		}
		ids[cd.ID] = struct{}{}
	}
	for _, o := range c.Orders {
		if !o.IsOrder() || o.TapsRequired <= 0 {
			return fmt.Errorf("bad order card %s", o.ID)
		}
	}
	return nil
}
