package kitchen

import (
	"encoding/json"
	"fmt"

	"cookduel/card"
)

// CookingSlot 玩家的灶台: an order being cooked plus accumulated taps.
type CookingSlot struct {
	Order    *card.Card `json:"order"`
	TapsDone int        `json:"tapsDone"`
}

func (s CookingSlot) Idle() bool { return s.Order == nil }

type Player struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Hand         card.List   `json:"hand"`
	CookedDishes card.List   `json:"cookedDishes"`
	Score        int         `json:"score"`
	IsStunned    bool        `json:"isStunned"`
	NextDrawAtMs int64       `json:"nextDrawAtMs"`
	CookingSlot  CookingSlot `json:"cookingSlot"`
}

// DrawCooldown returns the milliseconds left before the player may draw again.
func (p *Player) DrawCooldown(nowMs int64) int64 {
	if left := p.NextDrawAtMs - nowMs; left > 0 {
		return left
	}
	return 0
}

func (p *Player) clone() Player {
	out := *p
	out.Hand = p.Hand.Clone()
	out.CookedDishes = p.CookedDishes.Clone()
	if p.CookingSlot.Order != nil {
		o := p.CookingSlot.Order.Clone()
		out.CookingSlot.Order = &o
	}
	return out
}

// State 对局全量状态. Both peers hold one replica each; it changes only through Apply.
type State struct {
	Rules         Rules               `json:"rules"`
	Players       [PlayerCount]Player `json:"players"`
	DrawPile      card.List           `json:"drawPile"`
	OrderDeck     card.List           `json:"orderDeck"`
	ActiveOrders  card.List           `json:"activeOrders"`
	Discard       card.List           `json:"discard"`
	CurrentPlayer int                 `json:"currentPlayer"`
	Phase         Phase               `json:"phase"`
	Turn          int                 `json:"turn"`
	Message       string              `json:"message"`
	Winner        int                 `json:"winner"`
	Version       uint64              `json:"version"`
}

// Clone 深拷贝
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	for i := range s.Players {
		out.Players[i] = s.Players[i].clone()
	}
	out.DrawPile = s.DrawPile.Clone()
	out.OrderDeck = s.OrderDeck.Clone()
	out.ActiveOrders = s.ActiveOrders.Clone()
	out.Discard = s.Discard.Clone()
	return &out
}

func (s *State) Player(id int) *Player {
	if !validPlayer(id) {
		return nil
	}
	return &s.Players[id]
}

// Opponent 对手座位
func Opponent(id int) int { return 1 - id }

func (s *State) Over() bool { return s.Winner != NoPlayer }

// WinnerPlayer returns the winning player, or nil while the game runs.
func (s *State) WinnerPlayer() *Player {
	if !validPlayer(s.Winner) {
		return nil
	}
	return &s.Players[s.Winner]
}

// CardCount counts ingredient and wild cards across pile, hands and discard.
func (s *State) CardCount() int {
	n := len(s.DrawPile) + len(s.Discard)
	for i := range s.Players {
		n += len(s.Players[i].Hand)
	}
	return n
}

// OrderCount counts order cards wherever they sit.
func (s *State) OrderCount() int {
	n := len(s.OrderDeck) + len(s.ActiveOrders)
	for i := range s.Players {
		n += len(s.Players[i].CookedDishes)
	}
	return n
}

// Encode 序列化 (SYNC_STATE 快照)
func (s *State) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func DecodeState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// check rejects snapshots whose shape the reducer cannot work with.
func (s *State) check() error {
	if err := s.Rules.Validate(); err != nil {
		return ErrInvalidState(err.Error())
	}
	if !validPlayer(s.CurrentPlayer) {
		return ErrInvalidState(fmt.Sprintf("current player %d", s.CurrentPlayer))
	}
	if s.Winner != NoPlayer && !validPlayer(s.Winner) {
		return ErrInvalidState(fmt.Sprintf("winner %d", s.Winner))
	}
	if _, ok := PhaseDictionary[s.Phase]; !ok {
		return ErrInvalidState(fmt.Sprintf("phase %d", byte(s.Phase)))
	}
	for i := range s.Players {
		p := &s.Players[i]
		if p.ID != i {
			return ErrInvalidState(fmt.Sprintf("player %d carries id %d", i, p.ID))
		}
		if o := p.CookingSlot.Order; o != nil && (p.CookingSlot.TapsDone < 0 || p.CookingSlot.TapsDone >= o.TapsRequired) {
			return ErrInvalidState(fmt.Sprintf("player %d taps %d/%d", i, p.CookingSlot.TapsDone, o.TapsRequired))
		}
	}
	return nil
}

func validPlayer(id int) bool { return id >= 0 && id < PlayerCount }
