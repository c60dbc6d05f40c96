package kitchen

import (
	"fmt"
	"math/rand"
	"time"

	"cookduel/card"
)

const (
	msgGameStart   = "Game Start! Draw cards."
	msgActionPhase = "Action Phase: Pick Order & Ingredients."
)

// NewGame 洗牌发牌, producing the baseline both replicas start from.
func NewGame(cfg Config) (*State, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("kitchen config: %w", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	deck := cfg.Deck.Clone()
	if deck == nil {
		deck = card.StandardDeck()
	}
	orders := cfg.Orders.Clone()
	if orders == nil {
		orders = card.StandardOrders()
	}
	for i := range orders {
		orders[i].LockedBy = card.NoOwner
	}
	deck.Shuffle(rng)
	orders.Shuffle(rng)

	s := &State{
		Rules:         cfg.Rules,
		CurrentPlayer: 0,
		Turn:          1,
		Winner:        NoPlayer,
		Message:       msgGameStart,
		Discard:       card.List{},
	}
	for i := range s.Players {
		name := cfg.Names[i]
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		s.Players[i] = Player{
			ID:           i,
			Name:         name,
			Hand:         deck.PopFront(cfg.Rules.HandSize),
			CookedDishes: card.List{},
		}
		if s.Players[i].Hand == nil {
			s.Players[i].Hand = card.List{}
		}
	}
	s.ActiveOrders = orders.PopFront(cfg.Rules.ActiveOrders)
	s.DrawPile = deck
	s.OrderDeck = orders

	if cfg.Rules.TurnPolicy == TurnPolicyTurns {
		s.Phase = PhaseDraw
	} else {
		s.Phase = PhaseLive
	}
	return s, nil
}
