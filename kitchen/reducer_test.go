package kitchen

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookduel/card"
)

func TestNewGameDeal(t *testing.T) {
	s, err := NewGame(Config{Rules: DefaultRules(), Seed: 42})
	require.NoError(t, err)

	deckSize := len(card.StandardDeck())
	assert.Equal(t, deckSize, s.CardCount())
	assert.Len(t, s.Players[0].Hand, 5)
	assert.Len(t, s.Players[1].Hand, 5)
	assert.Len(t, s.ActiveOrders, 3)
	assert.Len(t, s.OrderDeck, 5)
	assert.Equal(t, PhaseLive, s.Phase)
	assert.Equal(t, NoPlayer, s.Winner)
	assert.Equal(t, "Player 1", s.Players[0].Name)

	again, err := NewGame(Config{Rules: DefaultRules(), Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, s, again, "same seed must deal the same game")

	_, err = NewGame(Config{Rules: Rules{}})
	assert.Error(t, err)

	_, err = NewGame(Config{Rules: DefaultRules(), Deck: card.StandardDeck()[:3]})
	assert.Error(t, err)
}

func TestInvalidActionLeavesStateUntouched(t *testing.T) {
	s, err := NewGame(Config{Rules: DefaultRules(), Seed: 1})
	require.NoError(t, err)
	s.Message = "hello"
	before := s.Clone()

	for _, a := range []Action{
		{Type: "SHUFFLE", PlayerID: 0},
		{Type: ActionDraw, PlayerID: 2},
		{Type: ActionDraw, PlayerID: -1},
		{Type: ActionWild, PlayerID: 0},
		{Type: ActionWild, PlayerID: 0, CardID: "w1#1", Effect: card.Effect(99)},
		{Type: ActionStartCook, PlayerID: 0, IngredientCardIDs: []string{"i6#1"}},
		{Type: ActionSyncState, PlayerID: 0},
	} {
		next, out := Apply(s, a)
		assert.ErrorIs(t, out.Err, ErrInvalidAction, "type %q", a.Type)
		assert.Equal(t, before, next)
	}
	assert.Equal(t, before, s)
}

func TestApplyNeverMutatesInput(t *testing.T) {
	s, err := NewGame(Config{Rules: DefaultRules(), Seed: 9})
	require.NoError(t, err)
	before := s.Clone()
	_ = mustApply(t, s, Draw(0, 0))
	assert.Equal(t, before, s)
}

func TestSyncStateReplaces(t *testing.T) {
	a, err := NewGame(Config{Rules: DefaultRules(), Seed: 3})
	require.NoError(t, err)
	b, err := NewGame(Config{Rules: TurnRules(), Seed: 4})
	require.NoError(t, err)

	next, out := Apply(a, SyncState(0, b))
	require.NoError(t, out.Err)
	assert.Equal(t, b, next)

	// a joining peer has no state yet
	next, out = Apply(nil, SyncState(0, b))
	require.NoError(t, out.Err)
	assert.Equal(t, b, next)

	_, out = Apply(nil, Draw(0, 0))
	assert.Error(t, out.Err)
}

func TestDrawCooldown(t *testing.T) {
	s, err := NewGame(Config{Rules: DefaultRules(), Seed: 5})
	require.NoError(t, err)

	s = mustApply(t, s, Draw(0, 1000))
	assert.Len(t, s.Players[0].Hand, 7)
	assert.Equal(t, int64(4000), s.Players[0].NextDrawAtMs)
	assert.Equal(t, int64(1500), s.Players[0].DrawCooldown(2500))

	next, out := Apply(s, Draw(0, 3999))
	assert.ErrorIs(t, out.Err, ErrDrawCooldown)
	assert.Len(t, next.Players[0].Hand, 7)
	assert.Contains(t, next.Message, "Wait")

	// the other player has their own cooldown
	s = mustApply(t, s, Draw(1, 3999))
	s = mustApply(t, s, Draw(0, 4000))
	assert.Len(t, s.Players[0].Hand, 9)
}

func TestDrawFromEmptyPile(t *testing.T) {
	s := blankState(DefaultRules())
	next := mustApply(t, s, Draw(0, 0))
	assert.Empty(t, next.Players[0].Hand)
}

func TestTurnPhases(t *testing.T) {
	s := blankState(TurnRules())
	s.DrawPile = card.List{ingredientCard(t, "Jeruk", 1), ingredientCard(t, "Es Batu", 1), ingredientCard(t, "Beras", 1)}
	s.ActiveOrders = card.List{orderCard(t, "Orange Juice")}
	s.Players[1].Hand = card.List{wildCard(t, card.EffectStun, 1)}

	_, out := Apply(s, Draw(1, 0))
	assert.ErrorIs(t, out.Err, ErrNotYourTurn)

	_, out = Apply(s, StartCook(0, "o1#1", []string{"i6#1", "i14#1"}, nil))
	assert.ErrorIs(t, out.Err, ErrWrongPhase)

	s = mustApply(t, s, Draw(0, 0))
	assert.Equal(t, PhaseAction, s.Phase)
	assert.Equal(t, msgActionPhase, s.Message)

	next, out := Apply(s, Draw(0, 0))
	assert.ErrorIs(t, out.Err, ErrWrongPhase)
	assert.Contains(t, next.Message, "ACTION")

	s = mustApply(t, s, StartCook(0, "o1#1", []string{"i6#1", "i14#1"}, nil))
	assert.Equal(t, PhaseTapping, s.Phase)

	_, out = Apply(s, EndTurn(0))
	assert.ErrorIs(t, out.Err, ErrWrongPhase, "no ending the turn with food on the stove")

	s = tapN(t, s, 0, 5)
	assert.Equal(t, PhaseAction, s.Phase)
	assert.Equal(t, 10, s.Players[0].Score)

	s = mustApply(t, s, EndTurn(0))
	assert.Equal(t, 1, s.CurrentPlayer)
	assert.Equal(t, PhaseDraw, s.Phase)
	assert.Equal(t, 2, s.Turn)
	assert.Equal(t, "P2's Turn.", s.Message)
}

func TestTurnStunCostsOneTurn(t *testing.T) {
	s := blankState(TurnRules())
	s.DrawPile = card.List{ingredientCard(t, "Beras", 1), ingredientCard(t, "Telur", 1), ingredientCard(t, "Saus", 1)}
	s.Players[0].Hand = card.List{wildCard(t, card.EffectStun, 1)}

	s = mustApply(t, s, Draw(0, 0))
	s = mustApply(t, s, PlayWild(0, "w4#1", card.EffectStun))
	s = mustApply(t, s, EndTurn(0))
	require.True(t, s.Players[1].IsStunned)

	next, out := Apply(s, Draw(1, 0))
	assert.ErrorIs(t, out.Err, ErrStunned)
	assert.Equal(t, "STUNNED! Wait next turn.", next.Message)

	s = mustApply(t, s, EndTurn(1))
	assert.False(t, s.Players[1].IsStunned)
	assert.Equal(t, 0, s.CurrentPlayer)
}

func TestEndTurnRequiresTurnPolicy(t *testing.T) {
	s := blankState(DefaultRules())
	_, out := Apply(s, EndTurn(0))
	assert.ErrorIs(t, out.Err, ErrWrongPhase)

	next, out := Apply(s, Pass(1))
	assert.NoError(t, out.Err)
	assert.False(t, out.Changed)
	assert.Equal(t, s, next)
}

// randomAction picks a mostly-legal action for pid from the current state.
func randomAction(rng *rand.Rand, s *State, pid int, nowMs int64) Action {
	p := s.Players[pid]
	switch rng.Intn(7) {
	case 0:
		return Draw(pid, nowMs)
	case 1:
		if len(p.Hand) == 0 {
			return Tap(pid)
		}
		c := p.Hand[rng.Intn(len(p.Hand))]
		return PlayWild(pid, c.ID, c.Effect)
	case 2:
		for _, o := range s.ActiveOrders {
			if ids, assign, ok := PlanRecipe(o, p.Hand); ok {
				return StartCook(pid, o.ID, ids, assign)
			}
		}
		return Draw(pid, nowMs)
	case 3:
		return Recovery(pid)
	case 4:
		return EndTurn(pid)
	default:
		return Tap(pid)
	}
}

func checkInvariants(t *testing.T, s *State, cards, orders int) {
	t.Helper()
	require.Equal(t, cards, s.CardCount(), "card conservation")

	slotOrders := 0
	owners := map[string]int{}
	for i := range s.Players {
		p := s.Players[i]
		if o := p.CookingSlot.Order; o != nil {
			slotOrders++
			require.GreaterOrEqual(t, p.CookingSlot.TapsDone, 0)
			require.Less(t, p.CookingSlot.TapsDone, o.TapsRequired)
			idx := s.ActiveOrders.Index(o.ID)
			require.GreaterOrEqual(t, idx, 0, "cooking order must stay on the market")
			require.Equal(t, i, s.ActiveOrders[idx].LockedBy)
			owners[o.ID] = i
		} else {
			require.Equal(t, 0, p.CookingSlot.TapsDone)
		}
		if s.Winner == NoPlayer {
			require.Less(t, p.Score, s.Rules.WinningScore)
		}
	}
	locked := 0
	for _, o := range s.ActiveOrders {
		if o.Locked() {
			locked++
			require.Equal(t, owners[o.ID], o.LockedBy)
		}
	}
	require.Equal(t, slotOrders, locked)
	require.Equal(t, orders, s.OrderCount())
	if s.Winner != NoPlayer {
		require.GreaterOrEqual(t, s.Players[s.Winner].Score, s.Rules.WinningScore)
	}
}

func TestRandomPlayKeepsInvariants(t *testing.T) {
	for _, rules := range []Rules{DefaultRules(), TurnRules()} {
		for seed := int64(1); seed <= 20; seed++ {
			s, err := NewGame(Config{Rules: rules, Seed: seed})
			require.NoError(t, err)
			cards, orders := s.CardCount(), s.OrderCount()
			rng := rand.New(rand.NewSource(seed))

			var nowMs int64
			for step := 0; step < 400 && !s.Over(); step++ {
				nowMs += int64(rng.Intn(2000))
				pid := rng.Intn(PlayerCount)
				if rules.TurnPolicy == TurnPolicyTurns {
					pid = s.CurrentPlayer
				}
				next, out := Apply(s, randomAction(rng, s, pid, nowMs))
				if out.Err != nil {
					msg := next.Message
					next.Message = s.Message
					require.Equal(t, s, next, "rejection may only touch the message")
					next.Message = msg
				}
				s = next
				checkInvariants(t, s, cards, orders)
			}
		}
	}
}
