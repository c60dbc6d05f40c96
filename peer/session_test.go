package peer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookduel/card"
	"cookduel/kitchen"
	"cookduel/kitchen/npc"
	"cookduel/replay"
)

const waitFor = 2 * time.Second

func startPair(t *testing.T, game kitchen.Config, stun time.Duration) (*Session, *Session) {
	t.Helper()
	a, b := Pipe()
	host, err := New(Config{
		SessionID:     "duel-1",
		Seat:          0,
		Host:          true,
		Game:          game,
		StunDuration:  stun,
		ThinkInterval: 10 * time.Millisecond,
	}, a)
	require.NoError(t, err)
	joiner, err := New(Config{
		SessionID:     "duel-1",
		Seat:          1,
		StunDuration:  stun,
		ThinkInterval: 10 * time.Millisecond,
	}, b)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = host.Close()
		_ = joiner.Close()
	})
	require.NoError(t, host.Start(ctx))
	require.NoError(t, joiner.Start(ctx))
	require.Eventually(t, func() bool { return joiner.State() != nil }, waitFor, 5*time.Millisecond)
	return host, joiner
}

func tapeLen(s *Session) int { return len(s.Tape().Entries) }

func TestPeersConverge(t *testing.T) {
	host, joiner := startPair(t, kitchen.Config{Rules: kitchen.DefaultRules(), Seed: 7}, time.Second)
	assert.Empty(t, replay.Diff(host.State(), joiner.State()), "joiner starts from the host's deal")

	ctx := context.Background()
	out, err := host.Submit(ctx, kitchen.Draw(0, 0))
	require.NoError(t, err)
	assert.True(t, out.Changed)

	out, err = joiner.Submit(ctx, kitchen.Draw(1, 0))
	require.NoError(t, err)
	assert.True(t, out.Changed)

	out, err = host.Submit(ctx, kitchen.Tap(0))
	require.NoError(t, err)
	assert.False(t, out.Changed)

	require.Eventually(t, func() bool {
		return tapeLen(host) == 3 && tapeLen(joiner) == 3
	}, waitFor, 5*time.Millisecond)

	hs, js := host.State(), joiner.State()
	assert.Empty(t, replay.Diff(hs, js))
	assert.Len(t, hs.Players[0].Hand, 7)
	assert.Len(t, hs.Players[1].Hand, 7)
	require.NoError(t, replay.Verify(joiner.Tape(), hs))
}

func TestSubmitGuards(t *testing.T) {
	host, _ := startPair(t, kitchen.Config{Rules: kitchen.DefaultRules(), Seed: 3}, time.Second)
	ctx := context.Background()

	_, err := host.Submit(ctx, kitchen.Draw(1, 0))
	assert.ErrorIs(t, err, ErrNotYourSeat)

	_, err = host.Submit(ctx, kitchen.SyncState(0, host.State()))
	assert.ErrorIs(t, err, kitchen.ErrInvalidAction)

	// rule rejections come back in the outcome
	out, err := host.Submit(ctx, kitchen.StartCook(0, "o1#1", []string{"nope#1"}, nil))
	require.NoError(t, err)
	assert.True(t, out.Rejected())
}

func TestUpdatesArriveInOrder(t *testing.T) {
	host, _ := startPair(t, kitchen.Config{Rules: kitchen.DefaultRules(), Seed: 17}, time.Second)

	var mu sync.Mutex
	var seqs []uint64
	host.OnUpdate(func(u Update) {
		if !u.Local {
			return
		}
		time.Sleep(time.Millisecond)
		mu.Lock()
		seqs = append(seqs, u.Entry.Seq)
		mu.Unlock()
	})
	host.OnUpdate(func(Update) { panic("bad hook") })

	ctx := context.Background()
	const n = 25
	for i := 0; i < n; i++ {
		_, err := host.Submit(ctx, kitchen.Pass(0))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seqs) == n
	}, waitFor, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < n; i++ {
		assert.Less(t, seqs[i-1], seqs[i], "update %d delivered out of order", i)
	}
}

func stunDeck(t *testing.T) card.List {
	t.Helper()
	stun, ok := card.Lookup("w4")
	require.True(t, ok)
	require.Equal(t, card.EffectStun, stun.Effect)
	deck := make(card.List, 0, 12)
	for n := 1; n <= 12; n++ {
		c := stun.Clone()
		c.ID = card.InstanceID("w4", n)
		deck = append(deck, c)
	}
	return deck
}

func TestStunnedSeatRecoversItself(t *testing.T) {
	game := kitchen.Config{Rules: kitchen.DefaultRules(), Seed: 11, Deck: stunDeck(t)}
	host, joiner := startPair(t, game, 100*time.Millisecond)

	var mu sync.Mutex
	var recovered []replay.Entry
	host.OnUpdate(func(u Update) {
		if u.Entry.Action.Type == kitchen.ActionRecovery {
			mu.Lock()
			recovered = append(recovered, u.Entry)
			mu.Unlock()
		}
	})

	stun := host.State().Players[0].Hand[0]
	out, err := host.Submit(context.Background(), kitchen.PlayWild(0, stun.ID, stun.Effect))
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.True(t, host.State().Players[1].IsStunned)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(recovered) == 1
	}, waitFor, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, recovered[0].Origin, "the stunned seat's own peer sends the recovery")
	mu.Unlock()
	assert.False(t, host.State().Players[1].IsStunned)
	require.Eventually(t, func() bool { return !joiner.State().Players[1].IsStunned }, waitFor, 5*time.Millisecond)
}

func TestJoinerWaitsForSnapshot(t *testing.T) {
	a, b := Pipe()
	joiner, err := New(Config{SessionID: "duel-2", Seat: 1, ThinkInterval: time.Hour}, a)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer joiner.Close()
	require.NoError(t, joiner.Start(ctx))

	hello, err := DecodeEnvelope(<-b.Frames())
	require.NoError(t, err)
	assert.Equal(t, FrameHello, hello.Kind)
	assert.Equal(t, 1, hello.Origin)

	_, err = joiner.Submit(ctx, kitchen.Draw(1, 0))
	assert.ErrorIs(t, err, ErrNotReady)

	game, err := kitchen.NewGame(kitchen.Config{Rules: kitchen.TurnRules(), Seed: 5})
	require.NoError(t, err)
	snap := kitchen.SyncState(0, game)
	frame := func(env Envelope) []byte {
		raw, err := EncodeEnvelope(env)
		require.NoError(t, err)
		return raw
	}

	require.NoError(t, b.Send(ctx, []byte("not json")))
	require.NoError(t, b.Send(ctx, frame(Envelope{Kind: FrameAction, SessionID: "other", Seq: 1, Origin: 0, Action: &snap})))
	require.NoError(t, b.Send(ctx, frame(Envelope{Kind: FrameAction, SessionID: "duel-2", Seq: 1, Origin: 1, Action: &snap})))
	require.NoError(t, b.Send(ctx, frame(Envelope{Kind: FrameAction, SessionID: "duel-2", Seq: 2, Origin: 0, Action: &snap})))

	require.Eventually(t, func() bool { return joiner.State() != nil }, waitFor, 5*time.Millisecond)
	assert.Empty(t, replay.Diff(game, joiner.State()))

	// seat 1 waits for seat 0's turn to end
	out, err := joiner.Submit(ctx, kitchen.Draw(1, 0))
	require.NoError(t, err)
	assert.ErrorIs(t, out.Err, kitchen.ErrNotYourTurn)

	sent, err := DecodeEnvelope(<-b.Frames())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sent.Seq, "the joiner's clock moves past every seq it has seen")
}

func TestOracleDrivesTheOtherSeat(t *testing.T) {
	persona := npc.DefaultRegistry().Get("chef_kenji")
	require.NotNil(t, persona)
	s, err := New(Config{
		SessionID:     "solo",
		Seat:          0,
		Host:          true,
		Game:          kitchen.Config{Rules: kitchen.DefaultRules(), Seed: 21},
		Opponent:      OpponentOracle,
		Oracle:        npc.NewRuleBrain(persona, 4),
		ThinkInterval: 5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer s.Close()
	require.NoError(t, s.Start(ctx))

	require.Eventually(t, func() bool {
		for _, e := range s.Tape().Entries {
			if e.Origin == 1 {
				return true
			}
		}
		return false
	}, waitFor, 5*time.Millisecond)

	_, err = s.Submit(ctx, kitchen.Tap(0))
	assert.NoError(t, err)
	st, tape := s.Snapshot()
	require.NoError(t, replay.Verify(tape, st))
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{Seat: 0}, nil)
	assert.Error(t, err, "human opponent without transport")

	_, err = New(Config{Seat: 2, Opponent: OpponentOracle, Host: true, Oracle: npc.NewRuleBrain(npc.DefaultRegistry().All()[0], 1)}, nil)
	assert.Error(t, err)

	_, err = New(Config{Seat: 1, Opponent: OpponentOracle}, nil)
	assert.Error(t, err)

	_, err = New(Config{Seat: 1, Opponent: OpponentOracle, Oracle: npc.NewRuleBrain(npc.DefaultRegistry().All()[0], 1)}, nil)
	assert.Error(t, err, "only the host seats an oracle")
}

func TestTransportLossEndsSession(t *testing.T) {
	a, b := Pipe()
	host, err := New(Config{SessionID: "duel-3", Seat: 0, Host: true, Game: kitchen.Config{Rules: kitchen.DefaultRules(), Seed: 1}}, a)
	require.NoError(t, err)
	require.NoError(t, host.Start(context.Background()))
	before := host.State()

	require.NoError(t, b.Close())
	select {
	case <-host.Done():
	case <-time.After(waitFor):
		t.Fatal("session kept running without a transport")
	}
	assert.ErrorIs(t, host.Err(), ErrClosed)
	assert.Equal(t, before, host.State())

	_, err = host.Submit(context.Background(), kitchen.Draw(0, 0))
	assert.ErrorIs(t, err, ErrSessionClosed)
}
