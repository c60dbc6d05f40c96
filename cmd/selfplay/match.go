package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cookduel/kitchen"
	"cookduel/kitchen/npc"
	"cookduel/peer"
	"cookduel/replay"
)

// idleLimit ends a seat's loop once it has passed for this long, e.g. on an empty deck.
const idleLimit = 15 * time.Second

type options struct {
	seed        int64
	policy      string
	chefs       [kitchen.PlayerCount]string
	personas    string
	think       time.Duration
	maxActions  int
	timeout     time.Duration
	relay       string
	oracle      string
	oracleKey   string
	oracleModel string
	tapePath    string
}

type result struct {
	sessionID string
	state     *kitchen.State
	tape      *replay.Tape
	actions   int
}

// play runs one match to game over, the action budget or ctx expiry, then checks the
// two replicas agree and the host's tape replays to the same state.
func play(ctx context.Context, opts options) (*result, error) {
	policy, err := kitchen.ParseTurnPolicy(opts.policy)
	if err != nil {
		return nil, err
	}
	rules := kitchen.DefaultRules()
	if policy == kitchen.TurnPolicyTurns {
		rules = kitchen.TurnRules()
	}

	brains, err := spawnBrains(opts)
	if err != nil {
		return nil, err
	}

	sessionID, transports, err := connect(ctx, opts, policy)
	if err != nil {
		return nil, err
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	// sessions outlive the play deadline so frames in flight still land
	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()
	var sessions [kitchen.PlayerCount]*peer.Session
	for seat := range sessions {
		cfg := peer.Config{
			SessionID: sessionID,
			Seat:      seat,
			Host:      seat == 0,
			Logger:    quiet,
		}
		if cfg.Host {
			cfg.Game = kitchen.Config{
				Rules: rules,
				Seed:  opts.seed,
				Names: [kitchen.PlayerCount]string{brains[0].Name(), brains[1].Name()},
			}
		}
		s, err := peer.New(cfg, transports[seat])
		if err != nil {
			return nil, err
		}
		defer s.Close()
		if err := s.Start(runCtx); err != nil {
			return nil, err
		}
		sessions[seat] = s
	}
	if err := waitFor(ctx, func() bool { return sessions[1].State() != nil }); err != nil {
		return nil, fmt.Errorf("joiner never received the deal: %w", err)
	}
	log.Printf("[SelfPlay] Session %s dealt (%s vs %s, %s)", sessionID, brains[0].Name(), brains[1].Name(), policy)

	var budget atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for seat := range sessions {
		g.Go(func() error {
			return drive(gctx, sessions[seat], seat, brains[seat], opts, &budget)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// let in-flight frames land before comparing replicas
	settle, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := waitFor(settle, func() bool {
		return replay.Converged(sessions[0].State(), sessions[1].State()) &&
			len(sessions[0].Tape().Entries) == len(sessions[1].Tape().Entries)
	}); err != nil {
		return nil, fmt.Errorf("replicas diverged:\n%s", replay.Diff(sessions[0].State(), sessions[1].State()))
	}

	st, tape := sessions[0].Snapshot()
	if err := replay.Verify(tape, sessions[1].State()); err != nil {
		return nil, err
	}
	return &result{sessionID: sessionID, state: st, tape: tape, actions: int(budget.Load())}, nil
}

func spawnBrains(opts options) ([kitchen.PlayerCount]npc.Oracle, error) {
	var out [kitchen.PlayerCount]npc.Oracle
	registry := npc.DefaultRegistry()
	if opts.personas != "" {
		if err := registry.LoadFromFile(opts.personas); err != nil {
			return out, err
		}
	}
	m := npc.NewManager(registry, opts.seed)
	for seat := range out {
		if seat == 1 && opts.oracle != "" {
			out[seat] = npc.WithFallback(npc.NewHTTPOracle(opts.oracle, opts.oracleKey, opts.oracleModel))
			continue
		}
		var b *npc.RuleBrain
		var err error
		switch opts.chefs[seat] {
		case "", "random":
			b, err = m.Random()
		default:
			b, err = m.Spawn(opts.chefs[seat])
		}
		if err != nil {
			return out, err
		}
		out[seat] = npc.WithFallback(b)
	}
	return out, nil
}

func connect(ctx context.Context, opts options, policy kitchen.TurnPolicy) (string, [kitchen.PlayerCount]peer.Transport, error) {
	if opts.relay == "" {
		a, b := peer.Pipe()
		return uuid.NewString(), [kitchen.PlayerCount]peer.Transport{a, b}, nil
	}
	return dialRelay(ctx, opts.relay, policy)
}

// drive feeds one seat's decisions into its session until the game ends.
func drive(ctx context.Context, s *peer.Session, seat int, brain npc.Oracle, opts options, budget *atomic.Int64) error {
	ticker := time.NewTicker(opts.think)
	defer ticker.Stop()
	lastMove := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.Done():
			return s.Err()
		case <-ticker.C:
		}
		st := s.State()
		if st.Phase == kitchen.PhaseOver || budget.Load() >= int64(opts.maxActions) {
			return nil
		}
		now := time.Now().UnixMilli()
		d, _ := brain.Decide(ctx, npc.BuildView(st, seat, now))
		if d.Action == npc.VerbPass {
			if time.Since(lastMove) > idleLimit {
				log.Printf("[SelfPlay] Seat %d has nothing to do, stopping", seat)
				return nil
			}
			continue
		}
		lastMove = time.Now()
		budget.Add(1)
		if _, err := s.Submit(ctx, d.ToAction(st, seat, now)); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("seat %d: %w", seat, err)
		}
	}
}

func waitFor(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
