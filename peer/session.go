package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cookduel/kitchen"
	"cookduel/kitchen/npc"
	"cookduel/replay"
)

// OpponentKind says who sits in the other seat.
type OpponentKind string

const (
	OpponentHuman  OpponentKind = "HUMAN"
	OpponentOracle OpponentKind = "ORACLE"
)

const (
	DefaultStunDuration  = 4 * time.Second
	DefaultThinkInterval = 800 * time.Millisecond
	oracleTimeout        = 5 * time.Second
)

var (
	ErrSessionClosed = errors.New("peer: session closed")
	ErrNotReady      = errors.New("peer: waiting for SYNC_STATE")
	ErrNotYourSeat   = errors.New("peer: seat is not driven by this session")
)

// Config 会话配置
type Config struct {
	SessionID string
	// Seat is the seat this peer's human plays.
	Seat int
	// Host deals the game and answers the joiner's HELLO with a SYNC_STATE.
	Host bool
	Game kitchen.Config
	// StunDuration is how long a stunned seat waits before its RECOVERY in free play.
	StunDuration time.Duration
	Opponent     OpponentKind
	// Oracle drives the other seat locally when Opponent is ORACLE.
	Oracle        npc.Oracle
	ThinkInterval time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

func (c *Config) setDefaults() {
	if c.StunDuration <= 0 {
		c.StunDuration = DefaultStunDuration
	}
	if c.ThinkInterval <= 0 {
		c.ThinkInterval = DefaultThinkInterval
	}
	if c.Opponent == "" {
		c.Opponent = OpponentHuman
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) validate(t Transport) error {
	if c.Seat < 0 || c.Seat >= kitchen.PlayerCount {
		return fmt.Errorf("peer: invalid seat %d", c.Seat)
	}
	switch c.Opponent {
	case OpponentHuman:
		if t == nil {
			return errors.New("peer: a human opponent needs a transport")
		}
	case OpponentOracle:
		if c.Oracle == nil {
			return errors.New("peer: ORACLE opponent without an oracle")
		}
		if !c.Host {
			return errors.New("peer: only the host can seat an oracle")
		}
	default:
		return fmt.Errorf("peer: unknown opponent kind %q", c.Opponent)
	}
	return nil
}

// Update is handed to hooks after every entry that reached the replica.
type Update struct {
	State    *kitchen.State
	Entry    replay.Entry
	Outcome  kitchen.Outcome
	Local    bool
	Refolded bool
}

type UpdateHook func(Update)

type eventKind int

const (
	eventSubmit eventKind = iota
	eventOracle
	eventRecovery
)

type event struct {
	kind   eventKind
	action kitchen.Action
	resp   chan submitResult
}

type submitResult struct {
	out kitchen.Outcome
	err error
}

// Session owns one replica of a duel and keeps it in step with the other peer.
// All replica changes happen on a single goroutine, one event at a time.
type Session struct {
	cfg       Config
	transport Transport
	log       *slog.Logger

	mu      sync.RWMutex
	replica *replay.Log
	hooks   []UpdateHook
	err     error

	// updates waiting for the dispatcher, oldest first
	pendingMu sync.Mutex
	pending   []Update
	wake      chan struct{}

	// loop-owned
	clock      uint64
	remoteSeq  uint64
	answered   bool
	thinking   bool
	recovering map[int]*time.Timer

	events   chan event
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// New builds a session. transport may be nil for a local game against an oracle.
func New(cfg Config, transport Transport) (*Session, error) {
	cfg.setDefaults()
	if err := cfg.validate(transport); err != nil {
		return nil, err
	}
	if cfg.Oracle != nil {
		cfg.Oracle = npc.WithFallback(cfg.Oracle)
	}
	return &Session{
		cfg:        cfg,
		transport:  transport,
		log:        cfg.Logger.With("session", cfg.SessionID, "seat", cfg.Seat),
		replica:    replay.NewLog(nil),
		recovering: make(map[int]*time.Timer),
		events:     make(chan event, 64),
		done:       make(chan struct{}),
		wake:       make(chan struct{}, 1),
	}, nil
}

// Start deals (host) or asks for the snapshot (joiner) and runs the event loop
// until ctx ends, the transport goes away or Close is called.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("peer: session already started")
	}
	s.started = true
	s.mu.Unlock()

	if s.cfg.Host {
		st, err := kitchen.NewGame(s.cfg.Game)
		if err != nil {
			return fmt.Errorf("deal: %w", err)
		}
		snap, err := wireCopy(st)
		if err != nil {
			return err
		}
		if _, err := s.applyLocal(ctx, kitchen.SyncState(s.cfg.Seat, snap), false); err != nil {
			return err
		}
		s.log.Info("game dealt", "policy", snap.Rules.TurnPolicy.String(), "opponent", string(s.cfg.Opponent))
	} else {
		s.sendHello(ctx)
	}

	go s.dispatch()
	go s.run(ctx)
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer s.shutdown()

	var frames <-chan []byte
	if s.transport != nil {
		frames = s.transport.Frames()
	}
	ticker := time.NewTicker(s.cfg.ThinkInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ctx, ev)
		case frame, ok := <-frames:
			if !ok {
				s.log.Warn("transport closed")
				s.stop(ErrClosed)
				return
			}
			s.handleFrame(ctx, frame)
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			s.stop(ctx.Err())
			return
		case <-s.done:
			return
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, ev event) {
	switch ev.kind {
	case eventSubmit:
		out, err := s.applyLocal(ctx, ev.action, true)
		ev.resp <- submitResult{out: out, err: err}
	case eventOracle:
		s.thinking = false
		if ev.action.Type == kitchen.ActionPass {
			return
		}
		if _, err := s.applyLocal(ctx, ev.action, true); err != nil {
			s.log.Warn("oracle action dropped", "error", err)
		}
	case eventRecovery:
		seat := ev.action.PlayerID
		delete(s.recovering, seat)
		head := s.head()
		if head == nil || !head.Players[seat].IsStunned {
			return
		}
		if _, err := s.applyLocal(ctx, ev.action, true); err != nil {
			s.log.Warn("recovery dropped", "error", err)
		}
	}
}

// applyLocal stamps a with the next sequence number, applies it and sends it when send is set.
func (s *Session) applyLocal(ctx context.Context, a kitchen.Action, send bool) (kitchen.Outcome, error) {
	if a.Type != kitchen.ActionSyncState && s.head() == nil {
		return kitchen.Outcome{}, ErrNotReady
	}
	if a.Type == kitchen.ActionDraw {
		a.AtMs = s.nowMs()
	}
	s.clock++
	e := replay.Entry{Seq: s.clock, Origin: a.PlayerID, Action: a}
	res, err := s.append(e, true)
	if err != nil {
		return res.Outcome, err
	}
	if send && s.transport != nil {
		s.sendEntry(ctx, e)
	}
	s.compact()
	return res.Outcome, nil
}

func (s *Session) handleFrame(ctx context.Context, frame []byte) {
	framesTotal.WithLabelValues("in").Inc()
	env, err := DecodeEnvelope(frame)
	if err != nil {
		s.log.Warn("bad frame", "error", err)
		return
	}
	if env.SessionID != "" && env.SessionID != s.cfg.SessionID {
		s.log.Warn("frame for another session", "got", env.SessionID)
		return
	}

	switch env.Kind {
	case FrameHello:
		if !s.cfg.Host || s.answered {
			return
		}
		snap, err := wireCopy(s.head())
		if err != nil {
			s.log.Error("snapshot failed", "error", err)
			return
		}
		s.answered = true
		if _, err := s.applyLocal(ctx, kitchen.SyncState(s.cfg.Seat, snap), true); err != nil {
			s.log.Error("sync failed", "error", err)
		}
	case FrameAction:
		if env.Origin != kitchen.Opponent(s.cfg.Seat) || env.Action.PlayerID != env.Origin {
			s.log.Warn("frame from the wrong seat", "origin", env.Origin, "player", env.Action.PlayerID)
			return
		}
		if s.cfg.Host && env.Action.Type == kitchen.ActionSyncState {
			s.log.Warn("joiner tried to replace the host's game")
			return
		}
		if env.Seq > s.clock {
			s.clock = env.Seq
		}
		if env.Seq > s.remoteSeq {
			s.remoteSeq = env.Seq
		}
		if _, err := s.append(env.Entry(), false); err != nil {
			s.log.Warn("remote action dropped", "seq", env.Seq, "error", err)
			return
		}
		s.compact()
	}
}

func (s *Session) append(e replay.Entry, local bool) (replay.AppendResult, error) {
	s.mu.Lock()
	res, err := s.replica.Append(e)
	state := s.replica.State()
	s.mu.Unlock()

	origin := "remote"
	if local {
		origin = "local"
	}
	switch {
	case err != nil:
		actionsTotal.WithLabelValues(origin, "error").Inc()
		return res, err
	case res.Duplicate:
		actionsTotal.WithLabelValues(origin, "duplicate").Inc()
		return res, nil
	case res.Outcome.Rejected():
		actionsTotal.WithLabelValues(origin, "rejected").Inc()
	default:
		actionsTotal.WithLabelValues(origin, "applied").Inc()
	}
	if res.Refolded {
		refoldsTotal.Inc()
		s.log.Debug("refolded", "seq", e.Seq, "origin", e.Origin)
	}

	s.scheduleRecovery(state)
	s.notify(Update{State: state, Entry: e, Outcome: res.Outcome, Local: local, Refolded: res.Refolded})
	return res, nil
}

// compact folds the prefix no future frame can reorder: with a remote peer that is
// everything up to its last sequence number, alone it is everything.
func (s *Session) compact() {
	stable := s.remoteSeq
	if s.transport == nil {
		stable = s.clock
	}
	s.mu.Lock()
	s.replica.Compact(stable)
	s.mu.Unlock()
}

// scheduleRecovery starts a RECOVERY timer for every stunned seat this session drives.
// Turn-based games recover at the turn boundary instead.
func (s *Session) scheduleRecovery(st *kitchen.State) {
	if st == nil || st.Rules.TurnPolicy != kitchen.TurnPolicyFree {
		return
	}
	for seat := range st.Players {
		if !s.drives(seat) || !st.Players[seat].IsStunned || s.recovering[seat] != nil {
			continue
		}
		s.recovering[seat] = time.AfterFunc(s.cfg.StunDuration, func() {
			s.enqueue(event{kind: eventRecovery, action: kitchen.Recovery(seat)})
		})
	}
}

func (s *Session) tick(ctx context.Context) {
	if !s.cfg.Host && s.head() == nil {
		s.sendHello(ctx)
		return
	}
	if s.cfg.Opponent == OpponentOracle {
		s.think(ctx)
	}
}

// think asks the oracle for a move off the loop and feeds the answer back as an event.
func (s *Session) think(ctx context.Context) {
	head := s.head()
	if s.thinking || head == nil || head.Over() {
		return
	}
	seat := kitchen.Opponent(s.cfg.Seat)
	nowMs := s.nowMs()
	view := npc.BuildView(head, seat, nowMs)
	snap := head.Clone()
	s.thinking = true

	go func() {
		dctx, cancel := context.WithTimeout(ctx, oracleTimeout)
		defer cancel()
		d, err := s.cfg.Oracle.Decide(dctx, view)
		if err != nil {
			d = npc.PassDecision()
		}
		s.enqueue(event{kind: eventOracle, action: d.ToAction(snap, seat, nowMs)})
	}()
}

func (s *Session) sendHello(ctx context.Context) {
	if s.transport == nil {
		return
	}
	s.send(ctx, Envelope{Kind: FrameHello, SessionID: s.cfg.SessionID, Origin: s.cfg.Seat, SentAtMs: s.nowMs()})
}

func (s *Session) sendEntry(ctx context.Context, e replay.Entry) {
	a := e.Action
	s.send(ctx, Envelope{
		Kind:      FrameAction,
		SessionID: s.cfg.SessionID,
		Seq:       e.Seq,
		Origin:    e.Origin,
		SentAtMs:  s.nowMs(),
		Action:    &a,
	})
}

func (s *Session) send(ctx context.Context, env Envelope) {
	data, err := EncodeEnvelope(env)
	if err != nil {
		s.log.Error("encode frame", "error", err)
		return
	}
	if err := s.transport.Send(ctx, data); err != nil {
		s.log.Warn("send failed", "kind", string(env.Kind), "seq", env.Seq, "error", err)
		return
	}
	framesTotal.WithLabelValues("out").Inc()
}

func (s *Session) notify(u Update) {
	s.mu.RLock()
	n := len(s.hooks)
	s.mu.RUnlock()
	if n == 0 {
		return
	}
	s.pendingMu.Lock()
	s.pending = append(s.pending, u)
	s.pendingMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatch hands updates to the hooks one at a time, in the order the replica
// produced them. Updates queued before the session stopped are still delivered.
func (s *Session) dispatch() {
	for {
		if s.deliverPending() {
			continue
		}
		select {
		case <-s.wake:
		case <-s.done:
			s.deliverPending()
			return
		}
	}
}

func (s *Session) deliverPending() bool {
	s.pendingMu.Lock()
	batch := s.pending
	s.pending = nil
	s.pendingMu.Unlock()
	if len(batch) == 0 {
		return false
	}
	s.mu.RLock()
	hooks := append([]UpdateHook(nil), s.hooks...)
	s.mu.RUnlock()
	for _, u := range batch {
		for _, hook := range hooks {
			s.runHook(hook, u)
		}
	}
	return true
}

func (s *Session) runHook(hook UpdateHook, u Update) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("update hook panic", "panic", r)
		}
	}()
	hook(u)
}

func (s *Session) enqueue(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Submit applies an action for a seat this session drives and sends it to the other peer.
// A rule rejection is reported in the Outcome, not as an error.
func (s *Session) Submit(ctx context.Context, a kitchen.Action) (kitchen.Outcome, error) {
	if !s.drives(a.PlayerID) {
		return kitchen.Outcome{}, fmt.Errorf("%w: %d", ErrNotYourSeat, a.PlayerID)
	}
	if a.Type == kitchen.ActionSyncState {
		return kitchen.Outcome{}, fmt.Errorf("%w: SYNC_STATE is sent by the session itself", kitchen.ErrInvalidAction)
	}
	ev := event{kind: eventSubmit, action: a, resp: make(chan submitResult, 1)}
	select {
	case s.events <- ev:
	case <-s.done:
		return kitchen.Outcome{}, ErrSessionClosed
	case <-ctx.Done():
		return kitchen.Outcome{}, ctx.Err()
	}
	select {
	case r := <-ev.resp:
		return r.out, r.err
	case <-s.done:
		return kitchen.Outcome{}, ErrSessionClosed
	case <-ctx.Done():
		return kitchen.Outcome{}, ctx.Err()
	}
}

// OnUpdate registers a hook. Hooks run off the event loop on a single goroutine,
// so a slow hook delays later updates but never the replica.
func (s *Session) OnUpdate(hook UpdateHook) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, hook)
	s.mu.Unlock()
}

// State returns a copy of the replica, or nil before the first SYNC_STATE.
func (s *Session) State() *kitchen.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replica.State()
}

// Tape records the session since its last SYNC_STATE.
func (s *Session) Tape() *replay.Tape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replica.Tape(s.cfg.SessionID)
}

// Snapshot returns the replica and its tape as of the same moment.
func (s *Session) Snapshot() (*kitchen.State, *replay.Tape) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replica.State(), s.replica.Tape(s.cfg.SessionID)
}

func (s *Session) Seat() int { return s.cfg.Seat }

func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports why the session stopped.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Close stops the session and its transport.
func (s *Session) Close() error {
	s.stop(ErrSessionClosed)
	if s.transport != nil {
		return s.transport.Close()
	}
	return nil
}

func (s *Session) stop(reason error) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.err = reason
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Session) shutdown() {
	for seat, t := range s.recovering {
		t.Stop()
		delete(s.recovering, seat)
	}
	if s.transport != nil {
		_ = s.transport.Close()
	}
	s.log.Info("session stopped", "reason", s.Err())
}

func (s *Session) drives(seat int) bool {
	if seat == s.cfg.Seat {
		return true
	}
	return s.cfg.Opponent == OpponentOracle && seat == kitchen.Opponent(s.cfg.Seat)
}

// head is the live replica. Only the loop (and Start, before the loop) may call it.
func (s *Session) head() *kitchen.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replica.Head()
}

func (s *Session) nowMs() int64 { return s.cfg.Now().UnixMilli() }

// wireCopy runs st through its JSON encoding so the host keeps exactly what the joiner decodes.
func wireCopy(st *kitchen.State) (*kitchen.State, error) {
	if st == nil {
		return nil, ErrNotReady
	}
	raw, err := st.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return kitchen.DecodeState(raw)
}
