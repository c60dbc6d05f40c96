package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookduel/apps/server/internal/auth"
	"cookduel/apps/server/internal/codec"
	"cookduel/apps/server/internal/ledger"
	"cookduel/apps/server/internal/lobby"
	"cookduel/apps/server/internal/logger"
	"cookduel/kitchen"
	"cookduel/peer"
	"cookduel/replay"
)

const waitFor = 3 * time.Second

type relay struct {
	srv     *httptest.Server
	lobby   *lobby.Lobby
	gateway *Gateway
	ledger  ledger.Service
}

func newRelay(t *testing.T, allowedOrigins ...string) *relay {
	t.Helper()
	store, err := ledger.NewSQLiteService(":memory:")
	require.NoError(t, err)
	tickets := auth.NewManager(time.Minute)
	lby := lobby.New(lobby.Options{Logger: logger.Discard()}, tickets)
	gw := New(lby, tickets, store, allowedOrigins, logger.Discard())

	r := chi.NewRouter()
	r.Get("/ws", gw.HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
		_ = store.Close()
	})
	return &relay{srv: srv, lobby: lby, gateway: gw, ledger: store}
}

func (r *relay) wsURL(token string) string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http") + "/ws?token=" + token
}

func (r *relay) dial(t *testing.T, roomID string, seat int) peer.Transport {
	t.Helper()
	token, err := r.lobby.Join(roomID, seat, "")
	require.NoError(t, err)
	tr, err := peer.DialWebSocket(context.Background(), r.wsURL(token), nil, logger.Discard())
	require.NoError(t, err)
	return tr
}

func TestRelayPairsTwoPeers(t *testing.T) {
	rl := newRelay(t)
	room, err := rl.lobby.Create("duel", "", kitchen.TurnPolicyFree)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, err := peer.New(peer.Config{
		SessionID:     room.ID,
		Seat:          0,
		Host:          true,
		Game:          kitchen.Config{Rules: kitchen.DefaultRules(), Seed: 12},
		ThinkInterval: 10 * time.Millisecond,
		Logger:        logger.Discard(),
	}, rl.dial(t, room.ID, 0))
	require.NoError(t, err)
	defer host.Close()
	require.NoError(t, host.Start(ctx))

	// the joiner is not connected yet; this frame waits at the relay
	_, err = host.Submit(ctx, kitchen.Draw(0, 0))
	require.NoError(t, err)

	joiner, err := peer.New(peer.Config{
		SessionID:     room.ID,
		Seat:          1,
		ThinkInterval: 10 * time.Millisecond,
		Logger:        logger.Discard(),
	}, rl.dial(t, room.ID, 1))
	require.NoError(t, err)
	defer joiner.Close()
	require.NoError(t, joiner.Start(ctx))
	require.Eventually(t, func() bool { return joiner.State() != nil }, waitFor, 10*time.Millisecond)

	out, err := joiner.Submit(ctx, kitchen.Draw(1, 0))
	require.NoError(t, err)
	assert.True(t, out.Changed)

	require.Eventually(t, func() bool {
		return replay.Converged(host.State(), joiner.State()) &&
			len(host.State().Players[1].Hand) == len(joiner.State().Players[1].Hand)
	}, waitFor, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(host.State().Players[1].Hand) == kitchen.DefaultRules().HandSize+kitchen.DefaultRules().DrawCount
	}, waitFor, 10*time.Millisecond)

	info, ok := rl.lobby.Get(room.ID)
	require.True(t, ok)
	assert.Equal(t, [2]bool{true, true}, info.Seats)

	recs, err := rl.ledger.GetFrames(ctx, room.ID)
	require.NoError(t, err)
	tape, err := codec.TapeFromFrames(room.ID, ledger.Frames(recs))
	require.NoError(t, err)
	require.NoError(t, replay.Verify(tape, host.State()))

	// losing one seat ends the room
	require.NoError(t, host.Close())
	select {
	case <-joiner.Done():
	case <-time.After(waitFor):
		t.Fatal("joiner kept running after the host left")
	}
	require.Eventually(t, func() bool {
		_, ok := rl.lobby.Get(room.ID)
		return !ok && rl.gateway.Rooms() == 0
	}, waitFor, 10*time.Millisecond)
}

func TestRelayRejectsBadTickets(t *testing.T) {
	rl := newRelay(t)
	room, err := rl.lobby.Create("duel", "", kitchen.TurnPolicyTurns)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(rl.wsURL("forged"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := rl.lobby.Join(room.ID, 0, "")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(rl.wsURL(token), nil)
	require.NoError(t, err)
	defer conn.Close()

	// tickets are single-use
	_, resp, err = websocket.DefaultDialer.Dial(rl.wsURL(token), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// a seat holds one connection
	_, err = rl.lobby.Join(room.ID, 0, "")
	assert.ErrorIs(t, err, lobby.ErrSeatTaken)
}

func TestRelayChecksOrigin(t *testing.T) {
	rl := newRelay(t, "https://kitchen.example")
	room, err := rl.lobby.Create("duel", "", kitchen.TurnPolicyFree)
	require.NoError(t, err)
	host, err := rl.lobby.Join(room.ID, 0, "")
	require.NoError(t, err)
	guest, err := rl.lobby.Join(room.ID, 1, "")
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(rl.wsURL(host), http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// the rejected attempt did not spend the ticket
	a, _, err := websocket.DefaultDialer.Dial(rl.wsURL(host), http.Header{"Origin": {"https://Kitchen.example"}})
	require.NoError(t, err)
	defer a.Close()

	b, _, err := websocket.DefaultDialer.Dial(rl.wsURL(guest), http.Header{"Origin": {rl.srv.URL}})
	require.NoError(t, err, "same host is always allowed")
	defer b.Close()
}

func TestRelayDropsForeignFrames(t *testing.T) {
	rl := newRelay(t)
	room, err := rl.lobby.Create("duel", "", kitchen.TurnPolicyFree)
	require.NoError(t, err)

	dialRaw := func(seat int) *websocket.Conn {
		token, err := rl.lobby.Join(room.ID, seat, "")
		require.NoError(t, err)
		conn, _, err := websocket.DefaultDialer.Dial(rl.wsURL(token), nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	a, b := dialRaw(0), dialRaw(1)

	tap := kitchen.Tap(1)
	send := func(env peer.Envelope) {
		raw, err := peer.EncodeEnvelope(env)
		require.NoError(t, err)
		require.NoError(t, a.WriteMessage(websocket.TextMessage, raw))
	}
	send(peer.Envelope{Kind: peer.FrameAction, SessionID: room.ID, Seq: 1, Origin: 1, Action: &tap})
	send(peer.Envelope{Kind: peer.FrameAction, SessionID: "elsewhere", Seq: 1, Origin: 0, Action: &tap})
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("garbage")))
	send(peer.Envelope{Kind: peer.FrameHello, SessionID: room.ID, Origin: 0})

	require.NoError(t, b.SetReadDeadline(time.Now().Add(waitFor)))
	_, got, err := b.ReadMessage()
	require.NoError(t, err)
	env, err := peer.DecodeEnvelope(got)
	require.NoError(t, err)
	assert.Equal(t, peer.FrameHello, env.Kind, "only the well-formed frame from seat 0 gets through")

	_, err = rl.ledger.GetFrames(context.Background(), room.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
