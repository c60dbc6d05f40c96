package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cookduel/apps/server/internal/auth"
	"cookduel/apps/server/internal/ledger"
	"cookduel/apps/server/internal/lobby"
	"cookduel/apps/server/internal/metrics"
	"cookduel/kitchen"
	"cookduel/peer"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 256
	maxPending     = 1024
)

// Connection is one seat's websocket.
type Connection struct {
	ID      string
	RoomID  string
	Seat    int
	Conn    *websocket.Conn
	Send    chan []byte
	Gateway *Gateway
	closed  bool // guarded by Gateway.mu
}

// relayRoom pairs the two seats of a room. Frames for a seat that has not connected
// yet wait in pending and are flushed, in order, when it does.
type relayRoom struct {
	id      string
	seats   [kitchen.PlayerCount]*Connection
	pending [kitchen.PlayerCount][][]byte
}

// Gateway relays peer frames between the two seats of a room. It never interprets
// the game: frames are forwarded verbatim and ACTION frames are recorded to the ledger.
type Gateway struct {
	mu         sync.Mutex
	rooms      map[string]*relayRoom
	nextConnID uint64

	lobby    *lobby.Lobby
	tickets  *auth.Manager
	ledger   ledger.Service
	origins  []string
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// New builds a gateway. Browsers may connect from the relay's own host or from one of
// allowedOrigins ("*" allows any); clients that send no Origin header are always accepted.
func New(lby *lobby.Lobby, tickets *auth.Manager, ledgerService ledger.Service, allowedOrigins []string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		rooms:   make(map[string]*relayRoom),
		lobby:   lby,
		tickets: tickets,
		ledger:  ledgerService,
		origins: allowedOrigins,
		log:     logger.With("component", "gateway"),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	origin = strings.TrimSuffix(origin, "/")
	for _, allowed := range g.origins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// HandleWebSocket redeems the seat ticket in ?token= and upgrades.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// checked before the ticket is spent
	if !g.checkOrigin(r) {
		g.log.Warn("origin rejected", "origin", r.Header.Get("Origin"))
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	ticket, err := g.tickets.Redeem(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err := g.lobby.Occupy(ticket.RoomID, ticket.Seat); err != nil {
		status := http.StatusConflict
		if errors.Is(err, lobby.ErrRoomNotFound) {
			status = http.StatusGone
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.lobby.Release(ticket.RoomID, ticket.Seat)
		g.log.Warn("upgrade failed", "room", ticket.RoomID, "seat", ticket.Seat, "error", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:      fmt.Sprintf("conn_%d", g.nextConnID),
		RoomID:  ticket.RoomID,
		Seat:    ticket.Seat,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		Gateway: g,
	}
	g.attachLocked(c)
	g.mu.Unlock()

	metrics.ConnectedSeats.Inc()
	g.log.Info("seat connected", "conn", c.ID, "room", c.RoomID, "seat", c.Seat)

	go c.readPump()
	go c.writePump()
}

func (g *Gateway) attachLocked(c *Connection) {
	room := g.rooms[c.RoomID]
	if room == nil {
		room = &relayRoom{id: c.RoomID}
		g.rooms[c.RoomID] = room
	}
	room.seats[c.Seat] = c
	backlog := room.pending[c.Seat]
	room.pending[c.Seat] = nil
	for _, frame := range backlog {
		if !g.sendLocked(c, frame) {
			return
		}
	}
}

// sendLocked queues frame for c. A seat that cannot keep up is disconnected: dropping
// a frame would silently fork the two replicas.
func (g *Gateway) sendLocked(c *Connection, frame []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		g.log.Warn("send buffer full, dropping seat", "conn", c.ID, "room", c.RoomID, "seat", c.Seat)
		g.closeLocked(c)
		return false
	}
}

func (g *Gateway) closeLocked(c *Connection) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.detach(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.Gateway.log.Warn("read error", "conn", c.ID, "error", err)
			}
			return
		}
		if messageType == websocket.TextMessage {
			c.Gateway.handleFrame(c, message)
		}
	}
}

// handleFrame checks the frame belongs to the sender's seat and room, records it,
// and forwards it to the other seat.
func (g *Gateway) handleFrame(c *Connection, frame []byte) {
	rec, env, err := ledger.RecordFromFrame(frame, time.Now())
	if err != nil && !errors.Is(err, ledger.ErrNotRecorded) {
		g.log.Warn("dropping malformed frame", "conn", c.ID, "error", err)
		return
	}
	if env.SessionID != c.RoomID || env.Origin != c.Seat {
		g.log.Warn("dropping foreign frame", "conn", c.ID, "session", env.SessionID, "origin", env.Origin)
		return
	}

	if env.Kind == peer.FrameAction {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := g.ledger.Append(ctx, rec); err != nil {
			metrics.LedgerErrors.Inc()
			g.log.Error("ledger append failed", "room", c.RoomID, "seq", rec.Seq, "error", err)
		}
		cancel()
	}

	g.forward(c, frame)
	metrics.RelayedFrames.WithLabelValues(string(env.Kind)).Inc()
	g.lobby.Touch(c.RoomID)
}

func (g *Gateway) forward(from *Connection, frame []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room := g.rooms[from.RoomID]
	if room == nil {
		return
	}
	to := kitchen.Opponent(from.Seat)
	if other := room.seats[to]; other != nil {
		g.sendLocked(other, frame)
		return
	}
	if len(room.pending[to]) >= maxPending {
		g.log.Warn("pending frames overflow", "room", room.id, "seat", to)
		g.closeLocked(from)
		return
	}
	room.pending[to] = append(room.pending[to], frame)
}

// detach ends the room's session and disconnects the other seat.
func (g *Gateway) detach(c *Connection) {
	g.mu.Lock()
	room := g.rooms[c.RoomID]
	if room != nil && room.seats[c.Seat] == c {
		room.seats[c.Seat] = nil
		for _, other := range room.seats {
			if other != nil {
				g.closeLocked(other)
			}
		}
		delete(g.rooms, c.RoomID)
	}
	g.closeLocked(c)
	g.mu.Unlock()

	metrics.ConnectedSeats.Dec()
	g.lobby.Release(c.RoomID, c.Seat)
	if room != nil {
		g.lobby.Remove(c.RoomID)
	}
	g.log.Info("seat disconnected", "conn", c.ID, "room", c.RoomID, "seat", c.Seat)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// CloseRoom drops the relay state of a room and disconnects its seats.
func (g *Gateway) CloseRoom(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room := g.rooms[roomID]
	if room == nil {
		return
	}
	for _, c := range room.seats {
		if c != nil {
			g.closeLocked(c)
		}
	}
	delete(g.rooms, roomID)
}

// Close disconnects every seat.
func (g *Gateway) Close() {
	g.mu.Lock()
	ids := make([]string, 0, len(g.rooms))
	for id := range g.rooms {
		ids = append(ids, id)
	}
	g.mu.Unlock()
	for _, id := range ids {
		g.CloseRoom(id)
	}
}

// Rooms reports how many rooms have relay state.
func (g *Gateway) Rooms() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
