package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cookduel/apps/server/internal/auth"
	"cookduel/apps/server/internal/metrics"
	"cookduel/kitchen"
)

var (
	ErrLobbyFull    = errors.New("lobby is full")
	ErrRoomNotFound = errors.New("room not found")
	ErrSeatTaken    = errors.New("seat already taken")
	ErrBadSeat      = errors.New("seat must be 0 or 1")
)

type Options struct {
	MaxRooms int
	IdleTTL  time.Duration
	Logger   *slog.Logger
}

// Room 房间. The room id doubles as the session id both peers put in their frames.
type Room struct {
	ID         string
	Name       string
	Policy     kitchen.TurnPolicy
	passHash   []byte
	CreatedAt  time.Time
	lastActive time.Time
	occupied   [kitchen.PlayerCount]bool
}

// RoomInfo is the public view of a room.
type RoomInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Policy    string    `json:"policy"`
	Locked    bool      `json:"locked"`
	Seats     [2]bool   `json:"seats"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Room) info() RoomInfo {
	return RoomInfo{
		ID:        r.ID,
		Name:      r.Name,
		Policy:    r.Policy.String(),
		Locked:    len(r.passHash) > 0,
		Seats:     r.occupied,
		CreatedAt: r.CreatedAt,
	}
}

// Lobby manages all rooms and their seats
type Lobby struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	opts    Options
	tickets *auth.Manager
	now     func() time.Time
	log     *slog.Logger

	onExpire func(roomID string)
}

func New(opts Options, tickets *auth.Manager) *Lobby {
	if opts.MaxRooms <= 0 {
		opts.MaxRooms = 200
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Lobby{
		rooms:   make(map[string]*Room),
		opts:    opts,
		tickets: tickets,
		now:     time.Now,
		log:     opts.Logger.With("component", "lobby"),
	}
}

// OnExpire registers fn to run (outside the lobby lock) for every room Sweep drops.
func (l *Lobby) OnExpire(fn func(roomID string)) {
	l.mu.Lock()
	l.onExpire = fn
	l.mu.Unlock()
}

// Create opens a room. An empty passcode leaves it open to anyone.
func (l *Lobby) Create(name, passcode string, policy kitchen.TurnPolicy) (RoomInfo, error) {
	if _, ok := kitchen.TurnPolicyDictionary[policy]; !ok {
		return RoomInfo{}, fmt.Errorf("unknown turn policy %d", byte(policy))
	}
	hash, err := auth.HashPasscode(passcode)
	if err != nil {
		return RoomInfo{}, err
	}
	name = strings.TrimSpace(name)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.rooms) >= l.opts.MaxRooms {
		return RoomInfo{}, ErrLobbyFull
	}
	now := l.now()
	r := &Room{
		ID:         uuid.NewString(),
		Name:       name,
		Policy:     policy,
		passHash:   hash,
		CreatedAt:  now,
		lastActive: now,
	}
	if r.Name == "" {
		r.Name = "Kitchen " + r.ID[:8]
	}
	l.rooms[r.ID] = r
	metrics.RoomsOpen.Set(float64(len(l.rooms)))
	l.log.Info("room created", "room", r.ID, "policy", policy.String(), "locked", len(hash) > 0)
	return r.info(), nil
}

func (l *Lobby) Get(roomID string) (RoomInfo, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.rooms[roomID]
	if !ok {
		return RoomInfo{}, false
	}
	return r.info(), true
}

// List returns all rooms, newest first.
func (l *Lobby) List() []RoomInfo {
	l.mu.RLock()
	out := make([]RoomInfo, 0, len(l.rooms))
	for _, r := range l.rooms {
		out = append(out, r.info())
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Join checks the passcode and hands out a single-use ticket for the seat's websocket.
func (l *Lobby) Join(roomID string, seat int, passcode string) (string, error) {
	if seat < 0 || seat >= kitchen.PlayerCount {
		metrics.RoomJoins.WithLabelValues("bad_seat").Inc()
		return "", ErrBadSeat
	}
	l.mu.Lock()
	r, ok := l.rooms[roomID]
	if !ok {
		l.mu.Unlock()
		metrics.RoomJoins.WithLabelValues("not_found").Inc()
		return "", ErrRoomNotFound
	}
	hash, taken := r.passHash, r.occupied[seat]
	r.lastActive = l.now()
	l.mu.Unlock()

	if taken {
		metrics.RoomJoins.WithLabelValues("seat_taken").Inc()
		return "", ErrSeatTaken
	}
	// bcrypt runs outside the lock
	if err := auth.CheckPasscode(hash, passcode); err != nil {
		metrics.RoomJoins.WithLabelValues("wrong_passcode").Inc()
		return "", err
	}
	metrics.RoomJoins.WithLabelValues("ok").Inc()
	return l.tickets.Issue(roomID, seat), nil
}

// Occupy marks a seat as connected. Only one connection per seat at a time.
func (l *Lobby) Occupy(roomID string, seat int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if r.occupied[seat] {
		return ErrSeatTaken
	}
	r.occupied[seat] = true
	r.lastActive = l.now()
	return nil
}

func (l *Lobby) Release(roomID string, seat int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.rooms[roomID]; ok {
		r.occupied[seat] = false
		r.lastActive = l.now()
	}
}

// Touch records activity so the room is not swept.
func (l *Lobby) Touch(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.rooms[roomID]; ok {
		r.lastActive = l.now()
	}
}

// Remove drops a room and revokes its outstanding tickets.
func (l *Lobby) Remove(roomID string) bool {
	l.mu.Lock()
	_, ok := l.rooms[roomID]
	delete(l.rooms, roomID)
	metrics.RoomsOpen.Set(float64(len(l.rooms)))
	l.mu.Unlock()
	if ok {
		l.tickets.RevokeRoom(roomID)
	}
	return ok
}

// Sweep drops rooms idle for longer than IdleTTL with no seat connected.
func (l *Lobby) Sweep(now time.Time) []string {
	l.mu.Lock()
	var expired []string
	for id, r := range l.rooms {
		if r.occupied[0] || r.occupied[1] {
			continue
		}
		if now.Sub(r.lastActive) >= l.opts.IdleTTL {
			expired = append(expired, id)
			delete(l.rooms, id)
		}
	}
	metrics.RoomsOpen.Set(float64(len(l.rooms)))
	onExpire := l.onExpire
	l.mu.Unlock()

	for _, id := range expired {
		l.tickets.RevokeRoom(id)
		if onExpire != nil {
			onExpire(id)
		}
		l.log.Info("room expired", "room", id)
	}
	return expired
}

// Run sweeps idle rooms and stale tickets until ctx is done.
func (l *Lobby) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
			if n := l.tickets.Sweep(); n > 0 {
				l.log.Debug("tickets swept", "count", n)
			}
		}
	}
}
