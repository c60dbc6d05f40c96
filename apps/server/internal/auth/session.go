package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTicketTTL = 10 * time.Minute
	tokenBytes       = 32
)

var (
	ErrInvalidPasscode = errors.New("invalid passcode")
	ErrWrongPasscode   = errors.New("wrong passcode")
	ErrUnknownTicket   = errors.New("unknown or expired seat ticket")
)

// HashPasscode bcrypt-hashes a room passcode. An empty passcode means an open room
// and hashes to nil.
func HashPasscode(passcode string) ([]byte, error) {
	if passcode == "" {
		return nil, nil
	}
	if len(passcode) < 4 || len(passcode) > 72 {
		return nil, ErrInvalidPasscode
	}
	return bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
}

// CheckPasscode compares passcode with a hash from HashPasscode.
func CheckPasscode(hash []byte, passcode string) error {
	if len(hash) == 0 {
		return nil
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(passcode)) != nil {
		return ErrWrongPasscode
	}
	return nil
}

// Ticket 座位票: the right to open the websocket for one seat of one room.
type Ticket struct {
	RoomID    string
	Seat      int
	ExpiresAt time.Time
}

// Manager issues short-lived seat tickets in memory. Tickets do not survive a restart;
// a relay restart ends every session anyway.
type Manager struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	tickets map[string]Ticket // token -> ticket
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &Manager{
		ttl:     ttl,
		now:     time.Now,
		tickets: make(map[string]Ticket),
	}
}

// Issue returns a new token for (roomID, seat). Earlier tickets for the same seat
// stay valid until they expire or are redeemed.
func (m *Manager) Issue(roomID string, seat int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := mustToken()
	m.tickets[token] = Ticket{RoomID: roomID, Seat: seat, ExpiresAt: m.now().Add(m.ttl)}
	return token
}

// Redeem consumes a token. A ticket opens one connection only.
func (m *Manager) Redeem(token string) (Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[token]
	if !ok {
		return Ticket{}, ErrUnknownTicket
	}
	delete(m.tickets, token)
	if !m.now().Before(t.ExpiresAt) {
		return Ticket{}, ErrUnknownTicket
	}
	return t, nil
}

// RevokeRoom drops every outstanding ticket for roomID.
func (m *Manager) RevokeRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, t := range m.tickets {
		if t.RoomID == roomID {
			delete(m.tickets, token)
		}
	}
}

// Sweep removes expired tickets and returns how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for token, t := range m.tickets {
		if !now.Before(t.ExpiresAt) {
			delete(m.tickets, token)
			n++
		}
	}
	return n
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
