package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasscodes(t *testing.T) {
	hash, err := HashPasscode("")
	require.NoError(t, err)
	assert.Nil(t, hash)
	assert.NoError(t, CheckPasscode(hash, "anything"))

	_, err = HashPasscode("abc")
	assert.ErrorIs(t, err, ErrInvalidPasscode)

	hash, err = HashPasscode("sambal")
	require.NoError(t, err)
	assert.NotContains(t, string(hash), "sambal")
	assert.NoError(t, CheckPasscode(hash, "sambal"))
	assert.ErrorIs(t, CheckPasscode(hash, "kecap"), ErrWrongPasscode)
}

func TestTicketsAreSingleUse(t *testing.T) {
	m := NewManager(time.Minute)
	token := m.Issue("room-1", 1)
	assert.NotEqual(t, token, m.Issue("room-1", 1))

	ticket, err := m.Redeem(token)
	require.NoError(t, err)
	assert.Equal(t, "room-1", ticket.RoomID)
	assert.Equal(t, 1, ticket.Seat)

	_, err = m.Redeem(token)
	assert.ErrorIs(t, err, ErrUnknownTicket)
	_, err = m.Redeem("made-up")
	assert.ErrorIs(t, err, ErrUnknownTicket)
}

func TestTicketsExpire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewManager(time.Minute)
	m.now = func() time.Time { return now }

	stale := m.Issue("room-1", 0)
	other := m.Issue("room-2", 0)
	now = now.Add(2 * time.Minute)
	fresh := m.Issue("room-1", 1)

	_, err := m.Redeem(stale)
	assert.ErrorIs(t, err, ErrUnknownTicket)
	assert.Equal(t, 1, m.Sweep(), "only the other stale ticket is left to sweep")

	m.RevokeRoom("room-1")
	_, err = m.Redeem(fresh)
	assert.ErrorIs(t, err, ErrUnknownTicket)
	_, err = m.Redeem(other)
	assert.ErrorIs(t, err, ErrUnknownTicket)
}
