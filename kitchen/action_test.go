package kitchen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookduel/card"
)

func TestActionWireFormat(t *testing.T) {
	a := StartCook(1, "o4#1", []string{"i11#1", "w1#2", "i12#3"}, map[string]string{"w1#2": "Es Batu"})
	raw, err := EncodeAction(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "START_COOK",
		"playerId": 1,
		"orderId": "o4#1",
		"ingredientCardIds": ["i11#1", "w1#2", "i12#3"],
		"wildAssignments": {"w1#2": "Es Batu"}
	}`, string(raw))

	back, err := DecodeAction(raw)
	require.NoError(t, err)
	assert.Equal(t, a, back)

	raw, err = EncodeAction(PlayWild(0, "w4#1", card.EffectStun))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"WILD","playerId":0,"cardId":"w4#1","effect":"STUN"}`, string(raw))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeAction([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = DecodeAction([]byte(`{"type":"WILD","playerId":0,"cardId":"w4#1","effect":"LASER"}`))
	assert.Error(t, err)

	a, err := DecodeAction([]byte(`{"type":"MICROWAVE","playerId":0}`))
	require.NoError(t, err)
	_, out := Apply(blankState(DefaultRules()), a)
	assert.ErrorIs(t, out.Err, ErrInvalidAction)
}

func TestSnapshotSurvivesTheWire(t *testing.T) {
	s, err := NewGame(Config{Rules: DefaultRules(), Seed: 77, Names: [PlayerCount]string{"Sari", "Budi"}})
	require.NoError(t, err)
	s = mustApply(t, s, Draw(1, 500))

	raw, err := EncodeAction(SyncState(0, s))
	require.NoError(t, err)
	a, err := DecodeAction(raw)
	require.NoError(t, err)

	joined, out := Apply(nil, a)
	require.NoError(t, out.Err)
	assert.Equal(t, s, joined)

	// both replicas judge the next action identically
	hostNext, _ := Apply(s, Draw(1, 600))
	joinNext, _ := Apply(joined, Draw(1, 600))
	assert.Equal(t, hostNext, joinNext)
}

func TestDecodeStateChecksShape(t *testing.T) {
	s, err := NewGame(Config{Rules: DefaultRules(), Seed: 8})
	require.NoError(t, err)
	s.Players[1].ID = 0
	raw, err := s.Encode()
	require.NoError(t, err)

	_, err = DecodeState(raw)
	var invalid InvalidStateError
	assert.ErrorAs(t, err, &invalid)
}
