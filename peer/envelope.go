package peer

import (
	"encoding/json"
	"fmt"

	"cookduel/kitchen"
	"cookduel/replay"
)

// FrameKind 帧类型
type FrameKind string

const (
	FrameAction FrameKind = "ACTION"
	// FrameHello asks the host for a SYNC_STATE.
	FrameHello FrameKind = "HELLO"
)

// Envelope is the JSON frame exchanged between peers.
type Envelope struct {
	Kind      FrameKind       `json:"kind"`
	SessionID string          `json:"sessionId"`
	Seq       uint64          `json:"seq"`
	Origin    int             `json:"origin"`
	SentAtMs  int64           `json:"sentAtMs"`
	Action    *kitchen.Action `json:"action,omitempty"`
}

func (e Envelope) Entry() replay.Entry {
	return replay.Entry{Seq: e.Seq, Origin: e.Origin, Action: *e.Action}
}

func EncodeEnvelope(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a frame and checks it is complete enough to use.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch e.Kind {
	case FrameHello:
	case FrameAction:
		if e.Action == nil {
			return Envelope{}, fmt.Errorf("decode envelope: ACTION frame without action")
		}
		if e.Seq == 0 {
			return Envelope{}, fmt.Errorf("decode envelope: ACTION frame without seq")
		}
	default:
		return Envelope{}, fmt.Errorf("decode envelope: unknown kind %q", e.Kind)
	}
	return e, nil
}
