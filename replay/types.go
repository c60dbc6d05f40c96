package replay

import (
	"encoding/json"
	"fmt"

	"cookduel/kitchen"
)

const TapeVersion = 1

// Entry 日志条目. Seq is the sender's Lamport clock and Origin its seat; together
// they give every replica the same total order.
type Entry struct {
	Seq    uint64         `json:"seq"`
	Origin int            `json:"origin"`
	Action kitchen.Action `json:"action"`
}

// Before reports whether e sorts ahead of o.
func (e Entry) Before(o Entry) bool {
	if e.Seq != o.Seq {
		return e.Seq < o.Seq
	}
	return e.Origin < o.Origin
}

func (e Entry) same(o Entry) bool { return e.Seq == o.Seq && e.Origin == o.Origin }

// Tape is a self-contained record of a session: the snapshot both peers agreed on and
// every action applied after it, in log order.
type Tape struct {
	TapeVersion int            `json:"tape_version"`
	SessionID   string         `json:"session_id"`
	Baseline    *kitchen.State `json:"baseline"`
	Entries     []Entry        `json:"entries"`
}

// StepResult is what the reducer said about one entry.
type StepResult struct {
	Index    int                `json:"index"`
	Seq      uint64             `json:"seq"`
	Origin   int                `json:"origin"`
	Type     kitchen.ActionType `json:"type"`
	Changed  bool               `json:"changed"`
	Rejected bool               `json:"rejected"`
	Reason   string             `json:"reason,omitempty"`
	Message  string             `json:"message,omitempty"`
}

func EncodeTape(t *Tape) ([]byte, error) {
	return json.Marshal(t)
}

func DecodeTape(data []byte) (*Tape, error) {
	var t Tape
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode tape: %w", err)
	}
	return &t, nil
}
