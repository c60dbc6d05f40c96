// Package codec turns the relay's recorded frames back into replayable tapes.
package codec

import (
	"errors"
	"fmt"
	"sort"

	"cookduel/kitchen"
	"cookduel/peer"
	"cookduel/replay"
)

var ErrNoSnapshot = errors.New("no SYNC_STATE recorded for session")

// TapeFromFrames rebuilds the tape of one session from raw peer frames in any order.
// The baseline is the last SYNC_STATE in log order; every action sorting after it
// becomes an entry. HELLO frames, duplicates and frames of other sessions are skipped.
func TapeFromFrames(sessionID string, frames [][]byte) (*replay.Tape, error) {
	entries := make([]replay.Entry, 0, len(frames))
	seen := make(map[[2]uint64]struct{}, len(frames))
	for i, raw := range frames {
		env, err := peer.DecodeEnvelope(raw)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if env.Kind != peer.FrameAction || env.SessionID != sessionID {
			continue
		}
		key := [2]uint64{env.Seq, uint64(env.Origin)}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, env.Entry())
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Before(entries[j]) })

	last := -1
	for i, e := range entries {
		if e.Action.Type == kitchen.ActionSyncState && e.Action.State != nil {
			last = i
		}
	}
	if last < 0 {
		return nil, ErrNoSnapshot
	}
	return &replay.Tape{
		TapeVersion: replay.TapeVersion,
		SessionID:   sessionID,
		Baseline:    entries[last].Action.State,
		Entries:     append([]replay.Entry(nil), entries[last+1:]...),
	}, nil
}

// ActionType peeks at the action type of a frame for indexing; HELLO frames report "".
func ActionType(env peer.Envelope) string {
	if env.Action == nil {
		return ""
	}
	return string(env.Action.Type)
}
