package replay

import (
	"fmt"
	"sort"

	"cookduel/kitchen"
)

// AppendResult 追加结果
type AppendResult struct {
	// Outcome is the reducer's verdict on the appended entry at its place in the log.
	Outcome kitchen.Outcome
	// Refolded is set when the entry landed before the tail and the state was rebuilt.
	// Entries that had already been applied may have been judged differently.
	Refolded  bool
	Duplicate bool
}

// Log keeps one replica of the game as a baseline plus an ordered list of entries.
// Both peers that hold the same entries hold the same state, whatever order the
// entries arrived in. Log is not safe for concurrent use.
type Log struct {
	origin   *kitchen.State // baseline of the current tape
	history  []Entry        // entries already folded into baseline
	baseline *kitchen.State
	entries  []Entry
	state    *kitchen.State
}

func NewLog(baseline *kitchen.State) *Log {
	l := &Log{}
	l.Reset(baseline)
	return l
}

// Reset drops every entry and starts over from snapshot.
func (l *Log) Reset(snapshot *kitchen.State) {
	l.origin = snapshot.Clone()
	l.history = nil
	l.baseline = snapshot.Clone()
	l.entries = nil
	l.state = snapshot.Clone()
}

// Append places e in log order and brings the state up to date.
// A SYNC_STATE entry replaces the baseline instead of joining the log.
func (l *Log) Append(e Entry) (AppendResult, error) {
	if e.Action.Type == kitchen.ActionSyncState {
		next, out := kitchen.Apply(l.state, e.Action)
		if out.Err != nil {
			return AppendResult{Outcome: out}, out.Err
		}
		l.Reset(next)
		return AppendResult{Outcome: out}, nil
	}
	if l.baseline == nil {
		return AppendResult{}, fmt.Errorf("%w: %s before SYNC_STATE", ErrNoBaseline, e.Action.Type)
	}
	if last := len(l.history) - 1; last >= 0 && !l.history[last].Before(e) {
		if l.compacted(e) {
			return AppendResult{Duplicate: true}, nil
		}
		return AppendResult{}, fmt.Errorf("replay: entry %d/%d is behind the compacted prefix", e.Seq, e.Origin)
	}

	i := sort.Search(len(l.entries), func(i int) bool { return !l.entries[i].Before(e) })
	if i < len(l.entries) && l.entries[i].same(e) {
		return AppendResult{Duplicate: true}, nil
	}

	if i == len(l.entries) {
		l.entries = append(l.entries, e)
		next, out := kitchen.Apply(l.state, e.Action)
		l.state = next
		return AppendResult{Outcome: out}, nil
	}

	l.entries = append(l.entries, Entry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = e

	var res AppendResult
	res.Refolded = true
	l.state = l.fold(func(idx int, out kitchen.Outcome) {
		if idx == i {
			res.Outcome = out
		}
	})
	return res, nil
}

func (l *Log) compacted(e Entry) bool {
	for _, h := range l.history {
		if h.same(e) {
			return true
		}
	}
	return false
}

func (l *Log) fold(visit func(int, kitchen.Outcome)) *kitchen.State {
	s := l.baseline
	for i, e := range l.entries {
		next, out := kitchen.Apply(s, e.Action)
		if visit != nil {
			visit(i, out)
		}
		s = next
	}
	return s.Clone()
}

// Compact folds every entry with Seq <= stable into the baseline. The caller promises
// that no entry at or below stable will arrive again. Returns the number folded.
func (l *Log) Compact(stable uint64) int {
	n := 0
	for n < len(l.entries) && l.entries[n].Seq <= stable {
		n++
	}
	if n == 0 {
		return 0
	}
	s := l.baseline
	for _, e := range l.entries[:n] {
		s, _ = kitchen.Apply(s, e.Action)
	}
	l.baseline = s
	l.history = append(l.history, l.entries[:n]...)
	l.entries = append([]Entry(nil), l.entries[n:]...)
	return n
}

// State 当前状态副本
func (l *Log) State() *kitchen.State { return l.state.Clone() }

// Head returns the live state without copying. Callers must not modify it.
func (l *Log) Head() *kitchen.State { return l.state }

func (l *Log) Baseline() *kitchen.State { return l.baseline.Clone() }

// Entries returns the entries not yet compacted.
func (l *Log) Entries() []Entry { return append([]Entry(nil), l.entries...) }

func (l *Log) Len() int { return len(l.history) + len(l.entries) }

// Tape records everything since the last reset.
func (l *Log) Tape(sessionID string) *Tape {
	entries := make([]Entry, 0, len(l.history)+len(l.entries))
	entries = append(entries, l.history...)
	entries = append(entries, l.entries...)
	return &Tape{
		TapeVersion: TapeVersion,
		SessionID:   sessionID,
		Baseline:    l.origin.Clone(),
		Entries:     entries,
	}
}
