package replay

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"cookduel/kitchen"
)

// Play folds a tape from its baseline and reports the reducer's verdict on each entry.
// Rejected entries are part of a normal game and do not make Play fail.
func Play(t *Tape) (*kitchen.State, []StepResult, error) {
	if t == nil || t.Baseline == nil {
		return nil, nil, &ReplayError{StepIndex: -1, Reason: ReasonNoBaseline, Message: ErrNoBaseline.Error()}
	}
	if t.TapeVersion != TapeVersion {
		return nil, nil, &ReplayError{
			StepIndex: -1,
			Reason:    ReasonVersion,
			Message:   fmt.Sprintf("%v: %d", ErrBadTapeVersion, t.TapeVersion),
		}
	}

	s := t.Baseline.Clone()
	steps := make([]StepResult, 0, len(t.Entries))
	for i, e := range t.Entries {
		if i > 0 && !t.Entries[i-1].Before(e) {
			return s, steps, &ReplayError{
				StepIndex: i,
				Reason:    ReasonUnordered,
				Message:   fmt.Sprintf("entry %d/%d does not follow %d/%d", e.Seq, e.Origin, t.Entries[i-1].Seq, t.Entries[i-1].Origin),
			}
		}
		next, out := kitchen.Apply(s, e.Action)
		step := StepResult{
			Index:    i,
			Seq:      e.Seq,
			Origin:   e.Origin,
			Type:     e.Action.Type,
			Changed:  out.Changed,
			Rejected: out.Rejected(),
			Message:  next.Message,
		}
		if out.Err != nil {
			step.Reason = out.Err.Error()
		}
		steps = append(steps, step)
		s = next
	}
	return s, steps, nil
}

// Verify replays t and compares the result with want.
func Verify(t *Tape, want *kitchen.State) error {
	got, steps, err := Play(t)
	if err != nil {
		return err
	}
	if d := Diff(want, got); d != "" {
		return &ReplayError{
			StepIndex: len(steps) - 1,
			Reason:    ReasonStateMismatch,
			Message:   "replayed state differs from the recorded one",
			Diff:      d,
		}
	}
	return nil
}

// Diff compares two replicas. Empty and nil card lists count as equal and the banner
// message is ignored. Returns "" when they converge.
func Diff(a, b *kitchen.State) string {
	return cmp.Diff(a, b,
		cmpopts.EquateEmpty(),
		cmpopts.IgnoreFields(kitchen.State{}, "Message"),
	)
}

// Converged is Diff == "".
func Converged(a, b *kitchen.State) bool { return Diff(a, b) == "" }

// AsReplayError unwraps err into a *ReplayError.
func AsReplayError(err error) (*ReplayError, bool) {
	var re *ReplayError
	ok := errors.As(err, &re)
	return re, ok
}
