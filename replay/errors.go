package replay

import (
	"errors"
	"fmt"
)

var (
	ErrNoBaseline     = errors.New("replay: no baseline")
	ErrBadTapeVersion = errors.New("replay: unsupported tape version")
)

// ReplayError reports the first step where a tape stops making sense.
// StepIndex is -1 for problems with the tape as a whole.
type ReplayError struct {
	StepIndex int    `json:"step_index"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
	Diff      string `json:"diff,omitempty"`
}

const (
	ReasonUnordered     = "unordered"
	ReasonNoBaseline    = "no_baseline"
	ReasonVersion       = "tape_version"
	ReasonStateMismatch = "state_mismatch"
)

func (e *ReplayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("replay error(step=%d reason=%s): %s", e.StepIndex, e.Reason, e.Message)
}
