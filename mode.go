package actionpipe

import (
	"fmt"
	"math"
)

// ExecutionMode selects the discipline under which an action's handlers run.
type ExecutionMode string

const (
	// ModeSequential runs handlers one at a time in descending priority
	// order. This is the default mode.
	ModeSequential ExecutionMode = "sequential"

	// ModeParallel launches all handlers at once and collects results in
	// completion order.
	ModeParallel ExecutionMode = "parallel"

	// ModeRace settles the run as soon as the first handler completes;
	// that handler's outcome becomes the run's result.
	ModeRace ExecutionMode = "race"
)

// ParseMode converts a string to an ExecutionMode.
// It returns ErrUnknownMode for unrecognized values.
func ParseMode(s string) (ExecutionMode, error) {
	switch ExecutionMode(s) {
	case ModeSequential, ModeParallel, ModeRace:
		return ExecutionMode(s), nil
	case "":
		return ModeSequential, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// valid reports whether the mode is one of the three known disciplines.
func (m ExecutionMode) valid() bool {
	switch m {
	case ModeSequential, ModeParallel, ModeRace:
		return true
	default:
		return false
	}
}

// String returns the mode name.
func (m ExecutionMode) String() string {
	return string(m)
}

// effectivePriority maps a configured priority to the value used for
// ordering. NaN sorts as the lowest possible priority so that registration
// never fails and the sort stays total.
func effectivePriority(p float64) float64 {
	if math.IsNaN(p) {
		return math.Inf(-1)
	}
	return p
}
