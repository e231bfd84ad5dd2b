package listsched

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchedulingStalled is matched when the simulation cannot make progress.
	ErrSchedulingStalled = errors.New("scheduling stalled")
	// ErrNotAnalyzed is returned when a node has no slack to derive its priority from.
	ErrNotAnalyzed = errors.New("graph not analyzed")
	// ErrAlreadyScheduled is returned when a node carries a schedule from an earlier run.
	ErrAlreadyScheduled = errors.New("graph already scheduled")
)

// StalledError reports a run that stopped without scheduling every node.
type StalledError struct {
	Cycle     int
	Pending   []int    // unscheduled ids, ascending
	Operators []string // operators of the nodes that were ready but blocked
	Reason    string
}

func (e *StalledError) Error() string {
	msg := fmt.Sprintf("scheduling stalled at cycle %d: %s; %d pending node(s) %v",
		e.Cycle, e.Reason, len(e.Pending), e.Pending)
	if len(e.Operators) > 0 {
		msg += " blocked on " + strings.Join(e.Operators, ", ")
	}
	return msg
}

func (e *StalledError) Is(target error) bool {
	return target == ErrSchedulingStalled
}
