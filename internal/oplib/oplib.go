// Package oplib holds the operator library: how many cycles each operator
// takes and how many functional units of it are available.
package oplib

import (
	"errors"
	"fmt"
	"sort"
)

// Table names used in UnknownOperatorError.
const (
	TableTiming      = "timing"
	TableConstraints = "constraints"
)

var (
	// ErrUnknownOperator is matched when an operator has no timing or
	// constraint entry.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrInvalidEntry is returned for non-positive cycle counts and negative
	// unit counts.
	ErrInvalidEntry = errors.New("invalid operator entry")
)

// UnknownOperatorError reports an operator missing from one of the tables.
type UnknownOperatorError struct {
	Operator string
	Table    string
	NodeID   int // first node using the operator, -1 if unknown
}

func (e *UnknownOperatorError) Error() string {
	if e.NodeID >= 0 {
		return fmt.Sprintf("unknown operator %q (node %d): no %s entry", e.Operator, e.NodeID, e.Table)
	}
	return fmt.Sprintf("unknown operator %q: no %s entry", e.Operator, e.Table)
}

func (e *UnknownOperatorError) Is(target error) bool {
	return target == ErrUnknownOperator
}

// Timing maps an operator name to its duration in cycles.
type Timing map[string]int

// Constraints maps an operator name to its number of functional units.
type Constraints map[string]int

// Library pairs the timing and constraint tables.
type Library struct {
	Timing      Timing      `json:"timing"`
	Constraints Constraints `json:"constraints"`
}

// New returns a Library over the given tables. Nil tables are replaced by empty ones.
func New(timing Timing, constraints Constraints) *Library {
	if timing == nil {
		timing = Timing{}
	}
	if constraints == nil {
		constraints = Constraints{}
	}
	return &Library{Timing: timing, Constraints: constraints}
}

// Duration returns the cycle count of op.
func (l *Library) Duration(op string) (int, error) {
	d, ok := l.Timing[op]
	if !ok {
		return 0, &UnknownOperatorError{Operator: op, Table: TableTiming, NodeID: -1}
	}
	return d, nil
}

// Units returns the functional unit count of op.
func (l *Library) Units(op string) (int, error) {
	n, ok := l.Constraints[op]
	if !ok {
		return 0, &UnknownOperatorError{Operator: op, Table: TableConstraints, NodeID: -1}
	}
	return n, nil
}

// Check validates the table entries themselves: durations must be positive
// and unit counts non-negative.
func (l *Library) Check() error {
	for _, op := range sortedKeys(l.Timing) {
		if d := l.Timing[op]; d <= 0 {
			return fmt.Errorf("%w: %s takes %d cycles", ErrInvalidEntry, op, d)
		}
	}
	for _, op := range sortedKeys(l.Constraints) {
		if n := l.Constraints[op]; n < 0 {
			return fmt.Errorf("%w: %s has %d units", ErrInvalidEntry, op, n)
		}
	}
	return nil
}

// Validate checks that every operator has both a timing and a constraint entry.
// users maps an operator to the first node id using it, for error context.
func (l *Library) Validate(users map[string]int) error {
	ops := make([]string, 0, len(users))
	for op := range users {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		if _, ok := l.Timing[op]; !ok {
			return &UnknownOperatorError{Operator: op, Table: TableTiming, NodeID: users[op]}
		}
		if _, ok := l.Constraints[op]; !ok {
			return &UnknownOperatorError{Operator: op, Table: TableConstraints, NodeID: users[op]}
		}
	}
	return nil
}

// Merge returns a new Library with the entries of other layered over l.
func (l *Library) Merge(other *Library) *Library {
	out := New(Timing{}, Constraints{})
	for _, src := range []*Library{l, other} {
		if src == nil {
			continue
		}
		for op, d := range src.Timing {
			out.Timing[op] = d
		}
		for op, n := range src.Constraints {
			out.Constraints[op] = n
		}
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
