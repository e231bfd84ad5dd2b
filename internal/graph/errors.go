package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedGraph is matched by every graph construction failure.
var ErrMalformedGraph = errors.New("malformed graph")

// MalformedGraphError describes why a set of records does not form a valid DAG.
type MalformedGraphError struct {
	ID     int   // offending node, -1 when the problem is not tied to one node
	Reason string
	Cycle  []int // set when the graph contains a cycle
}

func (e *MalformedGraphError) Error() string {
	var b strings.Builder
	b.WriteString("malformed graph: ")
	if e.ID >= 0 {
		fmt.Fprintf(&b, "node %d: ", e.ID)
	}
	b.WriteString(e.Reason)
	if len(e.Cycle) > 0 {
		parts := make([]string, len(e.Cycle))
		for i, id := range e.Cycle {
			parts[i] = strconv.Itoa(id)
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, " -> "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *MalformedGraphError) Is(target error) bool {
	return target == ErrMalformedGraph
}

func malformed(id int, format string, args ...any) error {
	return &MalformedGraphError{ID: id, Reason: fmt.Sprintf(format, args...)}
}
