// Package testutil provides shared fixtures and rapid generators for tests.
package testutil

import (
	"fmt"

	"pgregory.net/rapid"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/oplib"
)

// Operators is the operator pool drawn by the generators.
var Operators = []string{"ADD", "MUL", "SUB", "DIV"}

// Problem is a generated scheduling input.
type Problem struct {
	Records []graph.Record
	Library *oplib.Library
}

// DrawProblem draws a random DAG with up to maxNodes nodes. Edges only go
// from smaller to larger ids, so ascending id order is a topological order.
func DrawProblem(t *rapid.T, maxNodes int) Problem {
	n := rapid.IntRange(1, maxNodes).Draw(t, "nodes")

	lib := oplib.New(oplib.Timing{}, oplib.Constraints{})
	for _, op := range Operators {
		lib.Timing[op] = rapid.IntRange(1, 4).Draw(t, "cycles_"+op)
		lib.Constraints[op] = rapid.IntRange(1, 3).Draw(t, "units_"+op)
	}

	records := make([]graph.Record, n)
	for i := 0; i < n; i++ {
		records[i] = graph.Record{
			ID:       i,
			Operator: rapid.SampledFrom(Operators).Draw(t, fmt.Sprintf("op_%d", i)),
		}
		for j := i + 1; j < n; j++ {
			if rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("edge_%d_%d", i, j)) == 0 {
				records[i].Children = append(records[i].Children, j)
			}
		}
	}

	// Shuffle record order; Build must not depend on it.
	records = rapid.Permutation(records).Draw(t, "order")
	return Problem{Records: records, Library: lib}
}

// LongestPaths returns, per node, the duration-weighted longest path from any
// root to the node's start. It relies on DrawProblem's id ordering.
func LongestPaths(p Problem) map[int]int {
	byID := make(map[int]graph.Record, len(p.Records))
	for _, r := range p.Records {
		byID[r.ID] = r
	}
	lp := make(map[int]int, len(byID))
	for id := 0; id < len(byID); id++ {
		r := byID[id]
		for _, c := range r.Children {
			if v := lp[id] + p.Library.Timing[r.Operator]; v > lp[c] {
				lp[c] = v
			}
		}
	}
	return lp
}
