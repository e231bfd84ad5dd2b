package testutil

import (
	"testing"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/oplib"
)

// BuildGraph builds records into a graph or fails the test.
func BuildGraph(t testing.TB, records []graph.Record) *graph.DFG {
	t.Helper()
	g, err := graph.Build(-1, records)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

// Chain returns the two-node ADD example: 0 -> 1.
func Chain() ([]graph.Record, *oplib.Library) {
	return []graph.Record{
			{ID: 0, Children: []int{1}, Operator: "ADD"},
			{ID: 1, Operator: "ADD"},
		},
		oplib.New(oplib.Timing{"ADD": 1}, oplib.Constraints{"ADD": 1})
}

// Contended returns two independent MUL nodes sharing one 2-cycle unit.
func Contended() ([]graph.Record, *oplib.Library) {
	return []graph.Record{
			{ID: 0, Operator: "MUL"},
			{ID: 1, Operator: "MUL"},
		},
		oplib.New(oplib.Timing{"MUL": 2}, oplib.Constraints{"MUL": 1})
}

// Mixed returns a small multiply-accumulate style graph:
//
//	0 MUL -> 2 ADD -> 4 ADD
//	1 MUL -> 2 ADD
//	3 MUL -> 4 ADD
//	5 SUB (independent)
func Mixed() ([]graph.Record, *oplib.Library) {
	return []graph.Record{
			{ID: 0, Children: []int{2}, Operator: "MUL"},
			{ID: 1, Children: []int{2}, Operator: "MUL"},
			{ID: 2, Children: []int{4}, Operator: "ADD"},
			{ID: 3, Children: []int{4}, Operator: "MUL"},
			{ID: 4, Operator: "ADD"},
			{ID: 5, Operator: "SUB"},
		},
		oplib.New(
			oplib.Timing{"MUL": 2, "ADD": 1, "SUB": 1},
			oplib.Constraints{"MUL": 1, "ADD": 1, "SUB": 1},
		)
}
