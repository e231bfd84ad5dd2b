package cpm

import (
	"errors"
	"math"
	"testing"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/oplib"
	"github.com/joshharrison/hlsched/internal/testutil"
)

func TestAnalyze_Chain(t *testing.T) {
	records, lib := testutil.Chain()
	g := testutil.BuildGraph(t, records)

	result, err := Analyze(g, lib)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ASAPFinish != 2 || result.ALAPFinish != 2 {
		t.Errorf("expected finish times 2/2, got %d/%d", result.ASAPFinish, result.ALAPFinish)
	}
	assertBounds(t, g.Node(0), 0, 0, 0)
	assertBounds(t, g.Node(1), 1, 1, 0)

	if len(result.CriticalPath) != 2 {
		t.Errorf("expected both nodes on critical path, got %v", result.CriticalPath)
	}
}

func TestAnalyze_WithDurations(t *testing.T) {
	// 0(5) -> 1(1) -> 3(1)
	// 0(5) -> 2(10) -> 3(1)
	records := []graph.Record{
		{ID: 0, Children: []int{1, 2}, Operator: "LOAD"},
		{ID: 1, Children: []int{3}, Operator: "ADD"},
		{ID: 2, Children: []int{3}, Operator: "DIV"},
		{ID: 3, Operator: "ADD"},
	}
	lib := oplib.New(oplib.Timing{"LOAD": 5, "ADD": 1, "DIV": 10}, nil)
	g := testutil.BuildGraph(t, records)

	result, err := Analyze(g, lib)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ASAPFinish != 16 {
		t.Errorf("expected ASAP finish 16, got %d", result.ASAPFinish)
	}
	assertBounds(t, g.Node(0), 0, 0, 0)
	assertBounds(t, g.Node(1), 5, 14, 9)
	assertBounds(t, g.Node(2), 5, 5, 0)
	assertBounds(t, g.Node(3), 15, 15, 0)

	want := []int{0, 2, 3}
	if len(result.CriticalPath) != len(want) {
		t.Fatalf("expected critical path %v, got %v", want, result.CriticalPath)
	}
	for i := range want {
		if result.CriticalPath[i] != want[i] {
			t.Errorf("expected critical path %v, got %v", want, result.CriticalPath)
		}
	}
}

func TestASAP_TakesMaximumOverParents(t *testing.T) {
	// The short parent is processed first; the long one must still win.
	records := []graph.Record{
		{ID: 0, Children: []int{2}, Operator: "ADD"},
		{ID: 1, Children: []int{2}, Operator: "MUL"},
		{ID: 2, Operator: "ADD"},
	}
	lib := oplib.New(oplib.Timing{"ADD": 1, "MUL": 3}, nil)
	g := testutil.BuildGraph(t, records)

	finish, err := ASAP(g, lib)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asap, _ := g.Node(2).ASAP(); asap != 3 {
		t.Errorf("expected asap 3 for node 2, got %d", asap)
	}
	if finish != 4 {
		t.Errorf("expected finish 4, got %d", finish)
	}
}

func TestALAP_TakesMinimumOverChildren(t *testing.T) {
	// 0 feeds a short leaf and a long chain; its alap is bounded by the chain.
	records := []graph.Record{
		{ID: 0, Children: []int{1, 2}, Operator: "ADD"},
		{ID: 1, Operator: "ADD"},
		{ID: 2, Children: []int{3}, Operator: "MUL"},
		{ID: 3, Operator: "MUL"},
	}
	lib := oplib.New(oplib.Timing{"ADD": 1, "MUL": 2}, nil)
	g := testutil.BuildGraph(t, records)

	if _, err := Analyze(g, lib); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBounds(t, g.Node(0), 0, 0, 0)
	assertBounds(t, g.Node(1), 1, 4, 3)
	assertBounds(t, g.Node(2), 1, 1, 0)
	assertBounds(t, g.Node(3), 3, 3, 0)
}

func TestAnalyze_DisconnectedComponentsShareFinish(t *testing.T) {
	records := []graph.Record{
		{ID: 0, Operator: "ADD"},
		{ID: 1, Operator: "MUL"},
	}
	lib := oplib.New(oplib.Timing{"ADD": 1, "MUL": 3}, nil)
	g := testutil.BuildGraph(t, records)

	result, err := Analyze(g, lib)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ASAPFinish != 3 {
		t.Errorf("expected finish 3, got %d", result.ASAPFinish)
	}
	assertBounds(t, g.Node(0), 0, 2, 2)
	assertBounds(t, g.Node(1), 0, 0, 0)

	if len(result.Steps) != 1 || len(result.Steps[0].IDs) != 2 {
		t.Fatalf("expected one step with both nodes, got %+v", result.Steps)
	}
	if result.Steps[0].IDs[0] != 1 {
		t.Errorf("expected critical node 1 first in step, got %v", result.Steps[0].IDs)
	}
}

func TestAnalyze_Steps(t *testing.T) {
	records, lib := testutil.Mixed()
	g := testutil.BuildGraph(t, records)

	result, err := Analyze(g, lib)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// ASAP 0: {0,1,3,5}, 2: {2}, 3: {4}
	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %+v", result.Steps)
	}
	if got := result.Steps[0].IDs; len(got) != 4 {
		t.Errorf("expected 4 ids in first step, got %v", got)
	}
	if result.Steps[2].Time != 3 {
		t.Errorf("expected last step at time 3, got %d", result.Steps[2].Time)
	}
	assertBounds(t, g.Node(3), 0, 1, 1)
	assertBounds(t, g.Node(5), 0, 3, 3)
}

func TestAnalyze_UnknownOperator(t *testing.T) {
	records := []graph.Record{
		{ID: 0, Children: []int{1}, Operator: "ADD"},
		{ID: 1, Operator: "SQRT"},
	}
	lib := oplib.New(oplib.Timing{"ADD": 1}, nil)
	g := testutil.BuildGraph(t, records)

	_, err := Analyze(g, lib)
	if !errors.Is(err, oplib.ErrUnknownOperator) {
		t.Fatalf("expected ErrUnknownOperator, got %v", err)
	}
	var uerr *oplib.UnknownOperatorError
	if !errors.As(err, &uerr) || uerr.NodeID != 1 {
		t.Errorf("expected error to name node 1, got %v", err)
	}
}

func TestAnalyze_PathLengthOverflow(t *testing.T) {
	records := []graph.Record{
		{ID: 0, Children: []int{1}, Operator: "MUL"},
		{ID: 1, Operator: "MUL"},
	}
	lib := oplib.New(oplib.Timing{"MUL": math.MaxInt/2 + 1}, nil)
	g := testutil.BuildGraph(t, records)

	_, err := Analyze(g, lib)
	if !errors.Is(err, oplib.ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestSlack_MissingBounds(t *testing.T) {
	records, _ := testutil.Chain()
	g := testutil.BuildGraph(t, records)

	if err := Slack(g); !errors.Is(err, ErrBoundsMissing) {
		t.Fatalf("expected ErrBoundsMissing, got %v", err)
	}
}

func TestSlack_SeedsPriority(t *testing.T) {
	records, lib := testutil.Mixed()
	g := testutil.BuildGraph(t, records)

	if _, err := Analyze(g, lib); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range g.IDs() {
		op := g.Node(id)
		if s, _ := op.Slack(); op.Priority != s {
			t.Errorf("node %d: expected priority %d, got %d", id, s, op.Priority)
		}
	}
}

func assertBounds(t *testing.T, op *graph.Operation, asap, alap, slack int) {
	t.Helper()
	if got, ok := op.ASAP(); !ok || got != asap {
		t.Errorf("node %d: expected ASAP=%d, got %d (set=%v)", op.ID, asap, got, ok)
	}
	if got, ok := op.ALAP(); !ok || got != alap {
		t.Errorf("node %d: expected ALAP=%d, got %d (set=%v)", op.ID, alap, got, ok)
	}
	if got, ok := op.Slack(); !ok || got != slack {
		t.Errorf("node %d: expected slack=%d, got %d (set=%v)", op.ID, slack, got, ok)
	}
}
