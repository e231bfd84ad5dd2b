// Package cpm computes the resource-free bounds of a data-flow graph: the
// ASAP and ALAP start times of every operation and the slack between them.
package cpm

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/gammazero/deque"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/oplib"
)

// ErrBoundsMissing is returned by Slack when a node has no ASAP or ALAP value.
var ErrBoundsMissing = errors.New("bounds not computed")

// Analyze runs ASAP, ALAP and Slack over g and summarizes the result.
func Analyze(g *graph.DFG, lib *oplib.Library) (*Result, error) {
	finish, err := ASAP(g, lib)
	if err != nil {
		return nil, err
	}
	alapFinish, err := ALAP(g, lib, finish)
	if err != nil {
		return nil, err
	}
	if err := Slack(g); err != nil {
		return nil, err
	}
	return Summarize(g, finish, alapFinish), nil
}

// Summarize collects the critical path and ASAP steps of a graph whose
// bounds and slack are already set.
func Summarize(g *graph.DFG, asapFinish, alapFinish int) *Result {
	result := &Result{
		ASAPFinish: asapFinish,
		ALAPFinish: alapFinish,
		TopoOrder:  g.TopoOrder(),
	}
	for _, id := range result.TopoOrder {
		if s, _ := g.Node(id).Slack(); s == 0 {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}
	result.Steps = computeSteps(g)
	return result
}

// ASAP assigns every operation its earliest start time and returns the
// graph's ASAP finish time, max(asap + duration).
//
// Roots start at 0. A node is re-queued whenever a parent proposes a later
// start than the one it holds, so its final value is the maximum over all of
// its parents.
func ASAP(g *graph.DFG, lib *oplib.Library) (int, error) {
	var queue deque.Deque[int]
	for _, id := range g.Roots {
		g.Node(id).SetASAP(0)
		queue.PushBack(id)
	}

	for queue.Len() > 0 {
		op := g.Node(queue.PopFront())
		d, err := duration(lib, op)
		if err != nil {
			return 0, err
		}
		asap, _ := op.ASAP()
		if d > math.MaxInt-asap {
			return 0, overflow(op.ID)
		}
		candidate := asap + d

		for _, childID := range op.Children {
			child := g.Node(childID)
			if cur, ok := child.ASAP(); ok && cur >= candidate {
				continue
			}
			child.SetASAP(candidate)
			queue.PushBack(childID)
		}
	}

	return finishTime(g, lib, (*graph.Operation).ASAP)
}

// ALAP assigns every operation its latest start time that still lets the
// whole graph finish by maxFinish, and returns max(alap + duration).
//
// Leaves start at maxFinish - duration. A parent is re-queued whenever a child
// proposes an earlier start than the one it holds.
func ALAP(g *graph.DFG, lib *oplib.Library, maxFinish int) (int, error) {
	var queue deque.Deque[int]
	for _, id := range g.Leaves {
		op := g.Node(id)
		d, err := duration(lib, op)
		if err != nil {
			return 0, err
		}
		op.SetALAP(maxFinish - d)
		queue.PushBack(id)
	}

	for queue.Len() > 0 {
		op := g.Node(queue.PopFront())
		alap, _ := op.ALAP()

		for _, parentID := range op.Parents {
			parent := g.Node(parentID)
			d, err := duration(lib, parent)
			if err != nil {
				return 0, err
			}
			candidate := alap - d
			if cur, ok := parent.ALAP(); ok && cur <= candidate {
				continue
			}
			parent.SetALAP(candidate)
			queue.PushBack(parentID)
		}
	}

	return finishTime(g, lib, (*graph.Operation).ALAP)
}

// Slack sets slack = alap - asap on every operation and seeds its priority.
func Slack(g *graph.DFG) error {
	for _, id := range g.IDs() {
		op := g.Node(id)
		asap, ok1 := op.ASAP()
		alap, ok2 := op.ALAP()
		if !ok1 || !ok2 {
			return fmt.Errorf("node %d: %w", id, ErrBoundsMissing)
		}
		op.SetSlack(alap - asap)
	}
	return nil
}

func overflow(id int) error {
	return fmt.Errorf("node %d: %w: path length overflows int", id, oplib.ErrInvalidEntry)
}

func duration(lib *oplib.Library, op *graph.Operation) (int, error) {
	d, err := lib.Duration(op.Operator)
	if err != nil {
		var uerr *oplib.UnknownOperatorError
		if errors.As(err, &uerr) {
			uerr.NodeID = op.ID
		}
		return 0, err
	}
	return d, nil
}

func finishTime(g *graph.DFG, lib *oplib.Library, bound func(*graph.Operation) (int, bool)) (int, error) {
	finish := 0
	for _, id := range g.IDs() {
		op := g.Node(id)
		d, err := duration(lib, op)
		if err != nil {
			return 0, err
		}
		start, ok := bound(op)
		if !ok {
			return 0, fmt.Errorf("node %d: %w", id, ErrBoundsMissing)
		}
		if d > math.MaxInt-start {
			return 0, overflow(id)
		}
		if start+d > finish {
			finish = start + d
		}
	}
	return finish, nil
}

// computeSteps groups operations by their ASAP start time.
func computeSteps(g *graph.DFG) []Step {
	groups := make(map[int][]int)
	for _, id := range g.IDs() {
		asap, _ := g.Node(id).ASAP()
		groups[asap] = append(groups[asap], id)
	}

	times := make([]int, 0, len(groups))
	for t := range groups {
		times = append(times, t)
	}
	sort.Ints(times)

	steps := make([]Step, len(times))
	for i, t := range times {
		ids := groups[t]
		critical := false
		for _, id := range ids {
			if s, _ := g.Node(id).Slack(); s == 0 {
				critical = true
			}
		}

		// Critical operations first within a step
		sort.SliceStable(ids, func(a, b int) bool {
			sa, _ := g.Node(ids[a]).Slack()
			sb, _ := g.Node(ids[b]).Slack()
			return sa == 0 && sb != 0
		})

		steps[i] = Step{Index: i, Time: t, IDs: ids, IsCritical: critical}
	}
	return steps
}
