// Package listsched assigns operations of an analyzed data-flow graph to
// cycles and functional units under per-operator unit limits.
//
// The scheduler steps through cycles one at a time. Each cycle it frees the
// units whose operations have finished, collects every unscheduled operation
// whose parents have all finished, and dispatches them in (priority, id)
// order while units remain. An operation that is ready but cannot get a unit
// loses one point of priority, so it sorts ahead of its competitors next time.
package listsched

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/oplib"
)

// unitPool tracks the functional units of one operator. Each slot holds the
// last cycle (inclusive) its unit is busy, or -1 when free.
type unitPool []int

func newUnitPool(n int) unitPool {
	p := make(unitPool, n)
	for i := range p {
		p[i] = -1
	}
	return p
}

// evict frees every unit whose operation finished before cycle.
func (p unitPool) evict(cycle int) {
	for i, finish := range p {
		if finish >= 0 && finish < cycle {
			p[i] = -1
		}
	}
}

// claim reserves the lowest free unit through finish and returns its index,
// or -1 if every unit is busy.
func (p unitPool) claim(finish int) int {
	for i, f := range p {
		if f < 0 {
			p[i] = finish
			return i
		}
	}
	return -1
}

func (p unitPool) busy() bool {
	for _, f := range p {
		if f >= 0 {
			return true
		}
	}
	return false
}

// ctxCheckInterval is how many cycles pass between checks of the context.
const ctxCheckInterval = 1024

// Run list-schedules g. Every node must already carry its slack (see
// cpm.Analyze); priorities start from it and are decremented on the graph's
// operations as nodes are blocked. Run gives up with ctx.Err() once ctx is
// done.
func Run(ctx context.Context, g *graph.DFG, lib *oplib.Library, cfg Config) (*Schedule, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := lib.Validate(g.OperatorUsers()); err != nil {
		return nil, err
	}

	durations := make(map[string]int)
	pools := make(map[string]unitPool)
	sched := &Schedule{Units: make(map[string]int)}
	for _, op := range g.Operators() {
		d, err := lib.Duration(op)
		if err != nil {
			return nil, err
		}
		n, err := lib.Units(op)
		if err != nil {
			return nil, err
		}
		durations[op] = d
		pools[op] = newUnitPool(n)
		sched.Units[op] = n
	}

	maxCycles := cfg.MaxCycles
	remaining := g.IDs()
	for _, id := range remaining {
		op := g.Node(id)
		if _, ok := op.Slack(); !ok {
			return nil, fmt.Errorf("node %d: %w", id, ErrNotAnalyzed)
		}
		if op.Scheduled() {
			return nil, fmt.Errorf("node %d: %w", id, ErrAlreadyScheduled)
		}
		if cfg.MaxCycles <= 0 {
			maxCycles = addSat(maxCycles, durations[op.Operator])
		}
	}
	if cfg.MaxCycles <= 0 {
		maxCycles = addSat(maxCycles, 1)
	}

	operators := g.Operators()
	cycle := 0
	for ; len(remaining) > 0; cycle++ {
		if cycle > maxCycles {
			return nil, stalled(cycle, remaining, nil, g, fmt.Sprintf("exceeded %d cycles", maxCycles))
		}
		if cycle%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("cycle %d: %w", cycle, err)
			}
		}

		for _, name := range operators {
			pools[name].evict(cycle)
		}

		var ready readyQueue
		for _, id := range remaining {
			op := g.Node(id)
			at, ok := readyTime(g, op)
			if !ok {
				continue
			}
			op.SetReadyTime(at)
			if at <= cycle {
				ready.push(op)
			}
		}

		dispatched := 0
		var blocked []*graph.Operation
		for {
			op, ok := ready.pop()
			if !ok {
				break
			}
			d := durations[op.Operator]
			finish := addSat(cycle, d-1)
			unit := pools[op.Operator].claim(finish)
			if unit < 0 {
				blocked = append(blocked, op)
				continue
			}
			op.SetScheduled(cycle, finish)
			at, _ := op.ReadyTime()
			sched.Entries = append(sched.Entries, Entry{
				ID:         op.ID,
				Operator:   op.Operator,
				ReadyTime:  at,
				StartTime:  cycle,
				FinishTime: finish,
				Unit:       unit,
				Priority:   op.Priority,
			})
			if finish > sched.TotalTime {
				sched.TotalTime = finish
			}
			dispatched++
			logger.Debug("dispatched",
				zap.Int("cycle", cycle),
				zap.Int("id", op.ID),
				zap.String("op", op.Operator),
				zap.Int("unit", unit),
				zap.Int("finish", finish))
		}

		for _, op := range blocked {
			op.Priority--
			logger.Debug("blocked",
				zap.Int("cycle", cycle),
				zap.Int("id", op.ID),
				zap.String("op", op.Operator),
				zap.Int("priority", op.Priority))
		}

		if dispatched > 0 {
			kept := remaining[:0]
			for _, id := range remaining {
				if !g.Node(id).Scheduled() {
					kept = append(kept, id)
				}
			}
			remaining = kept
			continue
		}

		// Nothing started and nothing is running: no later cycle can differ.
		anyBusy := false
		for _, name := range operators {
			if pools[name].busy() {
				anyBusy = true
				break
			}
		}
		if !anyBusy {
			return nil, stalled(cycle, remaining, blocked, g, "no unit available to any ready node")
		}
	}

	sched.Cycles = cycle
	return sched, nil
}

// addSat returns a+b for non-negative operands, clamped to math.MaxInt.
func addSat(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

// readyTime returns one past the latest parent finish, or false while some
// parent is still unscheduled. A node without parents is ready at 0.
func readyTime(g *graph.DFG, op *graph.Operation) (int, bool) {
	latest := -1
	for _, pid := range op.Parents {
		f, ok := g.Node(pid).FinishTime()
		if !ok {
			return 0, false
		}
		if f > latest {
			latest = f
		}
	}
	return latest + 1, true
}

func stalled(cycle int, remaining []int, blocked []*graph.Operation, g *graph.DFG, reason string) error {
	pending := make([]int, len(remaining))
	copy(pending, remaining)

	set := make(map[string]bool)
	for _, op := range blocked {
		set[op.Operator] = true
	}
	if len(set) == 0 {
		for _, id := range remaining {
			set[g.Node(id).Operator] = true
		}
	}
	ops := make([]string, 0, len(set))
	for name := range set {
		ops = append(ops, name)
	}
	sort.Strings(ops)

	return &StalledError{Cycle: cycle, Pending: pending, Operators: ops, Reason: reason}
}
