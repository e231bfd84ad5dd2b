package graph

import (
	"sort"

	"github.com/gammazero/deque"
)

// Build constructs a DFG from node records. total is the node count declared
// by the input; a negative total skips the count check.
//
// Parents are derived by appending every node's id to the parent list of each
// of its children. Dangling children, duplicate ids, repeated or self edges and
// cycles are rejected with a MalformedGraphError.
func Build(total int, records []Record) (*DFG, error) {
	if total >= 0 && total != len(records) {
		return nil, malformed(-1, "declared %d nodes but found %d records", total, len(records))
	}

	g := &DFG{
		Ops: make(map[int]*Operation, len(records)),
	}

	// Index all operations
	for _, r := range records {
		if r.ID < 0 {
			return nil, malformed(r.ID, "negative id")
		}
		if _, dup := g.Ops[r.ID]; dup {
			return nil, malformed(r.ID, "duplicate id")
		}
		children := make([]int, len(r.Children))
		copy(children, r.Children)
		g.Ops[r.ID] = &Operation{
			ID:       r.ID,
			Operator: r.Operator,
			Children: children,
		}
		g.order = append(g.order, r.ID)
	}
	sort.Ints(g.order)

	for _, id := range g.order {
		op := g.Ops[id]
		if op.Operator == "" {
			return nil, malformed(id, "empty operator")
		}
		seen := make(map[int]bool, len(op.Children))
		for _, child := range op.Children {
			if child == id {
				return nil, malformed(id, "self edge")
			}
			if seen[child] {
				return nil, malformed(id, "child %d listed twice", child)
			}
			seen[child] = true
			c, ok := g.Ops[child]
			if !ok {
				return nil, malformed(id, "child %d does not exist", child)
			}
			c.Parents = append(c.Parents, id)
		}
	}

	for _, id := range g.order {
		op := g.Ops[id]
		if len(op.Parents) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(op.Children) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}

	if cycle := g.DetectCycle(); cycle != nil {
		return nil, &MalformedGraphError{ID: cycle[0], Reason: "dependency cycle", Cycle: cycle}
	}

	return g, nil
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (g *DFG) DetectCycle() []int {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[int]int, len(g.Ops))
	parent := make(map[int]int)

	var dfs func(node int) []int
	dfs = func(node int) []int {
		color[node] = gray
		for _, next := range g.Ops[node].Children {
			if color[next] == gray {
				cycle := []int{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.IDs() {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Len returns the number of operations in the graph.
func (g *DFG) Len() int {
	return len(g.Ops)
}

// Node returns the operation with the given id, or nil.
func (g *DFG) Node(id int) *Operation {
	return g.Ops[id]
}

// IDs returns every operation id in ascending order.
func (g *DFG) IDs() []int {
	if len(g.order) != len(g.Ops) {
		g.order = g.order[:0]
		for id := range g.Ops {
			g.order = append(g.order, id)
		}
		sort.Ints(g.order)
	}
	out := make([]int, len(g.order))
	copy(out, g.order)
	return out
}

// Operators returns the distinct operator names used by the graph, sorted.
func (g *DFG) Operators() []string {
	set := make(map[string]bool)
	for _, op := range g.Ops {
		set[op.Operator] = true
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OperatorUsers maps each operator to the smallest id of a node using it.
func (g *DFG) OperatorUsers() map[string]int {
	users := make(map[string]int)
	for _, id := range g.IDs() {
		op := g.Ops[id].Operator
		if _, ok := users[op]; !ok {
			users[op] = id
		}
	}
	return users
}

// TopoOrder returns the ids in topological order using Kahn's algorithm,
// taking the smallest id first among nodes that become free together.
func (g *DFG) TopoOrder() []int {
	inDegree := make(map[int]int, len(g.Ops))
	for id, op := range g.Ops {
		inDegree[id] = len(op.Parents)
	}

	var queue deque.Deque[int]
	for _, id := range g.Roots {
		queue.PushBack(id)
	}

	order := make([]int, 0, len(g.Ops))
	for queue.Len() > 0 {
		node := queue.PopFront()
		order = append(order, node)

		var newReady []int
		for _, succ := range g.Ops[node].Children {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				newReady = append(newReady, succ)
			}
		}
		sort.Ints(newReady)
		for _, id := range newReady {
			queue.PushBack(id)
		}
	}
	return order
}

// Reset clears every scheduling attribute so the graph can be analyzed again.
func (g *DFG) Reset() {
	for _, op := range g.Ops {
		op.reset()
	}
}
