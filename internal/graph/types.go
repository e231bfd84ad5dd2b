package graph

// Record is one node description as read from an input: the node id, the ids
// of the operations it precedes, and its operator class.
type Record struct {
	ID       int    `json:"id"`
	Children []int  `json:"children"`
	Operator string `json:"op"`
}

// Operation is a single node of the data-flow graph.
//
// Topology (ID, Operator, Children, Parents) is fixed once the graph is built.
// The scheduling attributes start unset and are filled in by the bound
// propagation passes and the list scheduler; each accessor reports whether
// its value has been set.
type Operation struct {
	ID       int
	Operator string
	Children []int // operations this one precedes, in declared order
	Parents  []int // derived from Children across the graph, ascending

	// Priority starts at the node's slack and is decremented each cycle the
	// node is ready but cannot get a functional unit.
	Priority int

	asap, alap, slack    int
	ready, start, finish int

	hasASAP, hasALAP, hasSlack bool
	hasReady, hasStart, hasFinish bool
}

// ASAP returns the earliest start time and whether it has been computed.
func (o *Operation) ASAP() (int, bool) { return o.asap, o.hasASAP }

// ALAP returns the latest start time and whether it has been computed.
func (o *Operation) ALAP() (int, bool) { return o.alap, o.hasALAP }

// Slack returns ALAP-ASAP and whether it has been computed.
func (o *Operation) Slack() (int, bool) { return o.slack, o.hasSlack }

// ReadyTime returns the cycle the node became ready in its last readiness check.
func (o *Operation) ReadyTime() (int, bool) { return o.ready, o.hasReady }

// StartTime returns the dispatch cycle.
func (o *Operation) StartTime() (int, bool) { return o.start, o.hasStart }

// FinishTime returns the last cycle (inclusive) the node occupies its unit.
func (o *Operation) FinishTime() (int, bool) { return o.finish, o.hasFinish }

func (o *Operation) SetASAP(v int) { o.asap, o.hasASAP = v, true }
func (o *Operation) SetALAP(v int) { o.alap, o.hasALAP = v, true }

// SetSlack records the slack and seeds Priority with it.
func (o *Operation) SetSlack(v int) {
	o.slack, o.hasSlack = v, true
	o.Priority = v
}

func (o *Operation) SetReadyTime(v int) { o.ready, o.hasReady = v, true }

// SetScheduled records the dispatch of the node: it starts at start and holds
// its unit through finish.
func (o *Operation) SetScheduled(start, finish int) {
	o.start, o.hasStart = start, true
	o.finish, o.hasFinish = finish, true
}

// Scheduled reports whether the node has been dispatched.
func (o *Operation) Scheduled() bool { return o.hasFinish }

func (o *Operation) reset() {
	*o = Operation{
		ID:       o.ID,
		Operator: o.Operator,
		Children: o.Children,
		Parents:  o.Parents,
	}
}

// DFG is a directed acyclic data-flow graph of operations.
type DFG struct {
	Ops    map[int]*Operation
	Roots  []int // operations with no parents, ascending
	Leaves []int // operations with no children, ascending

	order []int // every id, ascending
}
