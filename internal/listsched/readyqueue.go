package listsched

import (
	"cmp"

	"github.com/addrummond/heap"

	"github.com/joshharrison/hlsched/internal/graph"
)

// readyItem orders ready operations by (priority, id), lowest first.
type readyItem struct {
	priority int
	id       int
	op       *graph.Operation
}

func (a *readyItem) Cmp(b *readyItem) int {
	if c := cmp.Compare(a.priority, b.priority); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

type readyQueue struct {
	h heap.Heap[readyItem, heap.Min]
}

func (q *readyQueue) push(op *graph.Operation) {
	heap.PushOrderable(&q.h, readyItem{priority: op.Priority, id: op.ID, op: op})
}

func (q *readyQueue) pop() (*graph.Operation, bool) {
	item, ok := heap.PopOrderable(&q.h)
	if !ok {
		return nil, false
	}
	return item.op, true
}
