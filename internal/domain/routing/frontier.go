package routing

import "container/heap"

// frontierItem is one heap entry. A node may be pushed again after its cost
// improves; the older entry then carries an outdated version and is skipped.
type frontierItem struct {
	id      NodeID
	f       float64
	version uint32
}

// frontier is a min-heap on f, ties broken by ascending node id.
type frontier []frontierItem

func (q frontier) Len() int { return len(q) }

func (q frontier) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].id < q[j].id
}

func (q frontier) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *frontier) Push(x interface{}) {
	*q = append(*q, x.(frontierItem))
}

func (q *frontier) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (q *frontier) push(item frontierItem) { heap.Push(q, item) }

func (q *frontier) pop() frontierItem { return heap.Pop(q).(frontierItem) }
