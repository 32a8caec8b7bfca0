package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// queueItem is one planned check execution. Items are cheap value types;
// cancellation works by generation mismatch at pop time, never by
// searching the heap.
type queueItem struct {
	monitorID uuid.UUID
	gen       uint64
	runAt     time.Time
}

// dueQueue is a min-heap ordered by runAt, used with container/heap.
type dueQueue []queueItem

func (q dueQueue) Len() int           { return len(q) }
func (q dueQueue) Less(i, j int) bool { return q[i].runAt.Before(q[j].runAt) }
func (q dueQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *dueQueue) Push(x any)        { *q = append(*q, x.(queueItem)) }
func (q *dueQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
