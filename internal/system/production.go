package system

import "github.com/gridmud/server/internal/persist"

// ProductionQueue buffers production_log entries between the cycle scheduler
// and the persist phase. Game loop goroutine only.
type ProductionQueue struct {
	pending []persist.ProductionEntry
}

func NewProductionQueue() *ProductionQueue {
	return &ProductionQueue{}
}

func (q *ProductionQueue) Push(e persist.ProductionEntry) {
	q.pending = append(q.pending, e)
}

// Drain returns the buffered entries and empties the queue.
func (q *ProductionQueue) Drain() []persist.ProductionEntry {
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Requeue puts entries back at the front after a failed flush so they are
// retried before anything newer.
func (q *ProductionQueue) Requeue(entries []persist.ProductionEntry) {
	if len(entries) == 0 {
		return
	}
	q.pending = append(entries, q.pending...)
}

func (q *ProductionQueue) Len() int {
	return len(q.pending)
}
