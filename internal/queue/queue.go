// Package queue holds requests that are applied in batches by a single owner.
package queue

import (
	"sync"
)

// Queue is a thread-safe FIFO. Producers push from any goroutine; the owner
// drains everything at once at a point of its choosing.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items in order.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain returns every queued item in push order and leaves the queue empty.
// The returned slice is owned by the caller.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// RemoveFunc drops every queued item for which match returns true and
// returns the removed items.
func (q *Queue[T]) RemoveFunc(match func(T) bool) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	var removed []T
	kept := q.items[:0]
	for _, item := range q.items {
		if match(item) {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	clear(q.items[len(kept):])
	q.items = kept
	return removed
}
