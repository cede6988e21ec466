package pipeline

import "sync"

// Queue is an unbounded, mutex-protected FIFO.
//
// Retried items are pushed back at the tail, so global order across retries
// is not preserved.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items at the tail.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

// PopN removes and returns up to n items from the head.
func (q *Queue[T]) PopN(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.items) == 0 {
		return nil
	}
	if n > len(q.items) {
		n = len(q.items)
	}

	out := make([]T, n)
	copy(out, q.items[:n])

	// Zero the vacated prefix so popped items can be collected.
	var zero T
	for i := 0; i < n; i++ {
		q.items[i] = zero
	}
	q.items = q.items[n:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the queued items in order.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

// Visit calls fn for each queued item, in order, while holding the queue lock.
// Items are only mutated while out of the queue, so fn observes them at rest.
// fn must not call back into the queue.
func (q *Queue[T]) Visit(fn func(T)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		fn(item)
	}
}
