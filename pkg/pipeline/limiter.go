package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting semaphore bounding in-flight operations of one kind.
//
// Acquire ordering is not fair. The active count never exceeds the capacity,
// and the release handle returned by Acquire may be called any number of
// times; only the first call frees the slot.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int64
	active   atomic.Int64
}

// NewLimiter creates a limiter with n slots. n < 1 is treated as 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(n)),
		capacity: int64(n),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return l.handle(), nil
}

// TryAcquire takes a slot without blocking.
func (l *Limiter) TryAcquire() (func(), bool) {
	if !l.sem.TryAcquire(1) {
		return nil, false
	}
	return l.handle(), true
}

func (l *Limiter) handle() func() {
	l.active.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			l.active.Add(-1)
			l.sem.Release(1)
		})
	}
}

// Active returns the number of slots currently held.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the number of slots.
func (l *Limiter) Capacity() int {
	return int(l.capacity)
}
