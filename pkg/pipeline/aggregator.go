package pipeline

import "sync"

// Aggregator accumulates delivery tokens per destination until they are
// committed.
type Aggregator struct {
	mu      sync.Mutex
	buffers map[string][]string
	order   []string // destinations in first-seen order
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{buffers: make(map[string][]string)}
}

// Append adds tokens to the tail of the destination's buffer.
func (a *Aggregator) Append(destination string, tokens ...string) {
	if len(tokens) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.buffers[destination]; !ok {
		a.order = append(a.order, destination)
	}
	a.buffers[destination] = append(a.buffers[destination], tokens...)
}

// Requeue pushes tokens back for a later commit. They re-enter at the tail.
func (a *Aggregator) Requeue(destination string, tokens ...string) {
	a.Append(destination, tokens...)
}

// Take removes and returns up to n tokens from the head of the
// destination's buffer.
func (a *Aggregator) Take(destination string, n int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf := a.buffers[destination]
	if n <= 0 || len(buf) == 0 {
		return nil
	}
	if n > len(buf) {
		n = len(buf)
	}

	out := make([]string, n)
	copy(out, buf[:n])
	rest := buf[n:]
	if len(rest) == 0 {
		rest = nil
	}
	a.buffers[destination] = rest
	return out
}

// Destinations returns destinations with buffered tokens, in first-seen order.
func (a *Aggregator) Destinations() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []string
	for _, d := range a.order {
		if len(a.buffers[d]) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of tokens buffered for destination.
func (a *Aggregator) Len(destination string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers[destination])
}

// Total returns the number of tokens buffered across destinations.
func (a *Aggregator) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, buf := range a.buffers {
		n += len(buf)
	}
	return n
}

// Snapshot returns a copy of all non-empty buffers.
func (a *Aggregator) Snapshot() map[string][]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string][]string, len(a.buffers))
	for d, buf := range a.buffers {
		if len(buf) == 0 {
			continue
		}
		out[d] = append([]string(nil), buf...)
	}
	return out
}
