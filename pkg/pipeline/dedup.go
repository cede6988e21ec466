package pipeline

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// deduper remembers recently accepted reference ids. Messaging webhooks are
// redelivered on timeouts, and the same message must not be uploaded twice.
type deduper struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, time.Time]
	window time.Duration
	now    func() time.Time
}

func newDeduper(size int, window time.Duration, now func() time.Time) (*deduper, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("dedup cache init: %w", err)
	}
	return &deduper{cache: cache, window: window, now: now}, nil
}

// seen records id and reports whether it was already recorded within the window.
// A nil deduper never reports duplicates.
func (d *deduper) seen(id string) bool {
	if d == nil || id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if ts, ok := d.cache.Get(id); ok {
		if now.Sub(ts) <= d.window {
			return true
		}
		d.cache.Remove(id)
	}
	d.cache.Add(id, now)
	return false
}
