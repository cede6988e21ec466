package pipeline

import (
	"sync"
	"time"
)

// HistoryRing is a fixed-capacity circular buffer of upload records.
//
// Once full, each insert overwrites the oldest entry. A token whose entry was
// overwritten can no longer be attributed to an item.
type HistoryRing struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	next    int            // slot written by the next Record
	count   int            // occupied slots
	index   map[string]int // token -> slot
	now     func() time.Time
}

// NewHistoryRing creates a ring holding at most capacity entries.
func NewHistoryRing(capacity int) *HistoryRing {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryRing{
		entries: make([]HistoryEntry, capacity),
		index:   make(map[string]int, capacity),
		now:     time.Now,
	}
}

// Record stores the token for item, evicting the oldest entry when full.
func (h *HistoryRing) Record(item *UploadItem, token string) {
	h.record(item, token, h.now())
}

func (h *HistoryRing) record(item *UploadItem, token string, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	slot := h.next
	if h.count == len(h.entries) {
		old := h.entries[slot].Token
		if idx, ok := h.index[old]; ok && idx == slot {
			delete(h.index, old)
		}
	} else {
		h.count++
	}

	h.entries[slot] = HistoryEntry{Item: item, Token: token, RecordedAt: at}
	h.index[token] = slot
	h.next = (slot + 1) % len(h.entries)
}

// Lookup returns the entry recorded for token, if it has not been evicted.
func (h *HistoryRing) Lookup(token string) (HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	slot, ok := h.index[token]
	if !ok {
		return HistoryEntry{}, false
	}
	return h.entries[slot], true
}

// Len returns the number of entries held.
func (h *HistoryRing) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Cap returns the ring capacity.
func (h *HistoryRing) Cap() int {
	return len(h.entries)
}

// Entries returns the held entries, oldest first.
func (h *HistoryRing) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, 0, h.count)
	start := (h.next - h.count + len(h.entries)) % len(h.entries)
	for i := 0; i < h.count; i++ {
		out = append(out, h.entries[(start+i)%len(h.entries)])
	}
	return out
}
