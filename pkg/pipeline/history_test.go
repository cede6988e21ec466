package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRingEvictsOldest(t *testing.T) {
	h := NewHistoryRing(100)

	for i := 1; i <= 101; i++ {
		h.Record(&UploadItem{Name: fmt.Sprintf("image-%d", i)}, fmt.Sprintf("tok-%d", i))
	}

	assert.Equal(t, 100, h.Len())
	assert.Equal(t, 100, h.Cap())

	_, ok := h.Lookup("tok-1")
	assert.False(t, ok, "first token should have been evicted")

	e, ok := h.Lookup("tok-2")
	require.True(t, ok)
	assert.Equal(t, "image-2", e.Item.Name)

	e, ok = h.Lookup("tok-101")
	require.True(t, ok)
	assert.Equal(t, "image-101", e.Item.Name)

	entries := h.Entries()
	require.Len(t, entries, 100)
	assert.Equal(t, "tok-2", entries[0].Token)
	assert.Equal(t, "tok-101", entries[99].Token)
}

func TestHistoryRingPartialFill(t *testing.T) {
	h := NewHistoryRing(5)
	h.Record(&UploadItem{Name: "a"}, "t1")
	h.Record(&UploadItem{Name: "b"}, "t2")

	assert.Equal(t, 2, h.Len())
	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "t1", entries[0].Token)
	assert.Equal(t, "t2", entries[1].Token)
	assert.False(t, entries[0].RecordedAt.IsZero())
}

func TestHistoryRingDuplicateToken(t *testing.T) {
	h := NewHistoryRing(2)
	h.Record(&UploadItem{Name: "first"}, "same")
	h.Record(&UploadItem{Name: "second"}, "same")

	e, ok := h.Lookup("same")
	require.True(t, ok)
	assert.Equal(t, "second", e.Item.Name)

	// Overwriting the older slot must not drop the newer index entry.
	h.Record(&UploadItem{Name: "third"}, "other")
	e, ok = h.Lookup("same")
	require.True(t, ok)
	assert.Equal(t, "second", e.Item.Name)
}

func TestHistoryRingDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultHistoryCapacity, NewHistoryRing(0).Cap())
}
