package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorTakeOldestFirst(t *testing.T) {
	a := NewAggregator()
	for i := 0; i < 120; i++ {
		a.Append("album", fmt.Sprintf("t%d", i))
	}

	batch := a.Take("album", MaxBatchCreateSize)
	require.Len(t, batch, 50)
	assert.Equal(t, "t0", batch[0])
	assert.Equal(t, "t49", batch[49])
	assert.Equal(t, 70, a.Len("album"))

	a.Requeue("album", batch[:2]...)
	assert.Equal(t, 72, a.Len("album"))

	rest := a.Take("album", 100)
	require.Len(t, rest, 72)
	assert.Equal(t, "t50", rest[0])
	assert.Equal(t, "t0", rest[70], "requeued tokens go to the tail")
	assert.Equal(t, 0, a.Total())
}

func TestAggregatorDestinations(t *testing.T) {
	a := NewAggregator()
	a.Append("b", "1")
	a.Append("a", "2", "3")
	a.Append("b")

	assert.Equal(t, []string{"b", "a"}, a.Destinations())
	assert.Equal(t, 3, a.Total())

	a.Take("b", 5)
	assert.Equal(t, []string{"a"}, a.Destinations())
	assert.Equal(t, map[string][]string{"a": {"2", "3"}}, a.Snapshot())
}

func TestAggregatorTakeEmpty(t *testing.T) {
	a := NewAggregator()
	assert.Nil(t, a.Take("missing", 50))
	a.Append("x", "1")
	assert.Nil(t, a.Take("x", 0))
}
