package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/photobridge/pkg/fallback"
)

func TestSink(t *testing.T) {
	s := New()
	ctx := context.Background()

	loc, err := s.Persist(ctx, "image-2", strings.NewReader("b"))
	require.NoError(t, err)
	assert.Equal(t, "memory://image-2", loc)
	_, err = s.Persist(ctx, "image-1", strings.NewReader("a"))
	require.NoError(t, err)

	assert.Equal(t, []string{"image-1", "image-2"}, s.Names())
	data, ok := s.Get("image-2")
	require.True(t, ok)
	assert.Equal(t, "b", string(data))

	require.NoError(t, s.Close())
	_, err = s.Persist(ctx, "image-3", strings.NewReader("c"))
	assert.ErrorIs(t, err, fallback.ErrSinkClosed)
}
