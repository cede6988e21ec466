package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(testConfig(), nil, newFakeUploader(), newFakeCommitter(), newMemSink())
	assert.Error(t, err)
}

func TestNewAppliesDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBatchSize = 500
	cfg.MaxDownloads = 0
	h := newHarness(t, cfg)

	got := h.p.Config()
	assert.Equal(t, MaxBatchCreateSize, got.MaxBatchSize)
	assert.Equal(t, 5, got.MaxDownloads)
	assert.NotNil(t, got.RetryPredicate)
}

func TestApplyDefaultsRetryBounds(t *testing.T) {
	t.Run("ZeroIsKept", func(t *testing.T) {
		cfg := Config{}
		cfg.applyDefaults()
		assert.Equal(t, 0, cfg.MaxRetry)
		assert.Equal(t, 0, cfg.DownloadMaxRetry)
		assert.Equal(t, 0, cfg.MaxCommitAttempts)
	})

	t.Run("NegativeIsReplaced", func(t *testing.T) {
		cfg := Config{MaxRetry: -1, DownloadMaxRetry: -1, MaxCommitAttempts: -1}
		cfg.applyDefaults()
		d := DefaultConfig()
		assert.Equal(t, d.MaxRetry, cfg.MaxRetry)
		assert.Equal(t, d.DownloadMaxRetry, cfg.DownloadMaxRetry)
		assert.Equal(t, d.MaxCommitAttempts, cfg.MaxCommitAttempts)
	})

	t.Run("DefaultConfigCarriesStandardBounds", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.applyDefaults()
		assert.Equal(t, 3, cfg.MaxRetry)
		assert.Equal(t, 10, cfg.MaxCommitAttempts)
	})
}

func TestEnqueueContent(t *testing.T) {
	t.Run("AcceptsImageAndResolvesDestination", func(t *testing.T) {
		h := newHarness(t, testConfig())
		require.NoError(t, h.p.EnqueueContent(ContentReference{ID: "m1", Kind: KindImage}))

		refs := h.p.downloads.Snapshot()
		require.Len(t, refs, 1)
		assert.Equal(t, "album-1", refs[0].Destination)
		assert.Equal(t, ProviderLine, refs[0].Provider)
		assert.False(t, refs[0].ReceivedAt.IsZero())
	})

	t.Run("KindDestinationOverride", func(t *testing.T) {
		cfg := testConfig()
		cfg.KindDestinations = map[MediaKind]string{KindVideo: "videos"}
		h := newHarness(t, cfg)

		require.NoError(t, h.p.EnqueueContent(ContentReference{ID: "v1", Kind: KindVideo}))
		assert.Equal(t, "videos", h.p.downloads.Snapshot()[0].Destination)
	})

	t.Run("RejectsUnsupportedKind", func(t *testing.T) {
		h := newHarness(t, testConfig())
		err := h.p.EnqueueContent(ContentReference{ID: "a1", Kind: KindAudio})
		assert.ErrorIs(t, err, ErrUnsupportedKind)
		assert.Equal(t, int64(1), h.p.Stats().Counters.Rejected)
	})

	t.Run("RejectsExternalProvider", func(t *testing.T) {
		h := newHarness(t, testConfig())
		err := h.p.EnqueueContent(ContentReference{ID: "x1", Kind: KindImage, Provider: "external"})
		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})

	t.Run("RejectsMissingDestination", func(t *testing.T) {
		cfg := testConfig()
		cfg.DefaultDestination = ""
		h := newHarness(t, cfg)
		err := h.p.EnqueueContent(ContentReference{ID: "m1", Kind: KindImage})
		assert.ErrorIs(t, err, ErrNoDestination)
	})

	t.Run("RejectsEmptyID", func(t *testing.T) {
		h := newHarness(t, testConfig())
		assert.ErrorIs(t, h.p.EnqueueContent(ContentReference{Kind: KindImage}), ErrInvalidItem)
	})

	t.Run("RejectsAfterClose", func(t *testing.T) {
		h := newHarness(t, testConfig())
		h.p.Close()
		assert.ErrorIs(t, h.p.EnqueueContent(ContentReference{ID: "m1", Kind: KindImage}), ErrPipelineClosed)
		assert.ErrorIs(t, h.p.EnqueueUpload(bytesItem("image-1", 10)), ErrPipelineClosed)
	})
}

func TestEnqueueContentDedup(t *testing.T) {
	clock := newFakeClock()
	h := newHarness(t, testConfig(), WithClock(clock.Now))

	ref := ContentReference{ID: "m1", Kind: KindImage}
	require.NoError(t, h.p.EnqueueContent(ref))
	assert.ErrorIs(t, h.p.EnqueueContent(ref), ErrDuplicate)

	clock.Advance(11 * time.Minute)
	require.NoError(t, h.p.EnqueueContent(ref))
	assert.Equal(t, 2, h.p.downloads.Len())
}

func TestEnqueueContentDedupDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.DedupCacheSize = 0
	h := newHarness(t, cfg)

	ref := ContentReference{ID: "m1", Kind: KindImage}
	require.NoError(t, h.p.EnqueueContent(ref))
	require.NoError(t, h.p.EnqueueContent(ref))
}

func TestEnqueueUploadValidation(t *testing.T) {
	h := newHarness(t, testConfig())

	assert.ErrorIs(t, h.p.EnqueueUpload(nil), ErrInvalidItem)
	assert.ErrorIs(t, h.p.EnqueueUpload(&UploadItem{Name: "x"}), ErrInvalidItem)

	item := &UploadItem{Name: "image-1", Kind: KindImage, Body: BytesBody("data")}
	require.NoError(t, h.p.EnqueueUpload(item))
	assert.Equal(t, "album-1", item.Destination)
	assert.Equal(t, 1, h.p.uploads.Len())
}

func TestUploadDelayWithinWindow(t *testing.T) {
	cfg := testConfig()
	cfg.UploadDelayMin = time.Second
	cfg.UploadDelayMax = 5 * time.Second
	h := newHarness(t, cfg)

	for i := 0; i < 200; i++ {
		d := h.p.uploadDelay()
		require.GreaterOrEqual(t, d, time.Second)
		require.LessOrEqual(t, d, 5*time.Second)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}

func TestStats(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.p.EnqueueContent(ContentReference{ID: "m1", Kind: KindImage}))
	require.NoError(t, h.p.EnqueueUpload(bytesItem("image-2", 10)))
	h.p.tokens.Append("album-1", "t1", "t2")

	s := h.p.Stats()
	assert.Equal(t, 1, s.DownloadQueue)
	assert.Equal(t, 1, s.UploadQueue)
	assert.Equal(t, map[string]int{"album-1": 2}, s.BufferedTokens)
	assert.Equal(t, DefaultHistoryCapacity, s.HistoryCapacity)
	assert.Equal(t, 5, s.MaxUploads)
	assert.Equal(t, int64(1), s.Counters.Accepted)
}
