package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUploadCycleCommitsAfterBarrier(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploads = 2
	h := newHarness(t, cfg)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.p.EnqueueUpload(bytesItem(fmt.Sprintf("image-%d", i), 100)))
	}

	var uploadsAtCommit atomic.Int64
	h.committer.setRespond(func(dest string, tokens []string) ([]CommitResult, error) {
		uploadsAtCommit.Store(int64(h.uploader.totalCalls()))
		return allCode(0)(dest, tokens)
	})

	res, err := h.p.RunUploadCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Dispatched)
	assert.Equal(t, 5, res.Succeeded)
	assert.Equal(t, int64(5), uploadsAtCommit.Load(), "commit runs after every upload finished")

	calls := h.committer.callList()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].tokens, 5)
	assert.Equal(t, 5, res.Commit.Delivered)
}

func TestRunUploadCycleDispatchBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadItems = 3
	h := newHarness(t, cfg)
	for i := 0; i < 7; i++ {
		require.NoError(t, h.p.EnqueueUpload(bytesItem(fmt.Sprintf("image-%d", i), 10)))
	}

	res, err := h.p.RunUploadCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Dispatched)
	assert.Equal(t, 4, h.p.uploads.Len())
}

func TestRunUploadCycleCommitsEvenWithoutUploads(t *testing.T) {
	h := newHarness(t, testConfig())
	seedTokens(h.p, "album-1", 2)

	res, err := h.p.RunUploadCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Dispatched)
	assert.Equal(t, 2, res.Commit.Delivered)
}

func TestRunUploadCycleBusy(t *testing.T) {
	h := newHarness(t, testConfig())
	h.uploader.block = make(chan struct{})
	h.uploader.entered = make(chan struct{}, 1)
	require.NoError(t, h.p.EnqueueUpload(bytesItem("image-1", 10)))

	done := make(chan error, 1)
	go func() {
		_, err := h.p.RunUploadCycle(context.Background())
		done <- err
	}()
	<-h.uploader.entered

	_, err := h.p.RunUploadCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleBusy)

	close(h.uploader.block)
	require.NoError(t, <-done)

	_, err = h.p.RunUploadCycle(context.Background())
	assert.NoError(t, err, "slot is released once the cycle ends")
}

func TestRunDownloadCycleBusy(t *testing.T) {
	h := newHarness(t, testConfig())
	release, ok := h.p.downloadCycle.TryAcquire()
	require.True(t, ok)

	_, err := h.p.RunDownloadCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleBusy)
	release()

	_, err = h.p.RunDownloadCycle(context.Background())
	assert.NoError(t, err)
}

func TestRunUploadCycleCancelledSkipsCommit(t *testing.T) {
	h := newHarness(t, testConfig())
	seedTokens(h.p, "album-1", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.p.RunUploadCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.committer.callList())
	assert.Equal(t, 1, h.p.tokens.Total())
}

func TestSchedulerDeliversAndCheckpoints(t *testing.T) {
	journal := &memJournal{}
	h := newHarness(t, testConfig(), WithJournal(journal))
	h.source.respond("m1", fetchResponse{data: media(400)})
	require.NoError(t, h.p.EnqueueContent(ContentReference{ID: "m1", Kind: KindImage}))

	s := NewScheduler(h.p, SchedulerConfig{
		DownloadInterval: 5 * time.Millisecond,
		UploadInterval:   5 * time.Millisecond,
		RunOnStart:       true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return h.p.Stats().Counters.Delivered == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.Positive(t, journal.saveCount())
	snap, err := journal.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Empty(t, snap.Downloads)
	assert.Empty(t, snap.Uploads)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "image-m1", snap.History[0].Item.Name)
}

func TestNewSchedulerDefaults(t *testing.T) {
	h := newHarness(t, testConfig())
	s := NewScheduler(h.p, SchedulerConfig{})
	assert.Equal(t, DefaultCycleInterval, s.cfg.DownloadInterval)
	assert.Equal(t, DefaultCycleInterval, s.cfg.UploadInterval)
}
