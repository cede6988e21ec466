package spool

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/photobridge/pkg/pipeline"
)

type recorder struct {
	mu    sync.Mutex
	items []*pipeline.UploadItem
	err   error
}

func (r *recorder) EnqueueUpload(item *pipeline.UploadItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, item)
	return nil
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it.Name)
	}
	return out
}

func startWatcher(t *testing.T, cfg Config, target Enqueuer) *Watcher {
	t.Helper()
	w, err := New(cfg, target)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return w
}

func TestWatcher_PicksUpExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("jpeg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.jpg"), []byte("x"), 0644))

	rec := &recorder{}
	startWatcher(t, Config{Dir: dir, Settle: 20 * time.Millisecond, Destination: "album-1"}, rec)

	require.Eventually(t, func() bool { return len(rec.names()) == 1 }, 3*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	item := rec.items[0]
	rec.mu.Unlock()
	assert.Equal(t, "a.jpg", item.Name)
	assert.Equal(t, pipeline.KindImage, item.Kind)
	assert.Equal(t, "album-1", item.Destination)
	assert.Equal(t, int64(4), item.Body.Size())
}

func TestWatcher_EnqueuesNewFilesOnce(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, Config{Dir: dir, Settle: 20 * time.Millisecond}, rec)

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("video"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mp4.part"), []byte("partial"), 0644))

	require.Eventually(t, func() bool { return len(rec.names()) == 1 }, 3*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"clip.mp4"}, rec.names())
}

func TestWatcher_RejectedFileIsNotRemembered(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{err: pipeline.ErrNoDestination}
	w, err := New(Config{Dir: dir, Settle: time.Millisecond}, rec)
	require.NoError(t, err)

	path := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0644))

	w.enqueue(path)
	assert.Empty(t, w.queued)

	rec.err = nil
	w.enqueue(path)
	assert.Len(t, w.queued, 1)

	// Unchanged file is not sent twice.
	w.enqueue(path)
	assert.Len(t, rec.names(), 1)
}

func TestWatcher_FlushHonorsSettle(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(Config{Dir: dir, Settle: time.Minute}, rec)
	require.NoError(t, err)

	path := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0644))

	now := time.Now()
	w.pending[path] = now
	w.flush(now.Add(30 * time.Second))
	assert.Empty(t, rec.names())
	assert.Contains(t, w.pending, path)

	w.flush(now.Add(time.Minute))
	assert.Equal(t, []string{"a.png"}, rec.names())
	assert.NotContains(t, w.pending, path)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, &recorder{})
	assert.Error(t, err)

	_, err = New(Config{Dir: t.TempDir()}, nil)
	assert.Error(t, err)

	w, err := New(Config{Dir: t.TempDir()}, &recorder{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSettle, w.settle)
	assert.True(t, filepath.IsAbs(w.Dir()))
}

func TestKindForName(t *testing.T) {
	tests := map[string]pipeline.MediaKind{
		"IMG_0001.JPG": pipeline.KindImage,
		"photo.heic":   pipeline.KindImage,
		"movie.MOV":    pipeline.KindVideo,
		"voice.m4a":    pipeline.KindAudio,
		"notes.pdf":    pipeline.KindFile,
		"noext":        pipeline.KindFile,
	}
	for name, want := range tests {
		assert.Equal(t, want, KindForName(name), name)
	}
}

func TestIgnored(t *testing.T) {
	for _, name := range []string{".DS_Store", "a.tmp", "b.part", "c.jpg~", "d.crdownload"} {
		assert.True(t, ignored(name), name)
	}
	assert.False(t, ignored("/spool/a.jpg"))
}
