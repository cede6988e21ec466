// Package spool watches a local directory and hands settled files to the
// upload queue.
//
// A file is enqueued once it has gone Settle without a create or write
// event. Files present when the watcher starts are picked up by an initial
// scan. Hidden files and editor temporaries are ignored.
package spool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// DefaultSettle is used when Config.Settle is zero.
const DefaultSettle = 2 * time.Second

const minPollInterval = 50 * time.Millisecond

// Enqueuer accepts items for upload.
type Enqueuer interface {
	EnqueueUpload(item *pipeline.UploadItem) error
}

// Config configures a Watcher.
type Config struct {
	// Dir is the watched directory. It is created if missing.
	Dir string

	// Settle is how long a file must stay quiet before it is enqueued.
	Settle time.Duration

	// Destination overrides the album for every spool item. Empty lets the
	// pipeline resolve one from the item's kind.
	Destination string
}

// Watcher enqueues files dropped into a directory.
type Watcher struct {
	dir         string
	settle      time.Duration
	destination string
	target      Enqueuer

	// Owned by the Run goroutine.
	pending map[string]time.Time
	queued  map[string]time.Time
}

// New creates a watcher. Call Run to start it.
func New(cfg Config, target Enqueuer) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("spool directory is required")
	}
	if target == nil {
		return nil, errors.New("spool target is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve spool directory: %w", err)
	}
	settle := cfg.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:         dir,
		settle:      settle,
		destination: cfg.Destination,
		target:      target,
		pending:     make(map[string]time.Time),
		queued:      make(map[string]time.Time),
	}, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create spool directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// Scan after Add so nothing written in between is missed.
	if err := w.scan(); err != nil {
		logger.Warn("Spool scan failed", logger.KeyPath, w.dir, logger.KeyError, err)
	}

	ticker := time.NewTicker(max(w.settle/2, minPollInterval))
	defer ticker.Stop()

	logger.Info("Spool watcher started", logger.KeyPath, w.dir, "settle", w.settle.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("Spool watcher stopped", logger.KeyPath, w.dir)
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Spool watcher error", logger.KeyError, err)

		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if ignored(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.pending[event.Name] = time.Now()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
		delete(w.queued, event.Name)
	}
}

func (w *Watcher) scan() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, e := range entries {
		if e.IsDir() || ignored(e.Name()) {
			continue
		}
		w.pending[filepath.Join(w.dir, e.Name())] = now.Add(-w.settle)
	}
	return nil
}

// flush enqueues every pending file that has been quiet for the settle time.
func (w *Watcher) flush(now time.Time) {
	for path, last := range w.pending {
		if now.Sub(last) < w.settle {
			continue
		}
		delete(w.pending, path)
		w.enqueue(path)
	}
}

func (w *Watcher) enqueue(path string) {
	body, err := pipeline.NewFileBody(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Debug("Spool entry skipped", logger.KeyPath, path, logger.KeyError, err)
		}
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	// A later write to an enqueued file resends it; an unchanged file does not.
	if prev, ok := w.queued[path]; ok && prev.Equal(info.ModTime()) {
		return
	}

	name := filepath.Base(path)
	item := &pipeline.UploadItem{
		Name:        name,
		Kind:        KindForName(name),
		SourceID:    "spool:" + name,
		Destination: w.destination,
		Body:        body,
	}
	if err := w.target.EnqueueUpload(item); err != nil {
		logger.Warn("Spool file rejected",
			logger.KeyPath, path,
			logger.KeyItem, name,
			logger.KeyError, err)
		return
	}
	w.queued[path] = info.ModTime()
	logger.Info("Spool file queued",
		logger.KeyItem, name,
		logger.KeyKind, item.Kind,
		logger.KeySize, body.Size())
}

// ignored reports names that are never uploaded.
func ignored(path string) bool {
	name := filepath.Base(path)
	if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmp", ".part", ".swp", ".crdownload":
		return true
	}
	return false
}

var extKinds = map[string]pipeline.MediaKind{
	".jpg": pipeline.KindImage, ".jpeg": pipeline.KindImage, ".png": pipeline.KindImage,
	".gif": pipeline.KindImage, ".webp": pipeline.KindImage, ".heic": pipeline.KindImage,
	".heif": pipeline.KindImage, ".bmp": pipeline.KindImage, ".tif": pipeline.KindImage,
	".tiff": pipeline.KindImage,

	".mp4": pipeline.KindVideo, ".mov": pipeline.KindVideo, ".m4v": pipeline.KindVideo,
	".avi": pipeline.KindVideo, ".mkv": pipeline.KindVideo, ".3gp": pipeline.KindVideo,
	".webm": pipeline.KindVideo, ".mpg": pipeline.KindVideo, ".mpeg": pipeline.KindVideo,

	".m4a": pipeline.KindAudio, ".mp3": pipeline.KindAudio, ".aac": pipeline.KindAudio,
	".wav": pipeline.KindAudio, ".ogg": pipeline.KindAudio, ".flac": pipeline.KindAudio,
}

// KindForName infers the media kind from a file extension.
func KindForName(name string) pipeline.MediaKind {
	if k, ok := extKinds[strings.ToLower(filepath.Ext(name))]; ok {
		return k
	}
	return pipeline.KindFile
}
