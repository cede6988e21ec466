// Package fs persists undeliverable content to a local directory.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/fallback"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// Sink writes each item to Dir/<name>. Writes go to a temporary file in the
// same directory and are renamed into place, so a crash never leaves a
// partial file under the final name.
type Sink struct {
	dir string

	mu     sync.RWMutex
	closed bool
}

var _ pipeline.FallbackSink = (*Sink)(nil)

// New creates the directory if needed and returns a sink rooted at it.
func New(dir string) (*Sink, error) {
	if dir == "" {
		return nil, fmt.Errorf("fallback directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create fallback directory: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Persist streams r to Dir/<name> and returns the final path. An existing
// file with the same name is replaced.
func (s *Sink) Persist(ctx context.Context, name string, r io.Reader) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", fallback.ErrSinkClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean, err := fallback.SanitizeName(name)
	if err != nil {
		return "", err
	}
	final := filepath.Join(s.dir, clean)

	tmp, err := os.CreateTemp(s.dir, "."+clean+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", clean, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to sync %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", clean, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", clean, err)
	}
	committed = true

	logger.DebugCtx(ctx, "Fallback file written", logger.KeyPath, final, logger.KeySize, n)
	return final, nil
}

// Close rejects further writes.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
