// Package memory provides an in-process fallback sink for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/marmos91/photobridge/pkg/fallback"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// Sink keeps persisted content in a map keyed by sanitized name.
type Sink struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

var _ pipeline.FallbackSink = (*Sink)(nil)

// New creates an empty sink.
func New() *Sink {
	return &Sink{items: make(map[string][]byte)}
}

// Persist reads r fully and stores it under name.
func (s *Sink) Persist(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := fallback.SanitizeName(name)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", clean, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fallback.ErrSinkClosed
	}
	s.items[clean] = data
	return "memory://" + clean, nil
}

// Get returns the content stored under name.
func (s *Sink) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.items[name]
	return data, ok
}

// Names returns the stored names in sorted order.
func (s *Sink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.items))
	for n := range s.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close rejects further writes.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
