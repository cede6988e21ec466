package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Content source
// ============================================================================

type fetchResponse struct {
	data []byte
	err  error
}

type fakeSource struct {
	mu        sync.Mutex
	responses map[string][]fetchResponse // consumed in order, last one repeats
	calls     map[string]int
	block     chan struct{} // when set, every fetch waits on it
	entered   chan struct{} // when set, receives one value per fetch
	inFlight  int
	peak      int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		responses: make(map[string][]fetchResponse),
		calls:     make(map[string]int),
	}
}

func (s *fakeSource) respond(id string, rs ...fetchResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[id] = append(s.responses[id], rs...)
}

func (s *fakeSource) FetchContent(ctx context.Context, ref ContentReference) ([]byte, error) {
	s.mu.Lock()
	s.inFlight++
	s.peak = max(s.peak, s.inFlight)
	block, entered := s.block, s.entered
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.calls[ref.ID]
	s.calls[ref.ID]++
	rs := s.responses[ref.ID]
	if len(rs) == 0 {
		return nil, fmt.Errorf("no content for %s", ref.ID)
	}
	if n >= len(rs) {
		n = len(rs) - 1
	}
	return rs[n].data, rs[n].err
}

func (s *fakeSource) peakInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

func (s *fakeSource) callCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

// ============================================================================
// Uploader
// ============================================================================

type fakeUploader struct {
	mu       sync.Mutex
	failures map[string]int // remaining failures per item name
	calls    map[string]int
	total    int
	seq      int
	block    chan struct{} // when set, every call waits on it
	entered  chan struct{} // when set, receives one value per call
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (u *fakeUploader) failTimes(name string, n int) {
	u.mu.Lock()
	u.failures[name] = n
	u.mu.Unlock()
}

func (u *fakeUploader) CreateUploadSession(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if u.entered != nil {
		u.entered <- struct{}{}
	}
	if u.block != nil {
		select {
		case <-u.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("size mismatch: read %d, declared %d", len(data), size)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls[name]++
	u.total++
	if u.failures[name] > 0 {
		u.failures[name]--
		return "", fmt.Errorf("upload %s: %w", name, ErrTransient)
	}
	u.seq++
	return fmt.Sprintf("tok-%s-%d", name, u.seq), nil
}

func (u *fakeUploader) callCount(name string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[name]
}

func (u *fakeUploader) totalCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total
}

// ============================================================================
// Batch committer
// ============================================================================

type commitCall struct {
	destination string
	tokens      []string
}

type fakeCommitter struct {
	mu      sync.Mutex
	calls   []commitCall
	respond func(dest string, tokens []string) ([]CommitResult, error)
}

func newFakeCommitter() *fakeCommitter {
	return &fakeCommitter{respond: allCode(0)}
}

// allCode answers every token with the same result code.
func allCode(code int) func(string, []string) ([]CommitResult, error) {
	return func(_ string, tokens []string) ([]CommitResult, error) {
		out := make([]CommitResult, len(tokens))
		for i, tok := range tokens {
			out[i] = CommitResult{Token: tok, Code: code}
		}
		return out, nil
	}
}

func (c *fakeCommitter) BatchCreate(_ context.Context, dest string, tokens []string) ([]CommitResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, commitCall{destination: dest, tokens: append([]string(nil), tokens...)})
	respond := c.respond
	c.mu.Unlock()
	return respond(dest, tokens)
}

func (c *fakeCommitter) setRespond(fn func(string, []string) ([]CommitResult, error)) {
	c.mu.Lock()
	c.respond = fn
	c.mu.Unlock()
}

func (c *fakeCommitter) callList() []commitCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]commitCall(nil), c.calls...)
}

// ============================================================================
// Fallback sink
// ============================================================================

type memSink struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string
	err   error
}

func newMemSink() *memSink {
	return &memSink{files: make(map[string][]byte)}
}

func (s *memSink) Persist(_ context.Context, name string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.files[name] = buf.Bytes()
	s.order = append(s.order, name)
	return "mem://" + name, nil
}

func (s *memSink) persisted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// ============================================================================
// Journal
// ============================================================================

type memJournal struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int
}

func (j *memJournal) Save(_ context.Context, snap *Snapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snap = snap
	j.saves++
	return nil
}

func (j *memJournal) Load(context.Context) (*Snapshot, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap, nil
}

func (j *memJournal) saveCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.saves
}

// ============================================================================
// Clock
// ============================================================================

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ============================================================================
// Harness
// ============================================================================

type harness struct {
	p         *Pipeline
	source    *fakeSource
	uploader  *fakeUploader
	committer *fakeCommitter
	sink      *memSink
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DefaultDestination = "album-1"
	cfg.UploadDelayMin = 0
	cfg.UploadDelayMax = 0
	return cfg
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		source:    newFakeSource(),
		uploader:  newFakeUploader(),
		committer: newFakeCommitter(),
		sink:      newMemSink(),
	}
	opts = append([]Option{WithSleeper(noSleep)}, opts...)
	p, err := New(cfg, h.source, h.uploader, h.committer, h.sink, opts...)
	require.NoError(t, err)
	h.p = p
	return h
}

func media(n int) []byte {
	return bytes.Repeat([]byte{0xFF}, n)
}

func bytesItem(name string, n int) *UploadItem {
	return &UploadItem{Name: name, Kind: KindImage, Destination: "album-1", Body: BytesBody(media(n))}
}

var errBoom = errors.New("boom")
