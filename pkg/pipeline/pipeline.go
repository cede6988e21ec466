package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/photobridge/internal/logger"
)

// Pipeline owns the queues, token buffers and history of the ingestion
// pipeline and runs its cycles.
//
// Data flow:
//
//	EnqueueContent -> download queue -> RunDownloadCycle -> upload queue
//	  -> RunUploadCycle (UploadOne x N, barrier) -> CommitCycle
//	  -> delivered | token re-queued | fallback sink
//
// All methods are safe for concurrent use.
type Pipeline struct {
	cfg Config

	source    ContentSource
	uploader  Uploader
	committer BatchCommitter
	sink      FallbackSink
	metrics   Metrics
	journal   Journal

	downloads *Queue[*ContentReference]
	uploads   *Queue[*UploadItem]
	tokens    *Aggregator
	history   *HistoryRing
	dedup     *deduper

	downloadSlots *Limiter
	uploadSlots   *Limiter
	downloadCycle *Limiter
	uploadCycle   *Limiter

	attemptsMu     sync.Mutex
	commitAttempts map[string]int

	randMu sync.Mutex
	rng    *rand.Rand
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time

	counters counters
	closed   atomic.Bool
}

// counters are cumulative since the pipeline was created.
type counters struct {
	accepted       atomic.Int64
	rejected       atomic.Int64
	fetched        atomic.Int64
	fetchRetries   atomic.Int64
	fetchFailures  atomic.Int64
	uploaded       atomic.Int64
	uploadRetries  atomic.Int64
	delivered      atomic.Int64
	commitRetries  atomic.Int64
	fallbacks      atomic.Int64
	fallbackErrors atomic.Int64
	unattributable atomic.Int64
	dropped        atomic.Int64
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithMetrics sets the metrics sink. A nil value disables metrics.
func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithJournal enables Checkpoint and Restore against j.
func WithJournal(j Journal) Option {
	return func(p *Pipeline) { p.journal = j }
}

// WithSleeper replaces the function used for the pre-upload delay.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = fn }
}

// WithRandSource seeds the delay generator.
func WithRandSource(src rand.Source) Option {
	return func(p *Pipeline) { p.rng = rand.New(src) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline. The source, uploader, committer and sink are required.
func New(cfg Config, source ContentSource, uploader Uploader, committer BatchCommitter, sink FallbackSink, opts ...Option) (*Pipeline, error) {
	if source == nil || uploader == nil || committer == nil || sink == nil {
		return nil, errors.New("pipeline: source, uploader, committer and sink are required")
	}
	cfg.applyDefaults()

	p := &Pipeline{
		cfg:            cfg,
		source:         source,
		uploader:       uploader,
		committer:      committer,
		sink:           sink,
		downloads:      NewQueue[*ContentReference](),
		uploads:        NewQueue[*UploadItem](),
		tokens:         NewAggregator(),
		history:        NewHistoryRing(cfg.HistoryCapacity),
		downloadSlots:  NewLimiter(cfg.MaxDownloads),
		uploadSlots:    NewLimiter(cfg.MaxUploads),
		downloadCycle:  NewLimiter(1),
		uploadCycle:    NewLimiter(1),
		commitAttempts: make(map[string]int),
		sleep:          sleepContext,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(uint64(p.now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	p.history.now = p.now

	dedup, err := newDeduper(cfg.DedupCacheSize, cfg.DedupWindow, p.now)
	if err != nil {
		return nil, err
	}
	p.dedup = dedup

	return p, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Close rejects further enqueues. Queued work is kept for Checkpoint.
func (p *Pipeline) Close() {
	p.closed.Store(true)
}

// ============================================================================
// Enqueue
// ============================================================================

// EnqueueContent validates ref and adds it to the download queue.
//
// References with a kind or provider the pipeline does not accept are
// rejected, as is an id already accepted within the dedup window.
func (p *Pipeline) EnqueueContent(ref ContentReference) error {
	if p.closed.Load() {
		return ErrPipelineClosed
	}
	if ref.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidItem)
	}
	if !slices.Contains(p.cfg.AcceptedKinds, ref.Kind) {
		p.counters.rejected.Add(1)
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, ref.Kind)
	}
	if ref.Provider == "" {
		ref.Provider = ProviderLine
	}
	if !slices.Contains(p.cfg.AcceptedProviders, ref.Provider) {
		p.counters.rejected.Add(1)
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, ref.Provider)
	}
	if ref.Destination == "" {
		ref.Destination = p.resolveDestination(ref.Kind)
	}
	if ref.Destination == "" {
		p.counters.rejected.Add(1)
		return ErrNoDestination
	}
	if p.dedup.seen(ref.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicate, ref.ID)
	}
	if ref.ReceivedAt.IsZero() {
		ref.ReceivedAt = p.now()
	}

	p.downloads.Push(&ref)
	p.counters.accepted.Add(1)
	p.reportDepths()

	logger.Debug("Content reference queued",
		logger.KeySourceID, ref.ID,
		logger.KeyKind, ref.Kind,
		logger.KeyDestination, ref.Destination,
		logger.KeyQueueDepth, p.downloads.Len())
	return nil
}

// EnqueueUpload adds an item directly to the upload queue, for content that
// is already available locally.
func (p *Pipeline) EnqueueUpload(item *UploadItem) error {
	if p.closed.Load() {
		return ErrPipelineClosed
	}
	if item == nil || item.Name == "" || item.Body == nil {
		return ErrInvalidItem
	}
	if item.Destination == "" {
		item.Destination = p.resolveDestination(item.Kind)
	}
	if item.Destination == "" {
		return ErrNoDestination
	}

	p.uploads.Push(item)
	p.reportDepths()

	logger.Debug("Upload item queued",
		logger.KeyItem, item.Name,
		logger.KeyDestination, item.Destination,
		logger.KeySize, item.Body.Size())
	return nil
}

func (p *Pipeline) resolveDestination(kind MediaKind) string {
	if d, ok := p.cfg.KindDestinations[kind]; ok && d != "" {
		return d
	}
	return p.cfg.DefaultDestination
}

// ============================================================================
// Helpers
// ============================================================================

// uploadDelay returns a random duration in [UploadDelayMin, UploadDelayMax].
func (p *Pipeline) uploadDelay() time.Duration {
	lo, hi := p.cfg.UploadDelayMin, p.cfg.UploadDelayMax
	if hi <= lo {
		return lo
	}
	p.randMu.Lock()
	defer p.randMu.Unlock()
	return lo + time.Duration(p.rng.Int64N(int64(hi-lo)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Pipeline) reportDepths() {
	if p.metrics == nil {
		return
	}
	p.metrics.SetQueueDepth(QueueDownload, p.downloads.Len())
	p.metrics.SetQueueDepth(QueueUpload, p.uploads.Len())
	p.metrics.SetBufferedTokens(p.tokens.Total())
}

func (p *Pipeline) reportInFlight() {
	if p.metrics == nil {
		return
	}
	p.metrics.SetInFlight(QueueDownload, p.downloadSlots.Active())
	p.metrics.SetInFlight(QueueUpload, p.uploadSlots.Active())
}

func (p *Pipeline) recordItem(result string) {
	if p.metrics != nil {
		p.metrics.RecordItem(result)
	}
}
