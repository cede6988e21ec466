package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/photobridge/internal/logger"
)

// DefaultCycleInterval is the default period of both scheduler ticks. It
// matches the photo service's recommended minimum retry delay.
const DefaultCycleInterval = 30 * time.Second

// UploadCycleResult summarizes one upload cycle including its commit phase.
type UploadCycleResult struct {
	Dispatched int               `json:"dispatched"`
	Succeeded  int               `json:"succeeded"`
	Retried    int               `json:"retried"`
	Failed     int               `json:"failed"`
	Lost       int               `json:"lost"`
	Cancelled  int               `json:"cancelled"`
	Commit     CommitCycleResult `json:"commit"`
}

// RunUploadCycle dispatches up to MaxUploadItems queued items to UploadOne
// concurrently, waits until every one of them has finished, then runs
// exactly one CommitCycle.
//
// Upload cycles never overlap: a call made while another is running returns
// ErrCycleBusy, so a commit never observes uploads dispatched by a later cycle.
func (p *Pipeline) RunUploadCycle(ctx context.Context) (UploadCycleResult, error) {
	release, ok := p.uploadCycle.TryAcquire()
	if !ok {
		return UploadCycleResult{}, ErrCycleBusy
	}
	defer release()

	start := time.Now()
	items := p.uploads.PopN(p.cfg.MaxUploadItems)
	result := UploadCycleResult{Dispatched: len(items)}
	outcomes := make([]UploadOutcome, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = p.UploadOne(ctx, item)
		}()
	}
	wg.Wait()

	for _, o := range outcomes {
		switch o {
		case UploadSucceeded:
			result.Succeeded++
		case UploadRetried:
			result.Retried++
		case UploadFailed:
			result.Failed++
		case UploadLost:
			result.Lost++
		case UploadCancelled:
			result.Cancelled++
		}
	}

	if len(items) > 0 {
		logger.Info("Upload phase complete",
			logger.KeyCycle, "upload",
			"dispatched", result.Dispatched,
			"succeeded", result.Succeeded,
			"retried", result.Retried,
			"failed", result.Failed,
			"lost", result.Lost,
			logger.KeyDurationMs, logger.Duration(start))
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	result.Commit = p.CommitCycle(ctx)
	return result, nil
}

// ============================================================================
// Scheduler
// ============================================================================

// SchedulerConfig configures the periodic cycles.
type SchedulerConfig struct {
	// DownloadInterval is the period of the download tick.
	// Default: 30s
	DownloadInterval time.Duration

	// UploadInterval is the period of the upload-then-commit tick.
	// Default: 30s
	UploadInterval time.Duration

	// RunOnStart fires both cycles once before waiting for the first tick.
	RunOnStart bool
}

// Scheduler drives the download and upload cycles of a pipeline on two
// independent tickers.
type Scheduler struct {
	p   *Pipeline
	cfg SchedulerConfig
}

// NewScheduler creates a scheduler for p.
func NewScheduler(p *Pipeline, cfg SchedulerConfig) *Scheduler {
	if cfg.DownloadInterval <= 0 {
		cfg.DownloadInterval = DefaultCycleInterval
	}
	if cfg.UploadInterval <= 0 {
		cfg.UploadInterval = DefaultCycleInterval
	}
	return &Scheduler{p: p, cfg: cfg}
}

// Run blocks until ctx is cancelled, then checkpoints the pipeline once more.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.Info("Scheduler started",
		"download_interval", s.cfg.DownloadInterval,
		"upload_interval", s.cfg.UploadInterval)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, s.cfg.DownloadInterval, s.downloadTick)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, s.cfg.UploadInterval, s.uploadTick)
	}()
	wg.Wait()

	s.checkpoint(context.WithoutCancel(ctx))
	logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if s.cfg.RunOnStart {
		tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (s *Scheduler) downloadTick(ctx context.Context) {
	if _, err := s.p.RunDownloadCycle(ctx); err != nil {
		s.logCycleError("download", err)
		return
	}
	s.checkpoint(ctx)
}

func (s *Scheduler) uploadTick(ctx context.Context) {
	if _, err := s.p.RunUploadCycle(ctx); err != nil {
		s.logCycleError("upload", err)
		return
	}
	s.checkpoint(ctx)
}

func (s *Scheduler) logCycleError(cycle string, err error) {
	switch {
	case errors.Is(err, ErrCycleBusy):
		logger.Debug("Cycle still running, tick skipped", logger.KeyCycle, cycle)
	case errors.Is(err, context.Canceled):
	default:
		logger.Warn("Cycle failed", logger.KeyCycle, cycle, logger.KeyError, err)
	}
}

func (s *Scheduler) checkpoint(ctx context.Context) {
	if s.p.journal == nil {
		return
	}
	if err := s.p.Checkpoint(ctx); err != nil {
		logger.Warn("Pipeline checkpoint failed", logger.KeyError, err)
	}
}
