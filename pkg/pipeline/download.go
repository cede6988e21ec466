package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/photobridge/internal/logger"
)

// DownloadCycleResult summarizes one download cycle.
type DownloadCycleResult struct {
	Popped   int `json:"popped"`
	Fetched  int `json:"fetched"`
	Requeued int `json:"requeued"`
	Dropped  int `json:"dropped"`
	Failed   int `json:"failed"`
}

type downloadOutcome int

const (
	downloadFetched downloadOutcome = iota
	downloadRequeued
	downloadDropped
	downloadFailed
)

// errorBodyPreview caps how much of an error payload is logged.
const errorBodyPreview = 128

// RunDownloadCycle pops up to DownloadBatchSize references and fetches them
// concurrently, bounded by MaxDownloads. It returns once every fetch of the
// cycle has finished.
//
// Returns ErrCycleBusy if another download cycle is running.
func (p *Pipeline) RunDownloadCycle(ctx context.Context) (DownloadCycleResult, error) {
	release, ok := p.downloadCycle.TryAcquire()
	if !ok {
		return DownloadCycleResult{}, ErrCycleBusy
	}
	defer release()

	refs := p.downloads.PopN(p.cfg.DownloadBatchSize)
	result := DownloadCycleResult{Popped: len(refs)}
	if len(refs) == 0 {
		return result, nil
	}

	start := time.Now()
	outcomes := make([]downloadOutcome, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = p.downloadOne(ctx, ref)
		}()
	}
	wg.Wait()

	for _, o := range outcomes {
		switch o {
		case downloadFetched:
			result.Fetched++
		case downloadRequeued:
			result.Requeued++
		case downloadDropped:
			result.Dropped++
		case downloadFailed:
			result.Failed++
		}
	}
	p.reportDepths()

	logger.Info("Download cycle complete",
		logger.KeyCycle, "download",
		"popped", result.Popped,
		"fetched", result.Fetched,
		"requeued", result.Requeued,
		"dropped", result.Dropped,
		"failed", result.Failed,
		logger.KeyDurationMs, logger.Duration(start))

	return result, nil
}

// downloadOne fetches a single reference while holding a download slot.
func (p *Pipeline) downloadOne(ctx context.Context, ref *ContentReference) downloadOutcome {
	release, err := p.downloadSlots.Acquire(ctx)
	if err != nil {
		// Cancelled before the fetch started: keep the reference as is.
		p.downloads.Push(ref)
		return downloadRequeued
	}
	p.reportInFlight()
	defer func() {
		release()
		p.reportInFlight()
	}()

	start := time.Now()
	data, err := p.source.FetchContent(ctx, *ref)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			p.downloads.Push(ref)
			return downloadRequeued
		}
		if p.cfg.RetryFetchErrors && IsTransient(err) {
			p.observeFetch(OutcomeRetry, elapsed, 0)
			return p.retryReference(ref, "transient fetch error", err)
		}
		p.counters.fetchFailures.Add(1)
		p.observeFetch(OutcomeFailed, elapsed, 0)
		p.recordItem(ResultLost)
		logger.Error("Content fetch failed",
			logger.KeySourceID, ref.ID,
			logger.KeyKind, ref.Kind,
			logger.KeyAttempt, ref.RetryCount,
			logger.KeyError, err)
		return downloadFailed
	}

	if classifyPayload(data, p.cfg.MinContentSize) == payloadError {
		p.observeFetch(OutcomeRetry, elapsed, len(data))
		logger.Warn("Content source returned an error payload",
			logger.KeySourceID, ref.ID,
			logger.KeySize, len(data),
			"body", preview(data, errorBodyPreview))
		return p.retryReference(ref, "error payload", nil)
	}

	item := &UploadItem{
		Name:        ref.ItemName(),
		Kind:        ref.Kind,
		SourceID:    ref.ID,
		Destination: ref.Destination,
		Body:        BytesBody(data),
	}
	p.uploads.Push(item)
	p.counters.fetched.Add(1)
	p.observeFetch(OutcomeSuccess, elapsed, len(data))

	logger.Debug("Content fetched",
		logger.KeySourceID, ref.ID,
		logger.KeyItem, item.Name,
		logger.KeySize, len(data),
		logger.KeyDurationMs, float64(elapsed.Microseconds())/1000.0)
	return downloadFetched
}

// retryReference re-queues ref with one more retry, or drops it once the
// bound is reached.
func (p *Pipeline) retryReference(ref *ContentReference, reason string, cause error) downloadOutcome {
	if ref.RetryCount < p.cfg.DownloadMaxRetry {
		ref.RetryCount++
		p.downloads.Push(ref)
		p.counters.fetchRetries.Add(1)
		logger.Debug("Content reference re-queued",
			logger.KeySourceID, ref.ID,
			logger.KeyReason, reason,
			logger.KeyAttempt, ref.RetryCount,
			logger.KeyMaxRetries, p.cfg.DownloadMaxRetry)
		return downloadRequeued
	}

	p.counters.dropped.Add(1)
	p.recordItem(ResultLost)
	args := []any{
		logger.KeySourceID, ref.ID,
		logger.KeyKind, ref.Kind,
		logger.KeyReason, reason,
		logger.KeyMaxRetries, p.cfg.DownloadMaxRetry,
	}
	if cause != nil {
		args = append(args, logger.KeyError, cause)
	}
	logger.Error("Content reference dropped after retries", args...)
	return downloadDropped
}

func (p *Pipeline) observeFetch(outcome string, d time.Duration, n int) {
	if p.metrics != nil {
		p.metrics.ObserveFetch(outcome, d, n)
	}
}

func preview(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
