package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/photobridge/internal/logger"
)

// UploadOutcome is the result of a single UploadOne call.
type UploadOutcome int

const (
	// UploadSucceeded means a token was obtained and buffered for commit.
	UploadSucceeded UploadOutcome = iota
	// UploadRetried means the item went back to the upload queue.
	UploadRetried
	// UploadFailed means retries were exhausted and the item was written to
	// the fallback sink.
	UploadFailed
	// UploadLost means retries were exhausted and the fallback sink failed too.
	UploadLost
	// UploadCancelled means the context ended first; the item was re-queued
	// without consuming a retry.
	UploadCancelled
)

func (o UploadOutcome) String() string {
	switch o {
	case UploadSucceeded:
		return "succeeded"
	case UploadRetried:
		return "retried"
	case UploadFailed:
		return "failed"
	case UploadLost:
		return "lost"
	case UploadCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var errEmptyToken = errors.New("upload returned an empty token")

// UploadOne uploads item while holding an upload slot.
//
// A random delay within the configured window precedes the remote call. On
// success the token is buffered for the item's destination and recorded in
// the history ring. On failure the item is re-queued until MaxRetry is
// reached, then handed to the fallback sink.
func (p *Pipeline) UploadOne(ctx context.Context, item *UploadItem) UploadOutcome {
	release, err := p.uploadSlots.Acquire(ctx)
	if err != nil {
		p.uploads.Push(item)
		return UploadCancelled
	}
	p.reportInFlight()
	defer func() {
		release()
		p.reportInFlight()
	}()

	if err := p.sleep(ctx, p.uploadDelay()); err != nil {
		p.uploads.Push(item)
		return UploadCancelled
	}

	start := time.Now()
	token, err := p.upload(ctx, item)
	elapsed := time.Since(start)

	if err == nil {
		item.Token = token
		p.tokens.Append(item.Destination, token)
		p.history.Record(item, token)
		p.counters.uploaded.Add(1)
		p.observeUpload(OutcomeSuccess, elapsed, item.Body.Size())

		logger.Debug("Upload session created",
			logger.KeyItem, item.Name,
			logger.KeyDestination, item.Destination,
			logger.KeyAttempt, item.RetryCount+1,
			logger.KeyDurationMs, float64(elapsed.Microseconds())/1000.0)
		return UploadSucceeded
	}

	if ctx.Err() != nil {
		p.uploads.Push(item)
		return UploadCancelled
	}

	if item.RetryCount < p.cfg.MaxRetry {
		item.RetryCount++
		p.uploads.Push(item)
		p.counters.uploadRetries.Add(1)
		p.observeUpload(OutcomeRetry, elapsed, 0)

		logger.Warn("Upload failed, will retry",
			logger.KeyItem, item.Name,
			logger.KeyAttempt, item.RetryCount,
			logger.KeyMaxRetries, p.cfg.MaxRetry,
			logger.KeyError, err)
		return UploadRetried
	}

	p.observeUpload(OutcomeFailed, elapsed, 0)
	logger.Error("Upload failed permanently",
		logger.KeyItem, item.Name,
		logger.KeyDestination, item.Destination,
		logger.KeyMaxRetries, p.cfg.MaxRetry,
		logger.KeyError, err)

	if p.persistFallback(ctx, item, "upload retries exhausted") {
		return UploadFailed
	}
	return UploadLost
}

func (p *Pipeline) upload(ctx context.Context, item *UploadItem) (string, error) {
	r, err := item.Body.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", item.Name, err)
	}
	defer func() { _ = r.Close() }()

	token, err := p.uploader.CreateUploadSession(ctx, item.Name, r, item.Body.Size())
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

// persistFallback writes the item's content to the fallback sink.
// It runs detached from ctx cancellation so shutdown does not drop content.
func (p *Pipeline) persistFallback(ctx context.Context, item *UploadItem, reason string) bool {
	ctx = context.WithoutCancel(ctx)

	r, err := item.Body.Open()
	if err == nil {
		var location string
		location, err = p.sink.Persist(ctx, item.Name, r)
		_ = r.Close()
		if err == nil {
			p.counters.fallbacks.Add(1)
			p.recordItem(ResultFallback)
			logger.Warn("Item saved to fallback sink",
				logger.KeyItem, item.Name,
				logger.KeyReason, reason,
				logger.KeyLocation, location)
			return true
		}
	}

	p.counters.fallbackErrors.Add(1)
	p.recordItem(ResultLost)
	logger.Error("Fallback sink failed, item lost",
		logger.KeyItem, item.Name,
		logger.KeyReason, reason,
		logger.KeyError, err)
	return false
}

func (p *Pipeline) observeUpload(outcome string, d time.Duration, n int64) {
	if p.metrics != nil {
		p.metrics.ObserveUpload(outcome, d, n)
	}
}
