package pipeline

import (
	"context"
	"time"

	"github.com/marmos91/photobridge/internal/logger"
)

// CommitCycleResult summarizes one commit cycle.
type CommitCycleResult struct {
	Batches         int `json:"batches"`
	Tokens          int `json:"tokens"`
	Delivered       int `json:"delivered"`
	Retried         int `json:"retried"`
	Failed          int `json:"failed"`
	Unattributable  int `json:"unattributable"`
	TransportErrors int `json:"transport_errors"`
}

func (r *CommitCycleResult) add(o CommitCycleResult) {
	r.Batches += o.Batches
	r.Tokens += o.Tokens
	r.Delivered += o.Delivered
	r.Retried += o.Retried
	r.Failed += o.Failed
	r.Unattributable += o.Unattributable
	r.TransportErrors += o.TransportErrors
}

// CommitCycle sends one batch per destination with buffered tokens.
//
// A batch holds at most MaxBatchSize tokens, oldest first. A transport
// failure pushes the whole batch back. For a successful call every result is
// inspected: code 0 is delivered, codes matched by the retry predicate are
// pushed back, and any other code is a permanent failure routed to the
// fallback sink when the history ring still knows the item.
//
// With nothing buffered CommitCycle makes no remote calls.
func (p *Pipeline) CommitCycle(ctx context.Context) CommitCycleResult {
	var result CommitCycleResult
	for _, dest := range p.tokens.Destinations() {
		tokens := p.tokens.Take(dest, p.cfg.MaxBatchSize)
		if len(tokens) == 0 {
			continue
		}
		result.add(p.commitBatch(ctx, dest, tokens))
	}
	p.reportDepths()

	if result.Batches > 0 {
		logger.Info("Commit cycle complete",
			logger.KeyCycle, "commit",
			"batches", result.Batches,
			"tokens", result.Tokens,
			"delivered", result.Delivered,
			"retried", result.Retried,
			"failed", result.Failed,
			"unattributable", result.Unattributable,
			"transport_errors", result.TransportErrors)
	}
	return result
}

func (p *Pipeline) commitBatch(ctx context.Context, dest string, tokens []string) CommitCycleResult {
	res := CommitCycleResult{Batches: 1, Tokens: len(tokens)}

	start := time.Now()
	results, err := p.committer.BatchCreate(ctx, dest, tokens)
	elapsed := time.Since(start)

	if err != nil {
		p.tokens.Requeue(dest, tokens...)
		res.TransportErrors++
		p.observeCommit(OutcomeTransport, elapsed, len(tokens))
		logger.Warn("Batch commit failed, tokens re-queued",
			logger.KeyDestination, dest,
			logger.KeyCount, len(tokens),
			logger.KeyError, err)
		return res
	}
	p.observeCommit(OutcomeSuccess, elapsed, len(tokens))

	matched := matchResults(tokens, results)
	for i, token := range tokens {
		r := matched[i]
		switch {
		case r == nil:
			p.retryToken(ctx, dest, token, -1, "missing result", &res)
		case r.Code == 0:
			res.Delivered++
			p.counters.delivered.Add(1)
			p.recordItem(ResultDelivered)
			p.clearAttempts(token)
		case p.cfg.RetryPredicate(r.Code):
			p.retryToken(ctx, dest, token, r.Code, r.Message, &res)
		default:
			p.failToken(ctx, token, r.Code, r.Message, &res)
		}
	}
	return res
}

// matchResults pairs each token with its result. Results carrying a token are
// matched by value; results without one are matched by position.
func matchResults(tokens []string, results []CommitResult) []*CommitResult {
	byToken := make(map[string]*CommitResult, len(results))
	for i := range results {
		if results[i].Token != "" {
			byToken[results[i].Token] = &results[i]
		}
	}

	out := make([]*CommitResult, len(tokens))
	for i, token := range tokens {
		if r, ok := byToken[token]; ok {
			out[i] = r
			continue
		}
		if i < len(results) && results[i].Token == "" {
			out[i] = &results[i]
		}
	}
	return out
}

func (p *Pipeline) retryToken(ctx context.Context, dest, token string, code int, msg string, res *CommitCycleResult) {
	attempts := p.bumpAttempts(token)
	if p.cfg.MaxCommitAttempts > 0 && attempts >= p.cfg.MaxCommitAttempts {
		p.failToken(ctx, token, code, "commit attempts exhausted: "+msg, res)
		return
	}

	p.tokens.Requeue(dest, token)
	res.Retried++
	p.counters.commitRetries.Add(1)
	logger.Debug("Token re-queued for commit",
		logger.KeyDestination, dest,
		logger.KeyToken, shortToken(token),
		logger.KeyCode, code,
		logger.KeyReason, msg,
		logger.KeyAttempt, attempts)
}

func (p *Pipeline) failToken(ctx context.Context, token string, code int, msg string, res *CommitCycleResult) {
	p.clearAttempts(token)

	entry, ok := p.history.Lookup(token)
	if !ok {
		res.Unattributable++
		p.counters.unattributable.Add(1)
		p.recordItem(ResultUnattributable)
		logger.Error("Commit failed for unattributable token",
			logger.KeyToken, shortToken(token),
			logger.KeyCode, code,
			logger.KeyReason, msg)
		return
	}

	res.Failed++
	logger.Error("Commit failed permanently",
		logger.KeyItem, entry.Item.Name,
		logger.KeyDestination, entry.Item.Destination,
		logger.KeyCode, code,
		logger.KeyReason, msg)
	p.persistFallback(ctx, entry.Item, "commit rejected")
}

func (p *Pipeline) bumpAttempts(token string) int {
	p.attemptsMu.Lock()
	defer p.attemptsMu.Unlock()
	p.commitAttempts[token]++
	return p.commitAttempts[token]
}

func (p *Pipeline) clearAttempts(token string) {
	p.attemptsMu.Lock()
	delete(p.commitAttempts, token)
	p.attemptsMu.Unlock()
}

func (p *Pipeline) observeCommit(outcome string, d time.Duration, n int) {
	if p.metrics != nil {
		p.metrics.ObserveCommit(outcome, d, n)
	}
}

// shortToken keeps log lines readable; upload tokens are long.
func shortToken(token string) string {
	if len(token) <= 16 {
		return token
	}
	return token[:16] + "..."
}
