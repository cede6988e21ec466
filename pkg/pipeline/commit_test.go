package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedTokens records n uploaded items in the history ring and buffers their
// tokens for dest.
func seedTokens(p *Pipeline, dest string, n int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		item := &UploadItem{
			Name:        fmt.Sprintf("image-%d", i),
			Kind:        KindImage,
			Destination: dest,
			Body:        BytesBody(media(300)),
		}
		tokens[i] = fmt.Sprintf("tok-%s-%d", dest, i)
		item.Token = tokens[i]
		p.history.Record(item, tokens[i])
		p.tokens.Append(dest, tokens[i])
	}
	return tokens
}

func TestCommitCycleMixedCodes(t *testing.T) {
	h := newHarness(t, testConfig())
	tokens := seedTokens(h.p, "album-1", 3)
	h.committer.setRespond(func(_ string, toks []string) ([]CommitResult, error) {
		return []CommitResult{
			{Token: toks[0], Code: 0},
			{Token: toks[1], Code: 14, Message: "unavailable"},
			{Token: toks[2], Code: 7, Message: "permission denied"},
		}, nil
	})

	res := h.p.CommitCycle(context.Background())

	assert.Equal(t, CommitCycleResult{Batches: 1, Tokens: 3, Delivered: 1, Retried: 1, Failed: 1}, res)
	assert.Equal(t, []string{tokens[1]}, h.p.tokens.Take("album-1", 50), "retryable token is buffered again")
	assert.Equal(t, []string{"image-2"}, h.sink.persisted(), "permanent failure goes to the fallback sink")
	assert.Equal(t, int64(1), h.p.Stats().Counters.Delivered)
}

func TestCommitCycleTransportErrorRequeuesAll(t *testing.T) {
	h := newHarness(t, testConfig())
	tokens := seedTokens(h.p, "album-1", 10)
	h.committer.setRespond(func(string, []string) ([]CommitResult, error) {
		return nil, fmt.Errorf("dial: %w", ErrTransient)
	})

	res := h.p.CommitCycle(context.Background())

	assert.Equal(t, 1, res.TransportErrors)
	assert.Equal(t, 0, res.Delivered)
	assert.Equal(t, 10, h.p.tokens.Len("album-1"))
	assert.ElementsMatch(t, tokens, h.p.tokens.Take("album-1", 50))
	assert.Empty(t, h.sink.persisted())
}

func TestCommitCycleEmptyMakesNoCalls(t *testing.T) {
	h := newHarness(t, testConfig())

	res := h.p.CommitCycle(context.Background())

	assert.Equal(t, CommitCycleResult{}, res)
	assert.Empty(t, h.committer.callList())
}

func TestCommitCycleBatchBound(t *testing.T) {
	h := newHarness(t, testConfig())
	seedTokens(h.p, "album-1", 120)

	res := h.p.CommitCycle(context.Background())

	calls := h.committer.callList()
	require.Len(t, calls, 1, "one batch per destination per cycle")
	assert.Len(t, calls[0].tokens, MaxBatchCreateSize)
	assert.Equal(t, "tok-album-1-0", calls[0].tokens[0])
	assert.Equal(t, 50, res.Delivered)
	assert.Equal(t, 70, h.p.tokens.Len("album-1"))
}

func TestCommitCyclePerDestination(t *testing.T) {
	h := newHarness(t, testConfig())
	seedTokens(h.p, "album-1", 2)
	seedTokens(h.p, "album-2", 3)

	res := h.p.CommitCycle(context.Background())

	calls := h.committer.callList()
	require.Len(t, calls, 2)
	assert.Equal(t, "album-1", calls[0].destination)
	assert.Equal(t, "album-2", calls[1].destination)
	assert.Equal(t, 5, res.Delivered)
}

func TestCommitCycleUnattributable(t *testing.T) {
	h := newHarness(t, testConfig())
	h.p.tokens.Append("album-1", "unknown-token")
	h.committer.setRespond(allCode(3))

	res := h.p.CommitCycle(context.Background())

	assert.Equal(t, 1, res.Unattributable)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, h.sink.persisted())
	assert.Equal(t, 0, h.p.tokens.Total())
}

func TestCommitCycleMissingResultRequeues(t *testing.T) {
	h := newHarness(t, testConfig())
	tokens := seedTokens(h.p, "album-1", 2)
	h.committer.setRespond(func(_ string, toks []string) ([]CommitResult, error) {
		return []CommitResult{{Token: toks[0], Code: 0}}, nil
	})

	res := h.p.CommitCycle(context.Background())

	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, res.Retried)
	assert.Equal(t, []string{tokens[1]}, h.p.tokens.Take("album-1", 50))
}

func TestCommitCycleMatchesByPosition(t *testing.T) {
	h := newHarness(t, testConfig())
	seedTokens(h.p, "album-1", 2)
	h.committer.setRespond(func(string, []string) ([]CommitResult, error) {
		return []CommitResult{{Code: 0}, {Code: 5}}, nil
	})

	res := h.p.CommitCycle(context.Background())

	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"image-1"}, h.sink.persisted())
}

func TestCommitAttemptsBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCommitAttempts = 2
	h := newHarness(t, cfg)
	seedTokens(h.p, "album-1", 1)
	h.committer.setRespond(allCode(14))

	first := h.p.CommitCycle(context.Background())
	assert.Equal(t, 1, first.Retried)

	second := h.p.CommitCycle(context.Background())
	assert.Equal(t, 0, second.Retried)
	assert.Equal(t, 1, second.Failed)
	assert.Equal(t, []string{"image-0"}, h.sink.persisted())
	assert.Equal(t, 0, h.p.tokens.Total())
}

func TestCommitCustomRetryPredicate(t *testing.T) {
	cfg := testConfig()
	cfg.RetryPredicate = CodeIn(8)
	h := newHarness(t, cfg)
	seedTokens(h.p, "album-1", 2)
	h.committer.setRespond(func(_ string, toks []string) ([]CommitResult, error) {
		return []CommitResult{{Token: toks[0], Code: 8}, {Token: toks[1], Code: 14}}, nil
	})

	res := h.p.CommitCycle(context.Background())

	assert.Equal(t, 1, res.Retried)
	assert.Equal(t, 1, res.Failed)
}

func TestShortToken(t *testing.T) {
	assert.Equal(t, "abc", shortToken("abc"))
	assert.Equal(t, "0123456789abcdef...", shortToken("0123456789abcdefXYZ"))
}
