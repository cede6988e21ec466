// Package google talks to the Google Photos Library API: raw byte uploads
// that return upload tokens, and batch creation of media items in an album.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// DefaultBaseURL is the Library API root.
const DefaultBaseURL = "https://photoslibrary.googleapis.com"

// MaxBatchSize is the most items one batchCreate call accepts.
const MaxBatchSize = pipeline.MaxBatchCreateSize

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// TokenSource supplies OAuth access tokens. Token acquisition and refresh
// happen outside this package.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// Config configures the client.
type Config struct {
	// BaseURL is the API root.
	// Default: https://photoslibrary.googleapis.com
	BaseURL string

	// Tokens supplies the bearer token for each request.
	Tokens TokenSource

	// Timeout bounds one request.
	// Default: 120s
	Timeout time.Duration

	// RequestsPerSecond and Burst pace outgoing requests.
	// Zero RequestsPerSecond disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// Client implements pipeline.Uploader and pipeline.BatchCommitter.
type Client struct {
	baseURL    string
	tokens     TokenSource
	limiter    *rate.Limiter
	httpClient *http.Client
}

var (
	_ pipeline.Uploader       = (*Client)(nil)
	_ pipeline.BatchCommitter = (*Client)(nil)
)

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("google: token source is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		tokens:  cfg.Tokens,
		limiter: limiter,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// do sends req after pacing and authentication. Network failures are
// wrapped with pipeline.ErrTransient.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("google: failed to get access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("google: request failed: %v: %w", err, pipeline.ErrTransient)
	}
	return resp, nil
}

// CreateUploadSession uploads the bytes of one item and returns the upload
// token that BatchCreate later turns into a media item.
func (c *Client) CreateUploadSession(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/uploads", r)
	if err != nil {
		return "", fmt.Errorf("google: failed to create request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-Upload-File-Name", name)

	start := time.Now()
	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", fmt.Errorf("google: failed to read upload response: %v: %w", err, pipeline.ErrTransient)
	}
	if resp.StatusCode != http.StatusOK {
		return "", parseAPIError(resp.StatusCode, body)
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("google: empty upload token: %w", pipeline.ErrTransient)
	}

	logger.DebugCtx(ctx, "Upload session created",
		logger.KeyItem, name,
		logger.KeySize, size,
		logger.KeyDurationMs, logger.Duration(start))
	return token, nil
}

type batchCreateRequest struct {
	AlbumID       string         `json:"albumId,omitempty"`
	NewMediaItems []newMediaItem `json:"newMediaItems"`
}

type newMediaItem struct {
	SimpleMediaItem simpleMediaItem `json:"simpleMediaItem"`
}

type simpleMediaItem struct {
	UploadToken string `json:"uploadToken"`
}

type batchCreateResponse struct {
	NewMediaItemResults []newMediaItemResult `json:"newMediaItemResults"`
}

type newMediaItemResult struct {
	UploadToken string `json:"uploadToken"`
	Status      struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	MediaItem *struct {
		ID string `json:"id"`
	} `json:"mediaItem,omitempty"`
}

// BatchCreate creates media items for tokens in the destination album and
// returns one result per item. A result code of 0 means success; other
// codes follow the google.rpc.Code space.
//
// A transport failure or non-2xx response is returned as an error and no
// results; the pipeline re-queues the whole batch in that case.
func (c *Client) BatchCreate(ctx context.Context, destination string, tokens []string) ([]pipeline.CommitResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > MaxBatchSize {
		return nil, fmt.Errorf("google: %d tokens: %w", len(tokens), ErrBatchTooLarge)
	}

	payload := batchCreateRequest{
		AlbumID:       destination,
		NewMediaItems: make([]newMediaItem, len(tokens)),
	}
	for i, t := range tokens {
		payload.NewMediaItems[i].SimpleMediaItem.UploadToken = t
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("google: failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/mediaItems:batchCreate", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("google: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var out batchCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("google: failed to decode batch response: %v: %w", err, pipeline.ErrTransient)
	}

	results := make([]pipeline.CommitResult, len(out.NewMediaItemResults))
	for i, r := range out.NewMediaItemResults {
		results[i] = pipeline.CommitResult{
			Token:   r.UploadToken,
			Code:    r.Status.Code,
			Message: r.Status.Message,
		}
	}
	return results, nil
}
