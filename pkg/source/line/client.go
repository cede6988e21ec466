// Package line fetches message content from the LINE Messaging API.
package line

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// DefaultBaseURL is the LINE content API root.
const DefaultBaseURL = "https://api-data.line.me"

var (
	// ErrNotFound indicates the message content no longer exists.
	ErrNotFound = errors.New("message content not found")

	// ErrContentTooLarge indicates the payload exceeded MaxContentSize.
	ErrContentTooLarge = errors.New("message content too large")
)

// StatusError is an unexpected HTTP status from the content API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("line: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("line: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	// BaseURL is the content API root.
	// Default: https://api-data.line.me
	BaseURL string

	// ChannelToken is the channel access token sent as a bearer token.
	ChannelToken string

	// Timeout bounds one request.
	// Default: 60s
	Timeout time.Duration

	// MaxContentSize caps the payload read from one response.
	// Zero means no cap.
	MaxContentSize int64
}

// Client implements pipeline.ContentSource.
type Client struct {
	baseURL    string
	token      string
	maxSize    int64
	httpClient *http.Client
}

var _ pipeline.ContentSource = (*Client)(nil)

// New creates a client.
func New(cfg Config) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   cfg.ChannelToken,
		maxSize: cfg.MaxContentSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchContent downloads the binary content of a message.
//
// Errors:
//   - ErrNotFound for 404 and 410
//   - ErrContentTooLarge when the body exceeds MaxContentSize
//   - wrapped pipeline.ErrTransient for 202 (content still being prepared),
//     429, 5xx and network failures
//   - *StatusError for any other status
func (c *Client) FetchContent(ctx context.Context, ref pipeline.ContentReference) ([]byte, error) {
	if ref.ID == "" {
		return nil, errors.New("line: empty message id")
	}

	endpoint := c.baseURL + "/v2/bot/message/" + url.PathEscape(ref.ID) + "/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("line: failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("line: request failed: %v: %w", err, pipeline.ErrTransient)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("line: message %s: %w", ref.ID, ErrNotFound)
	case resp.StatusCode == http.StatusAccepted,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return nil, fmt.Errorf("line: status %d: %w", resp.StatusCode, pipeline.ErrTransient)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	data, err := c.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Message content fetched",
		logger.KeySourceID, ref.ID,
		logger.KeySize, len(data),
		logger.KeyDurationMs, logger.Duration(start))
	return data, nil
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	if c.maxSize <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("line: failed to read body: %v: %w", err, pipeline.ErrTransient)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("line: failed to read body: %v: %w", err, pipeline.ErrTransient)
	}
	if int64(len(data)) > c.maxSize {
		return nil, fmt.Errorf("line: more than %d bytes: %w", c.maxSize, ErrContentTooLarge)
	}
	return data, nil
}
