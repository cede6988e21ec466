package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// ============================================================================
// Media Kind
// ============================================================================

// MediaKind is the type of media a content reference points to.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
	KindFile  MediaKind = "file"
)

// ProviderLine is the content provider for media hosted by the messaging source.
const ProviderLine = "line"

// ============================================================================
// Work Items
// ============================================================================

// ContentReference points to media held by the messaging source.
// It lives in the download queue until it is fetched or given up on.
type ContentReference struct {
	// ID is the source message id used to fetch the content.
	ID string `json:"id"`

	// Kind is the media kind reported by the inbound event.
	Kind MediaKind `json:"kind"`

	// Provider is where the content is hosted ("line" for source-hosted content).
	Provider string `json:"provider,omitempty"`

	// Destination is the album id. Empty means resolve from configuration.
	Destination string `json:"destination,omitempty"`

	// RetryCount is the number of times the reference was re-queued.
	RetryCount int `json:"retry_count"`

	// ReceivedAt is when the reference was accepted.
	ReceivedAt time.Time `json:"received_at"`
}

// ItemName returns the deterministic name used for uploads and disk fallback.
func (r *ContentReference) ItemName() string {
	return fmt.Sprintf("%s-%s", r.Kind, r.ID)
}

// UploadItem is a piece of fetched content waiting to be uploaded.
type UploadItem struct {
	Name        string
	Kind        MediaKind
	SourceID    string
	Destination string
	Body        Body
	RetryCount  int

	// Token is set once the upload session returned a delivery token.
	Token string
}

// Body is re-openable item content. Every upload attempt and the fallback
// sink open a fresh reader.
type Body interface {
	Open() (io.ReadCloser, error)
	Size() int64
}

// BytesBody is content held in memory.
type BytesBody []byte

// Open returns a reader over the bytes.
func (b BytesBody) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Size returns the content length.
func (b BytesBody) Size() int64 { return int64(len(b)) }

// FileBody is content stored in a local file.
type FileBody struct {
	Path string
	size int64
}

// NewFileBody stats path and returns a body reading from it.
func NewFileBody(path string) (*FileBody, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, ErrInvalidItem)
	}
	return &FileBody{Path: path, size: info.Size()}, nil
}

// Open opens the underlying file.
func (f *FileBody) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// Size returns the file size observed when the body was created.
func (f *FileBody) Size() int64 { return f.size }

// HistoryEntry correlates a delivery token with the item it was issued for.
type HistoryEntry struct {
	Item       *UploadItem
	Token      string
	RecordedAt time.Time
}

// CommitResult is the outcome of one item in a batch commit.
type CommitResult struct {
	Token   string
	Code    int
	Message string
}

// ============================================================================
// Collaborators
// ============================================================================

// ContentSource fetches content from the messaging source.
// Errors wrapping ErrTransient are considered retryable.
type ContentSource interface {
	FetchContent(ctx context.Context, ref ContentReference) ([]byte, error)
}

// Uploader pushes raw bytes to the photo service and returns a delivery token.
type Uploader interface {
	CreateUploadSession(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

// BatchCommitter redeems delivery tokens into media items of a destination.
// Results are returned in request order.
type BatchCommitter interface {
	BatchCreate(ctx context.Context, destination string, tokens []string) ([]CommitResult, error)
}

// FallbackSink persists content that could not be delivered.
// It returns a location describing where the content was written.
type FallbackSink interface {
	Persist(ctx context.Context, name string, r io.Reader) (string, error)
}

// Metrics receives pipeline observations.
// A nil Metrics is valid and records nothing.
type Metrics interface {
	ObserveFetch(outcome string, duration time.Duration, bytes int)
	ObserveUpload(outcome string, duration time.Duration, bytes int64)
	ObserveCommit(outcome string, duration time.Duration, batchSize int)
	RecordItem(result string)
	SetQueueDepth(queue string, depth int)
	SetBufferedTokens(n int)
	SetInFlight(kind string, n int)
}

// Metric label values.
const (
	OutcomeSuccess   = "success"
	OutcomeRetry     = "retry"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
	OutcomeTransport = "transport_error"

	ResultDelivered      = "delivered"
	ResultFallback       = "fallback"
	ResultUnattributable = "unattributable"
	ResultLost           = "lost"

	QueueDownload = "download"
	QueueUpload   = "upload"
)
