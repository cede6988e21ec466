package pipeline

import "time"

// ============================================================================
// Constants
// ============================================================================

// MaxBatchCreateSize is the maximum number of tokens the photo service accepts
// in a single batch commit.
const MaxBatchCreateSize = 50

// DefaultHistoryCapacity is the number of upload records kept for failure attribution.
const DefaultHistoryCapacity = 100

// DefaultRetryCodeThreshold is the lowest batch result code treated as retryable.
// Codes follow the google.rpc.Code space, where 13 and above are internal,
// unavailable and data-loss class errors.
const DefaultRetryCodeThreshold = 13

// ============================================================================
// Configuration
// ============================================================================

// Config holds the pipeline tuning knobs.
type Config struct {
	// MaxDownloads bounds concurrent fetches from the content source.
	// Default: 5
	MaxDownloads int

	// MaxUploads bounds concurrent upload sessions.
	// Default: 5
	MaxUploads int

	// DownloadBatchSize is how many references one download cycle pops.
	// Default: 15
	DownloadBatchSize int

	// MaxUploadItems is how many items one upload cycle dispatches.
	// Default: 30
	MaxUploadItems int

	// MaxBatchSize caps the tokens sent in one batch commit.
	// Values above MaxBatchCreateSize are clamped.
	// Default: 50
	MaxBatchSize int

	// MinContentSize is the payload size below which content is inspected
	// for a structured error body.
	// Default: 256
	MinContentSize int

	// MaxRetry bounds upload retries before disk fallback.
	// Default: 3
	MaxRetry int

	// DownloadMaxRetry bounds re-queues of a reference whose fetch returned
	// an error payload.
	// Default: 3
	DownloadMaxRetry int

	// RetryFetchErrors re-queues references whose fetch failed with an error
	// marked transient. When false, fetch errors drop the reference.
	// Default: false
	RetryFetchErrors bool

	// MaxCommitAttempts bounds how many times a token may be pushed back by
	// a retryable result code. Zero disables the bound.
	// Default: 10
	MaxCommitAttempts int

	// UploadDelayMin and UploadDelayMax bound the random pause taken before
	// each upload call.
	// Default: 1s - 5s
	UploadDelayMin time.Duration
	UploadDelayMax time.Duration

	// HistoryCapacity is the size of the history ring.
	// Default: 100
	HistoryCapacity int

	// RetryPredicate decides whether a batch result code is retryable.
	// Default: CodeAtLeast(DefaultRetryCodeThreshold)
	RetryPredicate RetryPredicate

	// AcceptedKinds lists media kinds accepted by EnqueueContent.
	// Default: image, video
	AcceptedKinds []MediaKind

	// AcceptedProviders lists content providers accepted by EnqueueContent.
	// Default: line
	AcceptedProviders []string

	// DefaultDestination is the album used when a reference has none.
	DefaultDestination string

	// KindDestinations overrides DefaultDestination per media kind.
	KindDestinations map[MediaKind]string

	// DedupCacheSize is the number of recent reference ids remembered.
	// Zero disables deduplication.
	// Default: 1024
	DedupCacheSize int

	// DedupWindow is how long an accepted id suppresses duplicates.
	// Default: 10m
	DedupWindow time.Duration
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() Config {
	return Config{
		MaxDownloads:      5,
		MaxUploads:        5,
		DownloadBatchSize: 15,
		MaxUploadItems:    30,
		MaxBatchSize:      MaxBatchCreateSize,
		MinContentSize:    256,
		MaxRetry:          3,
		DownloadMaxRetry:  3,
		MaxCommitAttempts: 10,
		UploadDelayMin:    time.Second,
		UploadDelayMax:    5 * time.Second,
		HistoryCapacity:   DefaultHistoryCapacity,
		RetryPredicate:    CodeAtLeast(DefaultRetryCodeThreshold),
		AcceptedKinds:     []MediaKind{KindImage, KindVideo},
		AcceptedProviders: []string{ProviderLine},
		DedupCacheSize:    1024,
		DedupWindow:       10 * time.Minute,
	}
}

// applyDefaults fills unset fields from DefaultConfig.
//
// For most fields zero or negative means unset. MaxRetry, DownloadMaxRetry
// and MaxCommitAttempts are the exception: zero is kept (no retries, no
// attempt bound) and only negative values are replaced. Callers that want
// the standard bounds should start from DefaultConfig rather than Config{}.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxDownloads <= 0 {
		c.MaxDownloads = d.MaxDownloads
	}
	if c.MaxUploads <= 0 {
		c.MaxUploads = d.MaxUploads
	}
	if c.DownloadBatchSize <= 0 {
		c.DownloadBatchSize = d.DownloadBatchSize
	}
	if c.MaxUploadItems <= 0 {
		c.MaxUploadItems = d.MaxUploadItems
	}
	if c.MaxBatchSize <= 0 || c.MaxBatchSize > MaxBatchCreateSize {
		c.MaxBatchSize = MaxBatchCreateSize
	}
	if c.MinContentSize <= 0 {
		c.MinContentSize = d.MinContentSize
	}
	if c.MaxRetry < 0 {
		c.MaxRetry = d.MaxRetry
	}
	if c.DownloadMaxRetry < 0 {
		c.DownloadMaxRetry = d.DownloadMaxRetry
	}
	if c.MaxCommitAttempts < 0 {
		c.MaxCommitAttempts = d.MaxCommitAttempts
	}
	if c.UploadDelayMin < 0 {
		c.UploadDelayMin = 0
	}
	if c.UploadDelayMax < c.UploadDelayMin {
		c.UploadDelayMax = c.UploadDelayMin
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = d.HistoryCapacity
	}
	if c.RetryPredicate == nil {
		c.RetryPredicate = d.RetryPredicate
	}
	if len(c.AcceptedKinds) == 0 {
		c.AcceptedKinds = d.AcceptedKinds
	}
	if len(c.AcceptedProviders) == 0 {
		c.AcceptedProviders = d.AcceptedProviders
	}
	if c.DedupCacheSize < 0 {
		c.DedupCacheSize = 0
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = d.DedupWindow
	}
}
