package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/photobridge/internal/bytesize"
	"github.com/marmos91/photobridge/pkg/api"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// Default endpoints.
const (
	DefaultLineBaseURL   = "https://api-data.line.me"
	DefaultGoogleBaseURL = "https://photoslibrary.googleapis.com"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
// Retry bounds are pointers so that an explicit 0 survives.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	applyPipelineDefaults(&cfg.Pipeline)
	applySchedulerDefaults(&cfg.Scheduler)
	applyLineDefaults(&cfg.Line)
	applyGoogleDefaults(&cfg.Google)
	applyFallbackDefaults(&cfg.Fallback)
	applyJournalDefaults(&cfg.Journal)
	applySpoolDefaults(&cfg.Spool)
	applyAPIDefaults(&cfg.API)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyPipelineDefaults(cfg *PipelineConfig) {
	d := pipeline.DefaultConfig()

	if cfg.MaxDownloads == 0 {
		cfg.MaxDownloads = d.MaxDownloads
	}
	if cfg.MaxUploads == 0 {
		cfg.MaxUploads = d.MaxUploads
	}
	if cfg.DownloadBatchSize == 0 {
		cfg.DownloadBatchSize = d.DownloadBatchSize
	}
	if cfg.MaxUploadItems == 0 {
		cfg.MaxUploadItems = d.MaxUploadItems
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = d.MaxBatchSize
	}
	if cfg.MinContentSize == 0 {
		cfg.MinContentSize = bytesize.ByteSize(d.MinContentSize)
	}
	if cfg.MaxRetry == nil {
		cfg.MaxRetry = intPtr(d.MaxRetry)
	}
	if cfg.DownloadMaxRetry == nil {
		cfg.DownloadMaxRetry = intPtr(d.DownloadMaxRetry)
	}
	if cfg.MaxCommitAttempts == nil {
		cfg.MaxCommitAttempts = intPtr(d.MaxCommitAttempts)
	}
	if cfg.UploadDelayMin == 0 && cfg.UploadDelayMax == 0 {
		cfg.UploadDelayMin = d.UploadDelayMin
		cfg.UploadDelayMax = d.UploadDelayMax
	}
	if cfg.HistoryCapacity == 0 {
		cfg.HistoryCapacity = d.HistoryCapacity
	}
	if cfg.RetryCodeThreshold == 0 {
		cfg.RetryCodeThreshold = pipeline.DefaultRetryCodeThreshold
	}
	if len(cfg.AcceptedKinds) == 0 {
		for _, k := range d.AcceptedKinds {
			cfg.AcceptedKinds = append(cfg.AcceptedKinds, string(k))
		}
	}
	for i, k := range cfg.AcceptedKinds {
		cfg.AcceptedKinds[i] = strings.ToLower(strings.TrimSpace(k))
	}
	if cfg.DedupCacheSize == 0 {
		cfg.DedupCacheSize = d.DedupCacheSize
	}
	if cfg.DedupWindow == 0 {
		cfg.DedupWindow = d.DedupWindow
	}
}

func applySchedulerDefaults(cfg *SchedulerConfig) {
	if cfg.DownloadInterval == 0 {
		cfg.DownloadInterval = pipeline.DefaultCycleInterval
	}
	if cfg.UploadInterval == 0 {
		cfg.UploadInterval = pipeline.DefaultCycleInterval
	}
}

func applyLineDefaults(cfg *LineConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLineBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxContentSize == 0 {
		cfg.MaxContentSize = 200 * bytesize.MiB
	}
}

func applyGoogleDefaults(cfg *GoogleConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst == 0 {
		cfg.Burst = 5
	}
}

func applyFallbackDefaults(cfg *FallbackConfig) {
	if cfg.Type == "" {
		cfg.Type = "fs"
	}
	if cfg.FS.Dir == "" {
		cfg.FS.Dir = filepath.Join(getDataDir(), "fallback")
	}
}

func applyJournalDefaults(cfg *JournalConfig) {
	if cfg.Path == "" {
		cfg.Path = filepath.Join(getDataDir(), "journal")
	}
}

func applySpoolDefaults(cfg *SpoolConfig) {
	if cfg.Settle == 0 {
		cfg.Settle = 2 * time.Second
	}
}

// applyAPIDefaults sets control API server defaults.
func applyAPIDefaults(cfg *api.APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = api.DefaultPort
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = api.DefaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func intPtr(v int) *int { return &v }
