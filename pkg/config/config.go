package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/photobridge/internal/bytesize"
	"github.com/marmos91/photobridge/pkg/api"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the photobridge configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (PHOTOBRIDGE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Pipeline tunes queues, worker pools and retry bounds
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`

	// Scheduler controls the periodic cycles
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`

	// Line configures the messaging source content client
	Line LineConfig `mapstructure:"line" yaml:"line"`

	// Google configures the photo library client
	Google GoogleConfig `mapstructure:"google" yaml:"google"`

	// Album selects destination albums
	Album AlbumConfig `mapstructure:"album" yaml:"album"`

	// Fallback selects where undeliverable content is written
	Fallback FallbackConfig `mapstructure:"fallback" yaml:"fallback"`

	// Journal persists pending work across restarts
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`

	// Spool watches a directory for files to upload directly
	Spool SpoolConfig `mapstructure:"spool" yaml:"spool"`

	// API contains control API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// PipelineConfig tunes the ingestion pipeline.
type PipelineConfig struct {
	// MaxDownloads bounds concurrent content fetches.
	// Default: 5
	MaxDownloads int `mapstructure:"max_downloads" validate:"gte=1" yaml:"max_downloads"`

	// MaxUploads bounds concurrent upload sessions.
	// Default: 5
	MaxUploads int `mapstructure:"max_uploads" validate:"gte=1" yaml:"max_uploads"`

	// DownloadBatchSize is how many references a download cycle pops.
	// Default: 15
	DownloadBatchSize int `mapstructure:"download_batch_size" validate:"gte=1" yaml:"download_batch_size"`

	// MaxUploadItems is how many items an upload cycle dispatches.
	// Default: 30
	MaxUploadItems int `mapstructure:"max_upload_items" validate:"gte=1" yaml:"max_upload_items"`

	// MaxBatchSize caps tokens per batch commit. The photo service accepts at most 50.
	// Default: 50
	MaxBatchSize int `mapstructure:"max_batch_size" validate:"gte=1,lte=50" yaml:"max_batch_size"`

	// MinContentSize is the size below which a payload is inspected for an
	// error body. Supports human-readable formats: "256", "1Ki".
	// Default: 256
	MinContentSize bytesize.ByteSize `mapstructure:"min_content_size" validate:"gte=1" yaml:"min_content_size"`

	// MaxRetry bounds upload retries before fallback.
	// Default: 3
	MaxRetry *int `mapstructure:"max_retry" validate:"omitempty,gte=0" yaml:"max_retry"`

	// DownloadMaxRetry bounds re-queues after an error payload.
	// Default: 3
	DownloadMaxRetry *int `mapstructure:"download_max_retry" validate:"omitempty,gte=0" yaml:"download_max_retry"`

	// RetryFetchErrors re-queues references whose fetch failed transiently.
	// Default: false
	RetryFetchErrors bool `mapstructure:"retry_fetch_errors" yaml:"retry_fetch_errors"`

	// MaxCommitAttempts bounds retryable commit results per token. 0 disables the bound.
	// Default: 10
	MaxCommitAttempts *int `mapstructure:"max_commit_attempts" validate:"omitempty,gte=0" yaml:"max_commit_attempts"`

	// UploadDelayMin and UploadDelayMax bound the random pause before each upload.
	// Default: 1s and 5s
	UploadDelayMin time.Duration `mapstructure:"upload_delay_min" validate:"gte=0" yaml:"upload_delay_min"`
	UploadDelayMax time.Duration `mapstructure:"upload_delay_max" validate:"gtefield=UploadDelayMin" yaml:"upload_delay_max"`

	// HistoryCapacity is the number of upload records kept for failure attribution.
	// Default: 100
	HistoryCapacity int `mapstructure:"history_capacity" validate:"gte=1" yaml:"history_capacity"`

	// RetryCodeThreshold retries batch result codes at or above this value.
	// Ignored when RetryCodes is set.
	// Default: 13
	RetryCodeThreshold int `mapstructure:"retry_code_threshold" validate:"gte=1" yaml:"retry_code_threshold"`

	// RetryCodes retries exactly these batch result codes.
	RetryCodes []int `mapstructure:"retry_codes" validate:"dive,gte=1" yaml:"retry_codes,omitempty"`

	// AcceptedKinds lists the media kinds accepted at enqueue.
	// Default: [image, video]
	AcceptedKinds []string `mapstructure:"accepted_kinds" validate:"min=1,dive,oneof=image video audio file" yaml:"accepted_kinds"`

	// DedupCacheSize is the number of recent reference ids remembered. 0 disables dedup.
	// Default: 1024
	DedupCacheSize int `mapstructure:"dedup_cache_size" validate:"gte=0" yaml:"dedup_cache_size"`

	// DedupWindow is how long an accepted id suppresses duplicates.
	// Default: 10m
	DedupWindow time.Duration `mapstructure:"dedup_window" validate:"gte=0" yaml:"dedup_window"`
}

// SchedulerConfig controls the periodic cycles.
type SchedulerConfig struct {
	// DownloadInterval is the period of the download cycle.
	// Default: 30s
	DownloadInterval time.Duration `mapstructure:"download_interval" validate:"gt=0" yaml:"download_interval"`

	// UploadInterval is the period of the upload-then-commit cycle.
	// Default: 30s
	UploadInterval time.Duration `mapstructure:"upload_interval" validate:"gt=0" yaml:"upload_interval"`

	// RunOnStart runs both cycles immediately at startup.
	RunOnStart bool `mapstructure:"run_on_start" yaml:"run_on_start"`
}

// LineConfig configures the messaging source content client.
type LineConfig struct {
	// BaseURL is the content API root.
	// Default: https://api-data.line.me
	BaseURL string `mapstructure:"base_url" validate:"required,url" yaml:"base_url"`

	// ChannelToken is the channel access token.
	// Override: PHOTOBRIDGE_LINE_CHANNEL_TOKEN
	ChannelToken string `mapstructure:"channel_token" yaml:"channel_token,omitempty"`

	// Timeout bounds a single content request.
	// Default: 60s
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0" yaml:"timeout"`

	// MaxContentSize caps a downloaded payload.
	// Default: 200Mi
	MaxContentSize bytesize.ByteSize `mapstructure:"max_content_size" validate:"gt=0" yaml:"max_content_size"`
}

// GoogleConfig configures the photo library client.
type GoogleConfig struct {
	// BaseURL is the library API root.
	// Default: https://photoslibrary.googleapis.com
	BaseURL string `mapstructure:"base_url" validate:"required,url" yaml:"base_url"`

	// AccessToken is a bearer token for the library API.
	// Override: PHOTOBRIDGE_GOOGLE_ACCESS_TOKEN
	AccessToken string `mapstructure:"access_token" yaml:"access_token,omitempty"`

	// Timeout bounds a single API request.
	// Default: 120s
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0" yaml:"timeout"`

	// RequestsPerSecond paces calls to the library API.
	// Default: 5
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0" yaml:"requests_per_second"`

	// Burst is the number of calls allowed above the steady rate.
	// Default: 5
	Burst int `mapstructure:"burst" validate:"gte=1" yaml:"burst"`
}

// AlbumConfig selects destination albums.
type AlbumConfig struct {
	// ID is the default destination album.
	ID string `mapstructure:"id" yaml:"id"`

	// KindAlbums overrides ID per media kind, e.g. {video: "<album id>"}.
	KindAlbums map[string]string `mapstructure:"kind_albums" validate:"dive,keys,oneof=image video audio file,endkeys,required" yaml:"kind_albums,omitempty"`

	// ShareURL is a shareable link to the album, shown in status output.
	ShareURL string `mapstructure:"share_url" validate:"omitempty,url" yaml:"share_url,omitempty"`
}

// FallbackConfig selects the fallback sink backend.
type FallbackConfig struct {
	// Type is the backend: fs, s3 or memory.
	// Default: fs
	Type string `mapstructure:"type" validate:"required,oneof=fs s3 memory" yaml:"type"`

	// FS configures the local directory backend.
	FS FSFallbackConfig `mapstructure:"fs" yaml:"fs"`

	// S3 configures the object storage backend.
	S3 S3FallbackConfig `mapstructure:"s3" yaml:"s3"`
}

// FSFallbackConfig configures the local directory fallback.
type FSFallbackConfig struct {
	// Dir is where undeliverable content is written.
	// Default: $XDG_DATA_HOME/photobridge/fallback
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// S3FallbackConfig configures the object storage fallback.
type S3FallbackConfig struct {
	Bucket         string `mapstructure:"bucket" yaml:"bucket"`
	Region         string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint       string `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint,omitempty"`
	KeyPrefix      string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`

	// AccessKeyID and SecretAccessKey select static credentials; empty uses
	// the SDK default chain.
	// Override: PHOTOBRIDGE_FALLBACK_S3_ACCESS_KEY_ID, PHOTOBRIDGE_FALLBACK_S3_SECRET_ACCESS_KEY
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// JournalConfig configures the durable journal.
type JournalConfig struct {
	// Enabled persists queues, buffers and history across restarts.
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the journal database directory.
	// Default: $XDG_DATA_HOME/photobridge/journal
	Path string `mapstructure:"path" yaml:"path"`
}

// SpoolConfig configures the spool directory watcher.
type SpoolConfig struct {
	// Enabled watches Dir for new files.
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Dir is the directory to watch.
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`

	// Settle is how long a file must stay unmodified before it is enqueued.
	// Default: 2s
	Settle time.Duration `mapstructure:"settle" validate:"gte=0" yaml:"settle"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// secretEnv are keys read from the environment even when the config file
// does not mention them.
var secretEnv = []string{
	"line.channel_token",
	"google.access_token",
	"api.token",
	"fallback.s3.access_key_id",
	"fallback.s3.secret_access_key",
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PHOTOBRIDGE_*)
//  2. Configuration file
//  3. Default values
//
// A missing config file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, failing with setup instructions when the
// config file does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  photobridge config init\n\n"+
				"Or specify a custom config file:\n"+
				"  photobridge <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  photobridge config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold access tokens.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: PHOTOBRIDGE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("PHOTOBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range secretEnv {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize, so
// config files can use sizes like "1Gi", "500Mi", "100MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s", "5m" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/photobridge, ~/.config/photobridge,
// or "." when the home directory is unknown.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "photobridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "photobridge")
}

// getDataDir returns $XDG_DATA_HOME/photobridge or ~/.local/share/photobridge.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "photobridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "photobridge")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
