package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/config"
	"github.com/marmos91/photobridge/pkg/fallback/fs"
	"github.com/marmos91/photobridge/pkg/fallback/memory"
	"github.com/marmos91/photobridge/pkg/fallback/s3"
	journal "github.com/marmos91/photobridge/pkg/journal/badger"
	"github.com/marmos91/photobridge/pkg/metrics"
	"github.com/marmos91/photobridge/pkg/photos/google"
	"github.com/marmos91/photobridge/pkg/pipeline"
	"github.com/marmos91/photobridge/pkg/source/line"
)

// journalGCInterval is the period of value log compaction for the journal.
const journalGCInterval = 10 * time.Minute

// fallbackSink is a pipeline.FallbackSink that can be closed at shutdown.
type fallbackSink interface {
	pipeline.FallbackSink
	Close() error
}

// buildFallback creates the sink selected by fallback.type.
func buildFallback(ctx context.Context, cfg *config.FallbackConfig) (fallbackSink, error) {
	switch cfg.Type {
	case "fs":
		sink, err := fs.New(cfg.FS.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to create fallback directory: %w", err)
		}
		return sink, nil
	case "s3":
		sink, err := s3.NewFromConfig(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			KeyPrefix:       cfg.S3.KeyPrefix,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 fallback: %w", err)
		}
		return sink, nil
	case "memory":
		logger.Warn("Fallback content is kept in memory and lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown fallback type: %s", cfg.Type)
	}
}

// openJournal opens the BadgerDB journal, or returns nil when disabled.
func openJournal(cfg *config.JournalConfig) (*journal.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	store, err := journal.Open(journal.Options{
		Path:       cfg.Path,
		GCInterval: journalGCInterval,
	}, metrics.NewJournalMetrics())
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}

// buildPipeline creates the content source, the photo client and the
// pipeline around them.
func buildPipeline(cfg *config.Config, sink pipeline.FallbackSink, j pipeline.Journal) (*pipeline.Pipeline, error) {
	source, err := line.New(line.Config{
		BaseURL:        cfg.Line.BaseURL,
		ChannelToken:   cfg.Line.ChannelToken,
		Timeout:        cfg.Line.Timeout,
		MaxContentSize: int64(cfg.Line.MaxContentSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create content client: %w", err)
	}

	photos, err := google.New(google.Config{
		BaseURL:           cfg.Google.BaseURL,
		Tokens:            google.StaticToken(cfg.Google.AccessToken),
		Timeout:           cfg.Google.Timeout,
		RequestsPerSecond: cfg.Google.RequestsPerSecond,
		Burst:             cfg.Google.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create photo client: %w", err)
	}

	opts := []pipeline.Option{pipeline.WithMetrics(metrics.NewPipelineMetrics())}
	if j != nil {
		opts = append(opts, pipeline.WithJournal(j))
	}

	p, err := pipeline.New(cfg.PipelineSettings(), source, photos, photos, sink, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, nil
}
