package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/api"
	"github.com/marmos91/photobridge/pkg/api/handlers"
	"github.com/marmos91/photobridge/pkg/config"
	"github.com/marmos91/photobridge/pkg/metrics"
	"github.com/marmos91/photobridge/pkg/pipeline"
	"github.com/marmos91/photobridge/pkg/spool"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/photobridge/pkg/metrics/prometheus"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pipeline",
	Long: `Start the media pipeline in the foreground.

The download and upload cycles run on their own tickers. The control API,
metrics endpoint and spool watcher start when enabled in the configuration.
Stop with Ctrl+C or SIGTERM; pending work is checkpointed when the journal
is enabled.

Examples:
  # Start with the default config file
  photobridge start

  # Start with a custom config file
  photobridge start --config /etc/photobridge/config.yaml

  # Override values from the environment
  PHOTOBRIDGE_LOGGING_LEVEL=DEBUG photobridge start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if cfg.Line.ChannelToken == "" {
		logger.Warn("line.channel_token is not set; content downloads will be rejected")
	}
	if cfg.Google.AccessToken == "" {
		logger.Warn("google.access_token is not set; uploads will fail and go to fallback")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	sink, err := buildFallback(ctx, &cfg.Fallback)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()
	logger.Info("Fallback sink ready", logger.KeyStoreType, cfg.Fallback.Type)

	store, err := openJournal(&cfg.Journal)
	if err != nil {
		return err
	}
	var j pipeline.Journal
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Journal close error", logger.KeyError, err)
			}
		}()
		j = store
		logger.Info("Journal enabled", logger.KeyPath, cfg.Journal.Path)
	}

	p, err := buildPipeline(cfg, sink, j)
	if err != nil {
		return err
	}
	if j != nil {
		if err := p.Restore(ctx); err != nil {
			return fmt.Errorf("failed to restore pipeline state: %w", err)
		}
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pipeline.NewScheduler(p, cfg.SchedulerSettings()).Run(gctx)
	})

	if cfg.API.IsEnabled() {
		srv := api.NewServer(cfg.API, p, handlers.ServiceInfo{
			Version:       Version,
			AlbumID:       cfg.Album.ID,
			AlbumShareURL: cfg.Album.ShareURL,
		})
		g.Go(func() error { return srv.Start(gctx) })
		logger.Info("API server configured", "port", cfg.API.Port)
	}

	if metricsServer != nil {
		g.Go(func() error { return metricsServer.Start(gctx) })
	}

	if cfg.Spool.Enabled {
		w, err := spool.New(spool.Config{Dir: cfg.Spool.Dir, Settle: cfg.Spool.Settle}, p)
		if err != nil {
			return fmt.Errorf("failed to create spool watcher: %w", err)
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	logger.Info("Pipeline is running. Press Ctrl+C to stop.",
		logger.KeyDestination, cfg.Album.ID)

	err = g.Wait()
	p.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if j != nil {
		if cpErr := p.Checkpoint(shutdownCtx); cpErr != nil {
			logger.Error("Final checkpoint failed", logger.KeyError, cpErr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Pipeline stopped with error", logger.KeyError, err)
		return err
	}
	logger.Info("Pipeline stopped gracefully")
	return nil
}
