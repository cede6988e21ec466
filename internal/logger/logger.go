// Package logger is the process-wide structured logger used by photobridge.
//
// Records go through a single slog handler selected by Init: the colored
// text handler for humans or slog's JSON handler for collectors. The minimum
// level lives in a shared slog.LevelVar so it can change without rebuilding
// the handler. The *Ctx variants prepend the request, cycle and destination
// carried by a LogContext.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config selects the level, format and destination of log output.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR (case-insensitive)
	Format string // text or json
	Output string // stdout, stderr, or a file path
}

// sink is the writer records are rendered to.
type sink struct {
	w      io.Writer
	format string
	color  bool
	file   *os.File // set when Init opened the writer itself
}

var (
	level = new(slog.LevelVar)

	mu      sync.RWMutex
	current sink
	slogger *slog.Logger
)

func init() {
	install(sink{w: os.Stdout, format: "text", color: colorFor(os.Stdout)})
}

// install swaps in s and closes the log file the previous sink owned.
func install(s sink) {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if s.format == "json" {
		h = slog.NewJSONHandler(s.w, opts)
	} else {
		h = NewColorTextHandler(s.w, opts, s.color)
	}

	mu.Lock()
	prev := current
	current = s
	slogger = slog.New(h)
	mu.Unlock()

	if prev.file != nil && prev.file != s.file {
		_ = prev.file.Close()
	}
}

// Init applies cfg. Empty fields keep their current setting, so a zero
// Config is a no-op. An invalid level or format is rejected before anything
// changes.
func Init(cfg Config) error {
	var lvl slog.Level
	if cfg.Level != "" {
		if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			return fmt.Errorf("invalid log level %q", cfg.Level)
		}
	}

	format := strings.ToLower(cfg.Format)
	if format != "" && format != "text" && format != "json" {
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	mu.RLock()
	next := current
	mu.RUnlock()

	switch strings.ToLower(cfg.Output) {
	case "":
	case "stdout":
		next = sink{w: os.Stdout, format: next.format, color: colorFor(os.Stdout)}
	case "stderr":
		next = sink{w: os.Stderr, format: next.format, color: colorFor(os.Stderr)}
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
		}
		next = sink{w: f, format: next.format, file: f}
	}
	if format != "" {
		next.format = format
	}

	if cfg.Level != "" {
		level.Set(lvl)
	}
	install(next)
	return nil
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level. Args are alternating keys and values.
func Debug(msg string, args ...any) { logAt(context.Background(), slog.LevelDebug, msg, args) }

// Info logs at info level.
func Info(msg string, args ...any) { logAt(context.Background(), slog.LevelInfo, msg, args) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { logAt(context.Background(), slog.LevelWarn, msg, args) }

// Error logs at error level.
func Error(msg string, args ...any) { logAt(context.Background(), slog.LevelError, msg, args) }

// DebugCtx logs at debug level with the LogContext fields of ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelDebug, msg, withContextFields(ctx, args))
}

// InfoCtx logs at info level with the LogContext fields of ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelInfo, msg, withContextFields(ctx, args))
}

// WarnCtx logs at warn level with the LogContext fields of ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelWarn, msg, withContextFields(ctx, args))
}

func logAt(ctx context.Context, lvl slog.Level, msg string, args []any) {
	if lvl < level.Level() {
		return
	}
	getLogger().Log(ctx, lvl, msg, args...)
}

// withContextFields prepends the non-empty LogContext fields to args.
func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := make([]any, 0, 6+len(args))
	for _, f := range [...]struct{ key, value string }{
		{KeyRequestID, lc.RequestID},
		{KeyCycle, lc.Cycle},
		{KeyDestination, lc.Destination},
	} {
		if f.value != "" {
			fields = append(fields, f.key, f.value)
		}
	}
	return append(fields, args...)
}

// Duration returns the milliseconds elapsed since start.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
