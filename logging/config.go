package logging

import (
	"context"
	"log/slog"
	"os"
)

const defaultRetentionWeeks = 4

// SetupLogger builds an slog.Logger that writes to the console and to a
// weekly rotating file under logDir, with default retention.
func SetupLogger(logDir string) *slog.Logger {
	return SetupLoggerWithRetention(logDir, defaultRetentionWeeks)
}

// SetupLoggerWithRetention is SetupLogger with a custom retention period.
func SetupLoggerWithRetention(logDir string, retentionWeeks int) *slog.Logger {
	return SetupLoggerWithRetentionAndSize(logDir, retentionWeeks, defaultMaxLogFileSize)
}

// SetupLoggerWithRetentionAndSize is SetupLogger with custom retention and
// per-file size limit. When the log directory cannot be used it falls back
// to a console-only logger rather than failing.
func SetupLoggerWithRetentionAndSize(logDir string, retentionWeeks int, maxFileSize int64) *slog.Logger {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return consoleFallback("Log directory could not be created", err)
	}

	rotating := NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, maxFileSize)
	if err := rotating.openInitialFile(); err != nil {
		return consoleFallback("Rotating log file could not be opened", err)
	}
	rotating.startCleanupLoop()

	// Text on the console for humans, JSON in the file for log tooling
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	file := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: slog.LevelInfo})

	return slog.New(&teeHandler{targets: []slog.Handler{console, file}})
}

// consoleFallback reports the setup failure on a plain stdout logger and
// hands that logger back so the caller still has something to log with.
func consoleFallback(msg string, err error) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Error(msg, "error", err)
	return logger
}

// teeHandler duplicates every record onto all of its targets.
type teeHandler struct {
	targets []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.targets {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range t.targets {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.fanOut(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.fanOut(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

// fanOut rebuilds the target set through wrap, preserving order.
func (t *teeHandler) fanOut(wrap func(slog.Handler) slog.Handler) slog.Handler {
	wrapped := make([]slog.Handler, len(t.targets))
	for i, h := range t.targets {
		wrapped[i] = wrap(h)
	}
	return &teeHandler{targets: wrapped}
}
