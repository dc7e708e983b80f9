package logging

import (
	"log/slog"
	"os"
)

// LoggingService holds the process-wide logger. Handlers and background jobs
// reach it through the package-level functions below.
type LoggingService struct {
	Logger *slog.Logger
}

var DefaultLoggingService *LoggingService

// install publishes the logger globally, both for this package's helpers and
// for code that logs through slog directly.
func install(logger *slog.Logger) {
	DefaultLoggingService = &LoggingService{Logger: logger}
	slog.SetDefault(logger)
}

// InitLogger wires the default console-and-file logger into the globals.
func InitLogger(logDir string) {
	install(SetupLogger(logDir))
}

// InitLoggerWithRetention initializes the global logger with a custom retention period
func InitLoggerWithRetention(logDir string, retentionWeeks int) {
	install(SetupLoggerWithRetention(logDir, retentionWeeks))
}

// InitLoggerWithRetentionAndSize initializes the global logger with custom
// retention and file size limits
func InitLoggerWithRetentionAndSize(logDir string, retentionWeeks int, maxFileSize int64) {
	install(SetupLoggerWithRetentionAndSize(logDir, retentionWeeks, maxFileSize))
}

// InitQuietLogger routes logs to stderr at warn level, keeping stdout clean
// for interactive output.
func InitQuietLogger() {
	install(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
}

// activeLogger returns the configured logger, or a stderr fallback when
// nothing was initialized. The fallback is built at the caller's level so
// debug messages still come through before setup.
func activeLogger(fallbackLevel slog.Level) *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: fallbackLevel,
	}))
}

// Shorthand helpers on the process-wide logger.

func Info(msg string, args ...any) {
	activeLogger(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	activeLogger(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	activeLogger(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	activeLogger(slog.LevelDebug).Debug(msg, args...)
}
