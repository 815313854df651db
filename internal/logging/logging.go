package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	// Logger is the global structured logger
	Logger *slog.Logger

	// Verbose enables debug logging
	Verbose bool
)

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Setup configures the logger based on verbosity and output preferences
func Setup(verbose bool, jsonOutput bool, w io.Writer) {
	Verbose = verbose
	Plain = jsonOutput

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if w == nil {
		w = os.Stderr
	}

	if jsonOutput {
		Logger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		Logger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// RunLogName returns the file name of the per-run log.
func RunLogName(runTimestamp, blueprintID string) string {
	return fmt.Sprintf("%s_%s.log", runTimestamp, blueprintID)
}

// OpenRunLog opens (appending) the log file for one run under dir,
// creating dir if needed. Callers close the returned file.
func OpenRunLog(dir, runTimestamp, blueprintID string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, RunLogName(runTimestamp, blueprintID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	return f, nil
}

// ForRun returns a logger tagged with the run identity and a fresh
// invocation id, so records from separate setup and teardown processes can
// be told apart in the same run log.
func ForRun(base *slog.Logger, blueprintID, runTimestamp string) *slog.Logger {
	if base == nil {
		base = Logger
	}
	return base.With(
		"blueprint", blueprintID,
		"run", runTimestamp,
		"invocation", uuid.NewString(),
	)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// With returns a logger with additional attributes
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
