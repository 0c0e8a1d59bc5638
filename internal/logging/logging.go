// Package logging wraps slog with the dataset layer's logger shape and
// consistent field names. The root package re-exports the Logger type.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with dataset-specific helpers.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler. If handler is nil, a text
// handler to stderr at info level is used.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSON creates a Logger that outputs JSON-formatted logs.
func NewJSON(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewText creates a Logger that outputs human-readable text logs.
func NewText(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// Noop creates a Logger that discards all output.
func Noop() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithPatient adds a patient id field to the logger.
func (l *Logger) WithPatient(id int) *Logger {
	return &Logger{Logger: l.Logger.With("patient", id)}
}

// LogConvert logs the outcome of one patient's conversion.
func (l *Logger) LogConvert(ctx context.Context, patientID int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "conversion failed",
			"patient", patientID,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "conversion completed",
			"patient", patientID,
		)
	}
}

// LogConvertBatch logs the outcome of a bulk conversion.
func (l *Logger) LogConvertBatch(ctx context.Context, total, skipped, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "bulk conversion completed with failures",
			"total", total,
			"skipped", skipped,
			"failed", failed,
			"converted", total-skipped-failed,
		)
	} else {
		l.InfoContext(ctx, "bulk conversion completed",
			"total", total,
			"skipped", skipped,
			"converted", total-skipped,
		)
	}
}
