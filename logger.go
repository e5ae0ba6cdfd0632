package segbuild

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/segbuild/model"
)

// Logger wraps slog.Logger with build-engine context. This provides
// structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, uses a default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithIndex adds the index id to the logger.
func (l *Logger) WithIndex(id model.IndexID) *Logger {
	return &Logger{Logger: l.Logger.With("index", string(id))}
}

// LogBuildCycle logs the outcome of one build cycle.
func (l *Logger) LogBuildCycle(ctx context.Context, id model.IndexID, stats Statistics, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build cycle failed",
			"index", string(id),
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "build cycle completed",
		"index", string(id),
		"num_documents", stats.NumDocuments(),
		"non_deleted", stats.NumNonDeletedDocuments(),
	)
}
