// Package tracelog wraps log/slog with the terse, level-tagged call shape
// the core uses at every dispatch decision and part boundary.
package tracelog

import (
	"context"
	"log/slog"
)

// Logger is the sink used throughout the ranger packages. The zero value,
// like a nil *Logger, discards everything; use New for a real sink.
type Logger struct {
	base *slog.Logger
}

// New wraps base. A nil base falls back to slog.Default().
func New(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{base: base}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{base: slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Debug logs a dispatch-level decision: which path preadVec took, how many
// header values were packed, and similar orchestration events.
func (l *Logger) Debug(msg string, args ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Trace logs finer-grained per-part/per-block events at slog.LevelDebug-4,
// one step below slog's lowest built-in level, since slog has no dedicated
// trace level.
func (l *Logger) Trace(msg string, args ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Log(context.Background(), slog.LevelDebug-4, msg, args...)
}
