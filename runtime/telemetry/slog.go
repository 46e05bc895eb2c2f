package telemetry

import (
	"context"
	"log/slog"
)

// SlogLogger adapts the standard library's structured logger to Logger.
// It is opt-in: an Agent whose Config carries no Logger uses NoopLogger,
// and a host process passes a SlogLogger explicitly. goa-ai wires its own Logger
// interface to Clue in production, but Clue is a goa.design service
// scaffolding package with nothing to attach to here, so this module wires
// the same shaped interface directly to log/slog instead (see DESIGN.md).
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger wraps l, or slog.Default() if l is nil.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{log: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, kv ...any) {
	s.log.DebugContext(ctx, msg, kv...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, kv ...any) {
	s.log.InfoContext(ctx, msg, kv...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, kv ...any) {
	s.log.WarnContext(ctx, msg, kv...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, kv ...any) {
	s.log.ErrorContext(ctx, msg, kv...)
}
