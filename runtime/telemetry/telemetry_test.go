package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopImplementationsDoNothing(t *testing.T) {
	ctx := context.Background()
	logger := NewNoopLogger()
	logger.Debug(ctx, "msg", "k", "v")
	logger.Info(ctx, "msg")
	logger.Warn(ctx, "msg")
	logger.Error(ctx, "msg")

	metrics := NewNoopMetrics()
	metrics.IncCounter("c", 1)
	metrics.RecordGauge("g", 1)

	tracer := NewNoopTracer()
	spanCtx, span := tracer.Start(ctx, "op")
	require.Equal(t, ctx, spanCtx)
	span.AddEvent("e")
	span.End()
}

func TestSlogLoggerWritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlogLogger(slog.New(handler))

	logger.Info(context.Background(), "hello", "key", "value")

	out := buf.String()
	require.True(t, strings.Contains(out, "hello"))
	require.True(t, strings.Contains(out, "key=value"))
}

func TestNewSlogLoggerNilUsesDefault(t *testing.T) {
	logger := NewSlogLogger(nil)
	require.NotNil(t, logger)
}
