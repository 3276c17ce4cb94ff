package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordDiscovery does nothing.
func (NoopMetrics) RecordDiscovery(_ context.Context, _ bool, _ time.Duration, _ error) {}

// RecordFetch does nothing.
func (NoopMetrics) RecordFetch(_ context.Context, _ bool, _ time.Duration, _ error) {}

// RecordRootProcessed does nothing.
func (NoopMetrics) RecordRootProcessed(_ context.Context, _ string) {}

// RecordCheckpointFlush does nothing.
func (NoopMetrics) RecordCheckpointFlush(_ context.Context, _ int64) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
// We use the OTel noop package for a proper no-op span implementation.
var noopSpan = noop.Span{}

// StartRunSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartRunSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartRootSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartRootSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartCallSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartCallSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}
