package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records backfill engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDiscovery records a version discovery with its duration,
	// cache outcome, and error status.
	RecordDiscovery(ctx context.Context, cacheHit bool, duration time.Duration, err error)

	// RecordFetch records a metadata fetch with its duration, cache
	// outcome, and error status.
	RecordFetch(ctx context.Context, cacheHit bool, duration time.Duration, err error)

	// RecordRootProcessed records a root accession reaching a terminal
	// state for this run.
	RecordRootProcessed(ctx context.Context, outcome string)

	// RecordCheckpointFlush records a checkpoint flush with the number of
	// completed roots it covers.
	RecordCheckpointFlush(ctx context.Context, done int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	discoveries     metric.Int64Counter
	discoveryMs     metric.Float64Histogram
	fetches         metric.Int64Counter
	fetchMs         metric.Float64Histogram
	rootsProcessed  metric.Int64Counter
	checkpointDone  metric.Int64Histogram
	checkpointFlush metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("backfill")

	discoveries, err := meter.Int64Counter("backfill.discovery.calls",
		metric.WithDescription("Number of version discovery lookups"),
	)
	if err != nil {
		return nil, err
	}

	discoveryMs, err := meter.Float64Histogram("backfill.discovery.latency_ms",
		metric.WithDescription("Version discovery latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	fetches, err := meter.Int64Counter("backfill.fetch.calls",
		metric.WithDescription("Number of metadata fetches"),
	)
	if err != nil {
		return nil, err
	}

	fetchMs, err := meter.Float64Histogram("backfill.fetch.latency_ms",
		metric.WithDescription("Metadata fetch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	rootsProcessed, err := meter.Int64Counter("backfill.roots.processed",
		metric.WithDescription("Root accessions reaching a terminal state"),
	)
	if err != nil {
		return nil, err
	}

	checkpointDone, err := meter.Int64Histogram("backfill.checkpoint.done",
		metric.WithDescription("Completed roots covered by a checkpoint flush"),
	)
	if err != nil {
		return nil, err
	}

	checkpointFlush, err := meter.Int64Counter("backfill.checkpoint.flushes",
		metric.WithDescription("Number of checkpoint flushes"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		discoveries:     discoveries,
		discoveryMs:     discoveryMs,
		fetches:         fetches,
		fetchMs:         fetchMs,
		rootsProcessed:  rootsProcessed,
		checkpointDone:  checkpointDone,
		checkpointFlush: checkpointFlush,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDiscovery records a version discovery.
func (m *otelMetrics) RecordDiscovery(ctx context.Context, cacheHit bool, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("cache_hit", cacheHit),
		attribute.Bool("error", err != nil),
	}
	m.discoveries.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.discoveryMs.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordFetch records a metadata fetch.
func (m *otelMetrics) RecordFetch(ctx context.Context, cacheHit bool, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("cache_hit", cacheHit),
		attribute.Bool("error", err != nil),
	}
	m.fetches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.fetchMs.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordRootProcessed records a terminal root outcome
// ("done", "failed", "skipped").
func (m *otelMetrics) RecordRootProcessed(ctx context.Context, outcome string) {
	m.rootsProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordCheckpointFlush records a checkpoint flush.
func (m *otelMetrics) RecordCheckpointFlush(ctx context.Context, done int64) {
	m.checkpointFlush.Add(ctx, 1)
	m.checkpointDone.Record(ctx, done)
}
