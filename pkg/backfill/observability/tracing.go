package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the backfill tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("backfill")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts a span for the entire backfill run.
	StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span)

	// StartRootSpan starts a span for processing one root accession.
	// The root span should be a child of the run span.
	StartRootSpan(ctx context.Context, rootID string) (context.Context, trace.Span)

	// StartCallSpan starts a span for one external service call
	// ("discover" or "fetch") against the given identifier.
	StartCallSpan(ctx context.Context, op, id string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartRunSpan starts a span for the entire backfill run.
func (m *otelSpanManager) StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "backfill.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartRootSpan starts a span for processing one root accession.
func (m *otelSpanManager) StartRootSpan(ctx context.Context, rootID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "backfill.root",
		trace.WithAttributes(
			attribute.String("root.id", rootID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartCallSpan starts a span for one external service call.
func (m *otelSpanManager) StartCallSpan(ctx context.Context, op, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "backfill."+op,
		trace.WithAttributes(
			attribute.String("accession", id),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
