package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Uses the global OTel tracer provider. Tests swap it.
var tracer = otel.Tracer("botgraph")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDispatchSpan starts a span covering one event's trip through the forest.
	StartDispatchSpan(ctx context.Context, passID, roomID, eventType string) (context.Context, trace.Span)

	// StartNodeSpan starts a span for a single node visit.
	StartNodeSpan(ctx context.Context, node string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) StartDispatchSpan(ctx context.Context, passID, roomID, eventType string) (context.Context, trace.Span) {
	return StartDispatchSpan(ctx, passID, roomID, eventType)
}

func (otelSpanManager) StartNodeSpan(ctx context.Context, node string) (context.Context, trace.Span) {
	return StartNodeSpan(ctx, node)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// StartDispatchSpan starts a dispatch span on the global tracer.
func StartDispatchSpan(ctx context.Context, passID, roomID, eventType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "botgraph.dispatch",
		trace.WithAttributes(
			attribute.String("pass.id", passID),
			attribute.String("room.id", roomID),
			attribute.String("event.type", eventType),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartNodeSpan starts a node span on the global tracer.
func StartNodeSpan(ctx context.Context, node string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "botgraph.node."+node,
		trace.WithAttributes(attribute.String("node.name", node)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
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

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
