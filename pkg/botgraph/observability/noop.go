package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordNodeHandle(context.Context, string, time.Duration, error) {}
func (NoopMetrics) RecordBatch(context.Context, int, time.Duration)                {}
func (NoopMetrics) RecordPollError(context.Context)                                {}
func (NoopMetrics) RecordQuery(context.Context, string, int)                       {}
func (NoopMetrics) RecordOutbound(context.Context, string, error)                  {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartDispatchSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartDispatchSpan(ctx context.Context, _, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartNodeSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartNodeSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
