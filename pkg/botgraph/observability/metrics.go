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

// MetricsRecorder records botgraph metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeHandle records one node visit with its duration and error status.
	RecordNodeHandle(ctx context.Context, node string, duration time.Duration, err error)

	// RecordBatch records a dispatched batch.
	RecordBatch(ctx context.Context, events int, duration time.Duration)

	// RecordPollError records a failed poll.
	RecordPollError(ctx context.Context)

	// RecordQuery records a resolved deferred query.
	RecordQuery(ctx context.Context, origin string, answers int)

	// RecordOutbound records an outbound transport action.
	RecordOutbound(ctx context.Context, action string, err error)
}

type otelMetrics struct {
	nodeHandles   metric.Int64Counter
	nodeLatency   metric.Float64Histogram
	nodeErrors    metric.Int64Counter
	batches       metric.Int64Counter
	batchEvents   metric.Int64Histogram
	batchLatency  metric.Float64Histogram
	pollErrors    metric.Int64Counter
	queryAnswers  metric.Int64Histogram
	outbound      metric.Int64Counter
	outboundError metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("botgraph")
	m := &otelMetrics{}
	var err error

	if m.nodeHandles, err = meter.Int64Counter("botgraph.node.handles",
		metric.WithDescription("Number of node visits"),
	); err != nil {
		return nil, err
	}
	if m.nodeLatency, err = meter.Float64Histogram("botgraph.node.latency_ms",
		metric.WithDescription("Node handle latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.nodeErrors, err = meter.Int64Counter("botgraph.node.errors",
		metric.WithDescription("Number of node failures, including panics"),
	); err != nil {
		return nil, err
	}
	if m.batches, err = meter.Int64Counter("botgraph.batch.count",
		metric.WithDescription("Number of dispatched batches"),
	); err != nil {
		return nil, err
	}
	if m.batchEvents, err = meter.Int64Histogram("botgraph.batch.events",
		metric.WithDescription("Events per batch"),
	); err != nil {
		return nil, err
	}
	if m.batchLatency, err = meter.Float64Histogram("botgraph.batch.latency_ms",
		metric.WithDescription("Batch dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.pollErrors, err = meter.Int64Counter("botgraph.poll.errors",
		metric.WithDescription("Number of failed polls"),
	); err != nil {
		return nil, err
	}
	if m.queryAnswers, err = meter.Int64Histogram("botgraph.query.answers",
		metric.WithDescription("Answers delivered per deferred query"),
	); err != nil {
		return nil, err
	}
	if m.outbound, err = meter.Int64Counter("botgraph.outbound.actions",
		metric.WithDescription("Number of outbound transport actions"),
	); err != nil {
		return nil, err
	}
	if m.outboundError, err = meter.Int64Counter("botgraph.outbound.errors",
		metric.WithDescription("Number of failed outbound transport actions"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
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

func (m *otelMetrics) RecordNodeHandle(ctx context.Context, node string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node", node))
	m.nodeHandles.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordBatch(ctx context.Context, events int, duration time.Duration) {
	m.batches.Add(ctx, 1)
	m.batchEvents.Record(ctx, int64(events))
	m.batchLatency.Record(ctx, float64(duration.Microseconds())/1000)
}

func (m *otelMetrics) RecordPollError(ctx context.Context) {
	m.pollErrors.Add(ctx, 1)
}

func (m *otelMetrics) RecordQuery(ctx context.Context, origin string, answers int) {
	m.queryAnswers.Record(ctx, int64(answers), metric.WithAttributes(attribute.String("origin", origin)))
}

func (m *otelMetrics) RecordOutbound(ctx context.Context, action string, err error) {
	attrs := metric.WithAttributes(attribute.String("action", action))
	m.outbound.Add(ctx, 1, attrs)
	if err != nil {
		m.outboundError.Add(ctx, 1, attrs)
	}
}
