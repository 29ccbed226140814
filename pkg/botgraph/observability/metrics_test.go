package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("shutting down meter provider: %v", err)
		}
	})
	return reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		if key == "" {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	setupMetricsTest(t)

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop)
}

func TestRecordNodeHandle(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordNodeHandle(ctx, "echo", 3*time.Millisecond, nil)
	m.RecordNodeHandle(ctx, "echo", time.Millisecond, errors.New("boom"))
	m.RecordNodeHandle(ctx, "help", time.Millisecond, nil)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, "botgraph.node.handles"), "node", "echo"))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "botgraph.node.handles"), "node", "help"))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "botgraph.node.errors"), "node", "echo"))

	latency := findMetric(rm, "botgraph.node.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestRecordBatchAndPollErrors(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordBatch(ctx, 4, 10*time.Millisecond)
	m.RecordBatch(ctx, 0, time.Millisecond)
	m.RecordPollError(ctx)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, "botgraph.batch.count"), "", ""))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "botgraph.poll.errors"), "", ""))

	events := findMetric(rm, "botgraph.batch.events")
	require.NotNil(t, events)
	hist, ok := events.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, int64(4), hist.DataPoints[0].Sum)
}

func TestRecordOutbound(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOutbound(ctx, "send", nil)
	m.RecordOutbound(ctx, "send", nil)
	m.RecordOutbound(ctx, "join", errors.New("forbidden"))
	m.RecordQuery(ctx, "help", 5)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, "botgraph.outbound.actions"), "action", "send"))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "botgraph.outbound.errors"), "action", "join"))
	assert.Equal(t, int64(0), sumFor(t, findMetric(rm, "botgraph.outbound.errors"), "action", "send"))
	assert.NotNil(t, findMetric(rm, "botgraph.query.answers"))
}
