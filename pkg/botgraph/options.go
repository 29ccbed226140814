package botgraph

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/botgraph/pkg/botgraph/observability"
	"github.com/randalmurphal/botgraph/pkg/botgraph/state"
)

// engineConfig holds engine configuration.
type engineConfig struct {
	logger         *slog.Logger
	store          state.Store
	metricsEnabled bool
	tracingEnabled bool
	workerLimit    int
	shutdownGrace  time.Duration
	errorDelay     time.Duration
	pollDelay      time.Duration
	since          string
	dispatchFirst  bool
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:        slog.Default(),
		workerLimit:   8,
		shutdownGrace: 5 * time.Second,
		errorDelay:    5 * time.Second,
	}
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the base logger. Node loggers are derived from it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStore sets the state store handed to node load and exit hooks.
// Default: an in-memory store.
func WithStore(store state.Store) Option {
	return func(c *engineConfig) { c.store = store }
}

// WithMetrics enables OpenTelemetry metrics via the global meter provider.
func WithMetrics(enabled bool) Option {
	return func(c *engineConfig) { c.metricsEnabled = enabled }
}

// WithTracing enables OpenTelemetry spans via the global tracer provider.
func WithTracing(enabled bool) Option {
	return func(c *engineConfig) { c.tracingEnabled = enabled }
}

// WithWorkerLimit bounds concurrent background work. Zero or negative
// means unlimited. Default: 8.
func WithWorkerLimit(n int) Option {
	return func(c *engineConfig) { c.workerLimit = n }
}

// WithShutdownGrace sets how long Run waits for background work at
// shutdown before saving node state. Default: 5s.
func WithShutdownGrace(d time.Duration) Option {
	return func(c *engineConfig) {
		if d >= 0 {
			c.shutdownGrace = d
		}
	}
}

// WithErrorDelay sets the wait after a failed poll. Default: 5s.
func WithErrorDelay(d time.Duration) Option {
	return func(c *engineConfig) {
		if d >= 0 {
			c.errorDelay = d
		}
	}
}

// WithPollDelay sets a fixed pause between batches. Default: none; the
// transport's long poll paces the loop.
func WithPollDelay(d time.Duration) Option {
	return func(c *engineConfig) {
		if d >= 0 {
			c.pollDelay = d
		}
	}
}

// WithSince resumes polling from a sync token instead of taking a fresh snapshot.
func WithSince(token string) Option {
	return func(c *engineConfig) { c.since = token }
}

// WithBacklog dispatches the initial snapshot instead of discarding it.
// By default history from before startup is skipped.
func WithBacklog(enabled bool) Option {
	return func(c *engineConfig) { c.dispatchFirst = enabled }
}

func (c engineConfig) metricsRecorder() observability.MetricsRecorder {
	if c.metricsEnabled {
		return observability.NewMetricsRecorder()
	}
	return observability.NoopMetrics{}
}

func (c engineConfig) spanManager() observability.SpanManager {
	if c.tracingEnabled {
		return observability.NewSpanManager()
	}
	return observability.NoopSpanManager{}
}
