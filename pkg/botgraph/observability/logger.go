// Package observability provides structured logging, metrics, and tracing
// helpers for the botgraph dispatch engine.
//
// Logging uses slog. Metrics and tracing use OpenTelemetry and fall back to
// no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds dispatch context to a logger.
// Returns a new logger with node and pass_id fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "help", passID)
//	enriched.Info("replying") // includes node and pass_id
func EnrichLogger(logger *slog.Logger, node, passID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	if passID == "" {
		return logger.With(slog.String("node", node))
	}
	return logger.With(
		slog.String("node", node),
		slog.String("pass_id", passID),
	)
}

// LogEngineStart logs the start of the main loop.
func LogEngineStart(logger *slog.Logger, nodes int, since string) {
	if logger == nil {
		return
	}
	logger.Info("engine starting",
		slog.Int("nodes", nodes),
		slog.String("since", since),
	)
}

// LogEngineStop logs main loop shutdown.
func LogEngineStop(logger *slog.Logger, batches int64, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("engine stopped",
			slog.Int64("batches", batches),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("engine stopped", slog.Int64("batches", batches))
}

// LogBatchComplete logs a fully dispatched batch.
func LogBatchComplete(logger *slog.Logger, events, failures int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("batch dispatched",
		slog.Int("events", events),
		slog.Int("failures", failures),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogPollError logs a failed poll. The loop continues after a delay.
func LogPollError(logger *slog.Logger, err error, retryIn time.Duration) {
	if logger == nil {
		return
	}
	logger.Warn("poll failed",
		slog.String("error", err.Error()),
		slog.Duration("retry_in", retryIn),
	)
}

// LogNodeComplete logs a successful node visit.
func LogNodeComplete(logger *slog.Logger, node string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node handled event",
		slog.String("node", node),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs a node failure. Dispatch continues with the next node.
func LogNodeError(logger *slog.Logger, node string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node", node),
		slog.String("error", err.Error()),
	)
}

// LogLookupError logs a child name that could not be resolved.
func LogLookupError(logger *slog.Logger, parent, child string) {
	if logger == nil {
		return
	}
	logger.Warn("child not registered",
		slog.String("parent", parent),
		slog.String("child", child),
	)
}

// LogQueryResolved logs delivery of a deferred query.
func LogQueryResolved(logger *slog.Logger, queryID, origin string, answers int) {
	if logger == nil {
		return
	}
	logger.Debug("query resolved",
		slog.String("query_id", queryID),
		slog.String("origin", origin),
		slog.Int("answers", answers),
	)
}

// LogQuerySuperseded logs a pending query replaced by a newer one from the
// same origin before it was resolved.
func LogQuerySuperseded(logger *slog.Logger, origin, droppedID, newID string) {
	if logger == nil {
		return
	}
	logger.Warn("pending query superseded",
		slog.String("origin", origin),
		slog.String("dropped_query_id", droppedID),
		slog.String("query_id", newID),
	)
}

// LogOutbound logs an outbound transport action.
func LogOutbound(logger *slog.Logger, action, roomID string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("outbound action failed",
			slog.String("action", action),
			slog.String("room_id", roomID),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("outbound action",
		slog.String("action", action),
		slog.String("room_id", roomID),
	)
}

// LogStateError logs a state store failure (non-fatal).
func LogStateError(logger *slog.Logger, node, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("state store failed",
		slog.String("node", node),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
