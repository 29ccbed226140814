package botgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bgerrors "github.com/randalmurphal/botgraph/pkg/botgraph/errors"
	"github.com/randalmurphal/botgraph/pkg/botgraph/observability"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport"
)

// ErrAlreadyRunning indicates Run was called twice concurrently.
var ErrAlreadyRunning = errors.New("engine already running")

// BatchReport summarises one dispatched batch.
type BatchReport struct {
	Events   int
	Failures []error
	Queries  int
}

// DispatchBatch dispatches every event of b in order, then resolves the
// deferred queries those events submitted.
func (e *Engine) DispatchBatch(ctx context.Context, b *transport.Batch) BatchReport {
	done := observability.TimedOperation()
	start := time.Now()

	var rep BatchReport
	for _, ev := range b.Events() {
		r := e.Dispatch(ctx, ev)
		rep.Events++
		rep.Failures = append(rep.Failures, r.Failures...)
	}
	rep.Queries = e.ResolveQueries(ctx)

	e.stats.batches.Add(1)
	e.metrics.RecordBatch(ctx, rep.Events, time.Since(start))
	observability.LogBatchComplete(e.logger, rep.Events, len(rep.Failures), done())
	return rep
}

// Run polls the transport until ctx is cancelled or authentication fails.
//
// Each batch is fully dispatched and its queries resolved before the next
// poll. Cancellation interrupts a pending poll, but a batch already being
// dispatched runs to completion. A failed poll is logged and retried after
// the error delay. On the way out Run stops background work (waiting up to
// the shutdown grace) and then calls every node's exit hook.
//
// Unless WithSince or WithBacklog is given, the first poll only fetches a
// sync token and its events are discarded.
func (e *Engine) Run(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	since := e.cfg.since
	skip := since == "" && !e.cfg.dispatchFirst
	observability.LogEngineStart(e.logger, e.registry.Len(), since)

	var runErr error
	for ctx.Err() == nil {
		batch, err := e.client.Poll(ctx, since)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			e.stats.pollErrors.Add(1)
			e.metrics.RecordPollError(ctx)
			if bgerrors.IsAuthFailure(err) {
				runErr = fmt.Errorf("poll: %w", err)
				break
			}
			delay := e.retryDelay(err)
			observability.LogPollError(e.logger, err, delay)
			if !sleep(ctx, delay) {
				break
			}
			continue
		}
		e.stats.lastPoll.Store(time.Now().UnixNano())

		if batch == nil {
			e.logger.Debug("poll returned no batch", slog.Duration("retry_in", e.cfg.errorDelay))
			if !sleep(ctx, e.cfg.errorDelay) {
				break
			}
			continue
		}
		if skip {
			skip = false
			e.logger.Debug("skipped initial snapshot", slog.Int("events", len(batch.Events())))
		} else {
			e.DispatchBatch(context.WithoutCancel(ctx), batch)
		}
		if batch.NextToken != "" {
			since = batch.NextToken
		}

		if e.cfg.pollDelay > 0 && !sleep(ctx, e.cfg.pollDelay) {
			break
		}
	}

	return e.shutdown(runErr)
}

func (e *Engine) retryDelay(err error) time.Duration {
	var httpErr *bgerrors.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > e.cfg.errorDelay {
		return httpErr.RetryAfter
	}
	return e.cfg.errorDelay
}

func (e *Engine) shutdown(runErr error) error {
	if err := e.workers.Shutdown(e.cfg.shutdownGrace); err != nil {
		e.logger.Warn("background work abandoned", slog.String("error", err.Error()))
	}
	if err := e.registry.ExitAll(); err != nil {
		e.logger.Warn("some nodes failed to save state", slog.String("error", err.Error()))
	}
	observability.LogEngineStop(e.logger, e.stats.batches.Load(), runErr)
	return runErr
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
