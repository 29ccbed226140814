package botgraph

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Workers runs background work started through Bot.Go.
//
// Work is bounded by a limit and never queued: when the limit is reached
// Go fails immediately so the dispatch goroutine never blocks. Shutdown
// cancels the shared context and waits for running work up to a grace
// period.
type Workers struct {
	mu      sync.Mutex
	group   errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	running atomic.Int64
	logger  *slog.Logger
}

func newWorkers(limit int, logger *slog.Logger) *Workers {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workers{ctx: ctx, cancel: cancel, logger: logger}
	if limit <= 0 {
		limit = -1
	}
	w.group.SetLimit(limit)
	return w
}

// Running returns the number of workers currently executing.
func (w *Workers) Running() int64 {
	return w.running.Load()
}

// Go starts fn for node. Errors and panics from fn are logged.
func (w *Workers) Go(node string, m *Messenger, fn WorkFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrWorkersStopped
	}

	ok := w.group.TryGo(func() error {
		w.running.Add(1)
		defer w.running.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("background work panicked",
					slog.String("node", node),
					slog.String("panic", fmt.Sprint(r)),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		if err := fn(w.ctx, m); err != nil {
			w.logger.Warn("background work failed",
				slog.String("node", node),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
	if !ok {
		return ErrWorkersBusy
	}
	return nil
}

// Shutdown refuses new work, cancels running work and waits up to grace.
// It returns ErrShutdownTimeout if work is still running afterwards.
func (w *Workers) Shutdown(grace time.Duration) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	w.cancel()

	done := make(chan struct{})
	go func() {
		_ = w.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(grace):
		return fmt.Errorf("%w: %d still running after %s", ErrShutdownTimeout, w.running.Load(), grace)
	}
}
