package botgraph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport/transporttest"
)

func TestBotGo_RunsWorkWithMessenger(t *testing.T) {
	e, rec := newTestEngine(t)
	done := make(chan struct{})
	mustRegister(t, e, "slow", "", HandlerFunc(func(_ context.Context, bot *Bot, ev event.Event) error {
		return bot.Go(func(ctx context.Context, m *Messenger) error {
			defer close(done)
			assert.Equal(t, "slow", m.Name())
			return m.Reply(ctx, ev, "later")
		})
	}))

	rep := e.Dispatch(context.Background(), event.NewText("!r", "@u:x", "go"))
	require.Empty(t, rep.Failures)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background work did not run")
	}
	assert.Equal(t, []transporttest.Call{{Action: transporttest.ActionSend, RoomID: "!r", Text: "later"}}, rec.Calls())
}

func TestWorkers_BusyDoesNotBlock(t *testing.T) {
	w := newWorkers(1, testLogger())
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, w.Go("a", nil, func(context.Context, *Messenger) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	err := w.Go("b", nil, func(context.Context, *Messenger) error { return nil })
	assert.ErrorIs(t, err, ErrWorkersBusy)
	assert.Equal(t, int64(1), w.Running())

	close(release)
	require.NoError(t, w.Shutdown(2*time.Second))
	assert.Zero(t, w.Running())
}

func TestWorkers_RefusesWorkAfterShutdown(t *testing.T) {
	w := newWorkers(0, testLogger())
	require.NoError(t, w.Shutdown(time.Second))
	require.NoError(t, w.Shutdown(time.Second))

	err := w.Go("a", nil, func(context.Context, *Messenger) error { return nil })
	assert.ErrorIs(t, err, ErrWorkersStopped)
}

func TestWorkers_ShutdownCancelsWork(t *testing.T) {
	w := newWorkers(4, testLogger())
	started := make(chan struct{})
	var cause error
	require.NoError(t, w.Go("a", nil, func(ctx context.Context, _ *Messenger) error {
		close(started)
		<-ctx.Done()
		cause = ctx.Err()
		return cause
	}))
	<-started

	require.NoError(t, w.Shutdown(2*time.Second))
	assert.ErrorIs(t, cause, context.Canceled)
}

func TestWorkers_ShutdownTimeout(t *testing.T) {
	w := newWorkers(4, testLogger())
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	require.NoError(t, w.Go("stubborn", nil, func(context.Context, *Messenger) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	err := w.Shutdown(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrShutdownTimeout)
}

func TestWorkers_FailuresAndPanicsAreContained(t *testing.T) {
	w := newWorkers(4, testLogger())
	require.NoError(t, w.Go("err", nil, func(context.Context, *Messenger) error { return errors.New("nope") }))
	require.NoError(t, w.Go("panic", nil, func(context.Context, *Messenger) error { panic("worker blew up") }))

	assert.NoError(t, w.Shutdown(2*time.Second))
	assert.Zero(t, w.Running())
}
