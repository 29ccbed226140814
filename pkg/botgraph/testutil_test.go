package botgraph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/state"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport/transporttest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *transporttest.Recorder) {
	t.Helper()
	rec := transporttest.New()
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	return NewEngine(rec, opts...), rec
}

func mustRegister(t *testing.T, e *Engine, name, parent string, n Node) {
	t.Helper()
	_, err := e.Register(name, parent, n)
	require.NoError(t, err)
}

// trail is a concurrency-safe visit log shared by trace nodes.
type trail struct {
	mu    sync.Mutex
	names []string
}

func (t *trail) add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = append(t.names, name)
}

func (t *trail) get() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.names...)
}

// traceNode records each visit and then propagates, stops, fails or panics.
type traceNode struct {
	Branch
	name     string
	trail    *trail
	stop     bool
	err      error
	panicVal any
	seen     []event.Event
}

func newTrace(name string, tr *trail) *traceNode {
	return &traceNode{name: name, trail: tr}
}

func (n *traceNode) Handle(ctx context.Context, bot *Bot, ev event.Event) error {
	n.trail.add(n.name)
	n.seen = append(n.seen, ev)
	switch {
	case n.panicVal != nil:
		panic(n.panicVal)
	case n.err != nil:
		return n.err
	case n.stop:
		return nil
	}
	return bot.Propagate(ctx, ev)
}

// extraChildren lists names it was never given, to exercise lookup failures
// and revisits.
type extraChildren struct {
	Branch
	before []string
}

func (n *extraChildren) Children() []string {
	return append(append([]string(nil), n.before...), n.Branch.Children()...)
}

// forgetful accepts children but never lists them.
type forgetful struct{ Branch }

func (forgetful) Children() []string { return nil }

// stateful restores and saves a string through the state store.
type stateful struct {
	Branch
	value    string
	loadErr  error
	exitErr  error
	exitHook func()
}

func (n *stateful) OnLoad(name string, store state.Store) error {
	if n.loadErr != nil {
		return n.loadErr
	}
	blob, err := store.Load(name)
	if errors.Is(err, state.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	n.value = blob
	return nil
}

func (n *stateful) OnExit(name string, store state.Store) error {
	if n.exitHook != nil {
		n.exitHook()
	}
	if n.exitErr != nil {
		return n.exitErr
	}
	return store.Save(name, n.value)
}

func textBatch(token, room string, bodies ...string) *transport.Batch {
	raws := make([]event.Raw, 0, len(bodies))
	for _, b := range bodies {
		raws = append(raws, event.NewText(room, "@alice:example.org", b).Raw)
	}
	return &transport.Batch{
		NextToken: token,
		Rooms:     []transport.RoomEvents{{RoomID: room, Category: event.Joined, Events: raws}},
	}
}
