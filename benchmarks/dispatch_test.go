package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/commands"
	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/filters"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport/transporttest"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEngine() *botgraph.Engine {
	return botgraph.NewEngine(transporttest.New(), botgraph.WithLogger(quiet))
}

// buildChain registers n pass-through branches in a single line.
func buildChain(n int) *botgraph.Engine {
	e := newEngine()
	parent := ""
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("n%d", i)
		e.MustRegister(name, parent, &botgraph.Branch{})
		parent = name
	}
	return e
}

// buildWide registers one root with n leaf commands under it.
func buildWide(n int) *botgraph.Engine {
	e := newEngine()
	e.MustRegister("prefix", "", filters.NewPrefix("!"))
	for i := 0; i < n; i++ {
		e.MustRegister(fmt.Sprintf("echo%d", i), "prefix", commands.Echo{})
	}
	return e
}

func benchDispatch(b *testing.B, e *botgraph.Engine, ev event.Event) {
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Dispatch(ctx, ev)
	}
}

// BenchmarkDispatch_Chain_10 walks a 10-node chain.
func BenchmarkDispatch_Chain_10(b *testing.B) {
	benchDispatch(b, buildChain(10), event.NewText("!r:x", "@a:x", "hi"))
}

// BenchmarkDispatch_Chain_100 walks a 100-node chain.
func BenchmarkDispatch_Chain_100(b *testing.B) {
	benchDispatch(b, buildChain(100), event.NewText("!r:x", "@a:x", "hi"))
}

// BenchmarkDispatch_Wide_50 fans out to 50 commands that each ignore the event.
func BenchmarkDispatch_Wide_50(b *testing.B) {
	benchDispatch(b, buildWide(50), event.NewText("!r:x", "@a:x", "!nothing"))
}

// BenchmarkDispatch_Filtered stops at the root filter.
func BenchmarkDispatch_Filtered(b *testing.B) {
	benchDispatch(b, buildWide(50), event.NewText("!r:x", "@a:x", "no prefix"))
}

// BenchmarkDispatchBatch_HelpBroadcast runs a help command whose broadcast
// query visits every node.
func BenchmarkDispatchBatch_HelpBroadcast(b *testing.B) {
	e := buildWide(50)
	e.MustRegister("help", "prefix", commands.Help{})
	batch := &transport.Batch{Rooms: []transport.RoomEvents{{
		RoomID:   "!r:x",
		Category: event.Joined,
		Events:   []event.Raw{event.NewText("!r:x", "@a:x", "!help").Raw},
	}}}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.DispatchBatch(ctx, batch)
	}
}

// BenchmarkRegister_100 builds a 100-node tree.
func BenchmarkRegister_100(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = buildWide(100)
	}
}
