package botgraph

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/observability"
)

// Report summarises one dispatch pass.
type Report struct {
	// PassID identifies the pass in logs and spans.
	PassID string
	// Visited lists nodes whose Handle ran, in visit order.
	Visited []string
	// Failures holds node errors, panics and lookup failures, in order.
	Failures []error
}

// Err joins all failures, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.Failures...)
}

// pass is the per-event walk state shared by every facade handed out
// during one Dispatch call.
type pass struct {
	id      string
	visited map[string]bool
	report  *Report
}

func newPass() *pass {
	id := uuid.NewString()
	return &pass{
		id:      id,
		visited: make(map[string]bool),
		report:  &Report{PassID: id},
	}
}

func (p *pass) fail(err error) {
	p.report.Failures = append(p.report.Failures, err)
}

// Dispatch walks ev through the forest: every root in registration order,
// depth-first, each child in child order. A failing node never stops the
// walk; its error lands in the returned report.
func (e *Engine) Dispatch(ctx context.Context, ev event.Event) Report {
	p := newPass()

	ctx, span := e.spans.StartDispatchSpan(ctx, p.id, ev.RoomID, ev.Type())
	for _, root := range e.registry.RootNames() {
		e.visit(ctx, p, "", root, ev)
	}

	e.spans.EndSpanWithError(span, p.report.Err())

	e.stats.events.Add(1)
	e.stats.nodeFailures.Add(int64(len(p.report.Failures)))
	return *p.report
}

// visit runs one node's Handle under panic recovery. parent is "" for roots.
func (e *Engine) visit(ctx context.Context, p *pass, parent, name string, ev event.Event) {
	node, ok := e.registry.Lookup(name)
	if !ok {
		p.fail(&LookupError{Parent: parent, Child: name})
		observability.LogLookupError(e.logger, parent, name)
		return
	}
	if p.visited[name] {
		err := &NodeError{Node: name, Op: "handle", Err: ErrRevisit}
		p.fail(err)
		observability.LogNodeError(e.logger, name, err)
		return
	}
	p.visited[name] = true
	p.report.Visited = append(p.report.Visited, name)

	ctx, span := e.spans.StartNodeSpan(ctx, name)
	bot := e.botFor(name, p)
	start := time.Now()
	err := protect(name, "handle", func() error { return node.Handle(ctx, bot, ev) })
	duration := time.Since(start)
	e.spans.EndSpanWithError(span, err)
	e.metrics.RecordNodeHandle(ctx, name, duration, err)

	if err != nil {
		p.fail(err)
		observability.LogNodeError(bot.Logger(), name, err)
		var pe *PanicError
		if errors.As(err, &pe) {
			bot.Logger().Debug("panic stack", slog.String("stack", pe.Stack))
		}
		return
	}
	observability.LogNodeComplete(bot.Logger(), name, float64(duration.Microseconds())/1000)
}

// protect runs fn, converting a returned error into *NodeError and a panic
// into *PanicError.
func protect(node, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Node:  node,
				Op:    op,
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()
	if ferr := fn(); ferr != nil {
		return &NodeError{Node: node, Op: op, Err: ferr}
	}
	return nil
}
