package botgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/botgraph/pkg/botgraph/observability"
	"github.com/randalmurphal/botgraph/pkg/botgraph/registry"
)

// AllNodes as an Ask target broadcasts the query to every registered node.
const AllNodes = ""

// Answer is one node's reply to a query.
type Answer[A any] struct {
	Name  string
	Value A
}

// AskFunc computes one node's answer. bot is scoped to the answering node.
type AskFunc[A any] func(ctx context.Context, bot *Bot, name string, n Node) A

// ReceiveFunc receives every answer. bot is scoped to the asking node.
type ReceiveFunc[A any] func(ctx context.Context, bot *Bot, answers []Answer[A])

type pendingQuery struct {
	id      string
	origin  string
	target  string
	resolve func(ctx context.Context, e *Engine) int
}

// Broker holds deferred queries until the end of the current batch.
//
// Queries are keyed by origin: a second submission from the same node
// before resolution replaces the first.
type Broker struct {
	pending *registry.Registry[string, pendingQuery]
	logger  *slog.Logger
}

func newBroker(logger *slog.Logger) *Broker {
	return &Broker{
		pending: registry.New[string, pendingQuery](),
		logger:  logger,
	}
}

// Pending returns the number of queries waiting for resolution.
func (b *Broker) Pending() int {
	return b.pending.Len()
}

func (b *Broker) submit(q pendingQuery) {
	if old, ok := b.pending.Get(q.origin); ok {
		observability.LogQuerySuperseded(b.logger, q.origin, old.id, q.id)
	}
	b.pending.Register(q.origin, q)
}

// Ask submits a deferred query on behalf of bot's node.
//
// After the current batch is dispatched, ask runs once for target (or for
// every registered node in registration order when target is AllNodes),
// then receive runs once with all answers. A target that is not registered
// yields an empty answer list. Ask returns the query id.
func Ask[A any](bot *Bot, target string, ask AskFunc[A], receive ReceiveFunc[A]) string {
	id := uuid.NewString()
	origin := bot.name
	bot.engine.broker.submit(pendingQuery{
		id:     id,
		origin: origin,
		target: target,
		resolve: func(ctx context.Context, e *Engine) int {
			answers := collect(ctx, e, id, target, ask)
			receiver := e.botFor(origin, nil)
			err := protect(origin, "receive", func() error {
				receive(ctx, receiver, answers)
				return nil
			})
			if err != nil {
				observability.LogNodeError(receiver.Logger(), origin, err)
			}
			return len(answers)
		},
	})
	return id
}

func collect[A any](ctx context.Context, e *Engine, id, target string, ask AskFunc[A]) []Answer[A] {
	targets := []string{target}
	if target == AllNodes {
		targets = e.registry.AllNames()
	}

	answers := make([]Answer[A], 0, len(targets))
	for _, name := range targets {
		n, ok := e.registry.Lookup(name)
		if !ok {
			e.logger.Debug("query target not registered",
				slog.String("query_id", id),
				slog.String("target", name),
			)
			continue
		}
		var value A
		err := protect(name, "ask", func() error {
			value = ask(ctx, e.botFor(name, nil), name, n)
			return nil
		})
		if err != nil {
			observability.LogNodeError(e.logger, name, err)
			continue
		}
		answers = append(answers, Answer[A]{Name: name, Value: value})
	}
	return answers
}

// ResolveQueries resolves every pending query, in submission order, and
// clears the pending set. Queries submitted while resolving wait for the
// next call. It returns the number of queries resolved.
func (e *Engine) ResolveQueries(ctx context.Context) int {
	queries := e.broker.pending.Drain()
	for _, entry := range queries {
		q := entry.Value
		n := q.resolve(ctx, e)
		e.metrics.RecordQuery(ctx, q.origin, n)
		observability.LogQueryResolved(e.logger, q.id, q.origin, n)
	}
	return len(queries)
}
