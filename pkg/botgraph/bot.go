package botgraph

import (
	"context"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
)

// Bot is the facade a node uses to reach the network and the rest of the
// forest. Each Bot is scoped to the node it was handed to: its name is the
// implicit origin of queries and its logger carries the node name.
//
// A Bot is only valid for the duration of the call it was passed to.
// Background work must go through Go, which hands the worker a Messenger.
type Bot struct {
	*Messenger

	engine *Engine
	pass   *pass
}

// PassID returns the id of the current dispatch pass, or "" outside one.
func (b *Bot) PassID() string {
	if b.pass == nil {
		return ""
	}
	return b.pass.id
}

// Lookup returns the node registered under name.
func (b *Bot) Lookup(name string) (Node, bool) {
	return b.engine.registry.Lookup(name)
}

// RootNames returns root names in registration order.
func (b *Bot) RootNames() []string {
	return b.engine.registry.RootNames()
}

// AllNames returns every registered name in registration order.
func (b *Bot) AllNames() []string {
	return b.engine.registry.AllNames()
}

// Children returns the declared children of name.
func (b *Bot) Children(name string) []string {
	return b.engine.registry.Children(name)
}

// Propagate hands ev to each child of the current node, in child order.
//
// Child failures are recorded against the pass and logged; they are not
// returned. A child name that is not registered is reported as a
// *LookupError and skipped. Propagate returns ErrOutsideDispatch when
// called from a query callback.
func (b *Bot) Propagate(ctx context.Context, ev event.Event) error {
	if b.pass == nil {
		return ErrOutsideDispatch
	}
	for _, child := range b.engine.registry.Children(b.name) {
		b.engine.visit(ctx, b.pass, b.name, child, ev)
	}
	return nil
}

// WorkFunc is background work started with Bot.Go. ctx is cancelled when
// the engine shuts down.
type WorkFunc func(ctx context.Context, m *Messenger) error

// Go runs fn on a background worker so slow calls do not hold up dispatch.
// It returns ErrWorkersBusy if the worker limit is reached and
// ErrWorkersStopped during shutdown; it never blocks.
func (b *Bot) Go(fn WorkFunc) error {
	return b.engine.workers.Go(b.name, b.engine.messengerFor(b.name, ""), fn)
}
