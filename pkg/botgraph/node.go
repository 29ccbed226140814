package botgraph

import (
	"context"
	"slices"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/state"
)

// Node is a unit of behaviour in the dispatch forest.
//
// Handle is called at most once per event. A node that wants its children to
// see the event calls bot.Propagate, optionally with a modified event;
// returning without propagating suppresses the event for the whole subtree.
//
// An error returned from Handle is logged and counted. It never stops
// dispatch to siblings or other roots.
type Node interface {
	Handle(ctx context.Context, bot *Bot, ev event.Event) error
}

// HandlerFunc adapts a function to a leaf Node.
type HandlerFunc func(ctx context.Context, bot *Bot, ev event.Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, bot *Bot, ev event.Event) error {
	return f(ctx, bot, ev)
}

// Parent is implemented by nodes that can have children.
// Registering a child under a node that does not implement Parent fails.
type Parent interface {
	// Children returns child names in registration order.
	Children() []string
	// RegisterChild appends a child name. Called by the registry only.
	RegisterChild(name string)
}

// Describer provides the line shown by the help command.
// An empty string means the node is not listed.
type Describer interface {
	Description() string
}

// ConfigDescriber documents the commands accepted by Configure.
type ConfigDescriber interface {
	ConfigureDescription() string
}

// Configurable nodes accept runtime reconfiguration commands, typically
// delivered through a targeted query from the node config command.
type Configurable interface {
	Configure(ctx context.Context, bot *Bot, command string, ev event.Event) error
}

// Loader nodes restore state when registered. A failure aborts registration.
type Loader interface {
	OnLoad(name string, store state.Store) error
}

// Exiter nodes persist state at shutdown.
type Exiter interface {
	OnExit(name string, store state.Store) error
}

// Branch is an embeddable Parent whose Handle propagates every event
// unchanged. Filters embed it and override Handle.
type Branch struct {
	children []string
}

var _ interface {
	Node
	Parent
} = (*Branch)(nil)

// Children implements Parent.
func (b *Branch) Children() []string {
	return slices.Clone(b.children)
}

// RegisterChild implements Parent.
func (b *Branch) RegisterChild(name string) {
	b.children = append(b.children, name)
}

// Handle propagates ev to every child.
func (b *Branch) Handle(ctx context.Context, bot *Bot, ev event.Event) error {
	return bot.Propagate(ctx, ev)
}
