/*
Package botgraph dispatches chat events through a forest of named nodes.

# Overview

A bot is assembled from small nodes. Filters decide whether an event goes
further down the tree; commands and listeners act on it. The engine polls the
chat transport for batches of events, walks each event through the forest,
resolves deferred queries once the batch is done, and saves node state at
shutdown.

# Basic Usage

Register nodes by name under a parent, or with an empty parent as a root,
then run the engine until the context is cancelled:

	engine := botgraph.NewEngine(client, botgraph.WithLogger(logger))

	engine.MustRegister("self", "", filters.NewSelfFilter(client.UserID()))
	engine.MustRegister("prefix", "self", filters.NewPrefix("!"))
	engine.MustRegister("echo", "prefix", commands.Echo{})

	if err := engine.Run(ctx); err != nil {
	    log.Fatal(err)
	}

# Writing Nodes

Leaf nodes implement Node. Nodes with children embed Branch, which supplies
the Parent methods and propagates everything by default:

	type Quiet struct {
	    botgraph.Branch
	}

	func (Quiet) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	    if body, ok := ev.Body(); ok && strings.HasPrefix(body, "shh") {
	        return nil
	    }
	    return bot.Propagate(ctx, ev)
	}

Propagate delivers the event to the node's children in registration order.
A filter that returns without calling it hides the event from its whole
subtree. A node may propagate a modified event, such as one with a command
prefix stripped.

Optional interfaces add behaviour: Describer and ConfigDescriber feed the
help and node config commands, Configurable accepts runtime commands, and
Loader and Exiter restore and persist state through the engine's store.

# Dispatch Guarantees

Every root sees every event. Within one pass each node runs at most once.
A node that returns an error or panics is logged and counted; its siblings
and the other roots are still visited. Listing a child that is not registered
is reported as a *LookupError and skipped.

# Deferred Queries

Ask lets a node question one node, or every node with AllNodes, without
taking a reference to it:

	botgraph.Ask(bot, botgraph.AllNodes,
	    func(ctx context.Context, bot *botgraph.Bot, name string, n botgraph.Node) string {
	        if d, ok := n.(botgraph.Describer); ok {
	            return d.Description()
	        }
	        return ""
	    },
	    func(ctx context.Context, bot *botgraph.Bot, answers []botgraph.Answer[string]) {
	        // reply with the collected descriptions
	    },
	)

Queries resolve after the current batch has been dispatched, in submission
order. A node has at most one query outstanding; asking again replaces it.

# Background Work

Bot.Go runs slow work such as an LLM call off the dispatch goroutine. The
work receives a Messenger rather than a Bot, so it can talk to the
transport but cannot touch the tree. The number of concurrent jobs is
bounded by WithWorkerLimit, and Run waits for outstanding jobs (up to
WithShutdownGrace) before calling the exit hooks.

# Observability

The engine logs through log/slog. WithMetrics and WithTracing enable
OpenTelemetry instruments and spans using the global providers.
*/
package botgraph
