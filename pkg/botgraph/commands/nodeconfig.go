package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
)

// ErrNotConfigurable is reported when node config targets a node that
// takes no commands.
var ErrNotConfigurable = errors.New("node does not accept configuration")

// NodeConfig forwards "node config <name> <command>" to the named node's
// Configure method through a targeted query.
type NodeConfig struct{}

func (NodeConfig) Description() string {
	return "node config <node name> <command> - Send a command to a specific node."
}

// Handle implements botgraph.Node.
func (NodeConfig) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	args, ok := command(ev, "node config")
	if !ok {
		return nil
	}
	target, cmd, _ := strings.Cut(args, " ")
	cmd = strings.TrimSpace(cmd)
	if target == "" || cmd == "" {
		return bot.Reply(ctx, ev, "Usage: node config <node name> <command>")
	}

	if cmd == "help" {
		botgraph.Ask(bot, target,
			func(_ context.Context, _ *botgraph.Bot, _ string, n botgraph.Node) string {
				if d, ok := n.(botgraph.ConfigDescriber); ok {
					return d.ConfigureDescription()
				}
				return ""
			},
			func(ctx context.Context, bot *botgraph.Bot, answers []botgraph.Answer[string]) {
				switch {
				case len(answers) == 0:
					_ = bot.Reply(ctx, ev, "No such node: "+target)
				case answers[0].Value == "":
					_ = bot.Reply(ctx, ev, target+" has no configuration commands")
				default:
					_ = bot.Reply(ctx, ev, answers[0].Value)
				}
			},
		)
		return nil
	}

	botgraph.Ask(bot, target,
		func(ctx context.Context, nodeBot *botgraph.Bot, _ string, n botgraph.Node) error {
			c, ok := n.(botgraph.Configurable)
			if !ok {
				return ErrNotConfigurable
			}
			return c.Configure(ctx, nodeBot, cmd, ev)
		},
		func(ctx context.Context, bot *botgraph.Bot, answers []botgraph.Answer[error]) {
			if len(answers) == 0 {
				_ = bot.Reply(ctx, ev, "No such node: "+target)
				return
			}
			if err := answers[0].Value; err != nil {
				_ = bot.Reply(ctx, ev, fmt.Sprintf("Could not configure %s: %v", target, err))
			}
		},
	)
	return nil
}
