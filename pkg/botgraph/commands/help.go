package commands

import (
	"context"
	"slices"
	"strings"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
)

// Help lists the descriptions of every node, or of the commands whose
// description starts with a given word.
type Help struct{}

func (Help) Description() string {
	return "help [command] - Get a list of commands or view help for a specific command."
}

// Handle implements botgraph.Node.
func (Help) Handle(_ context.Context, bot *botgraph.Bot, ev event.Event) error {
	topic, ok := command(ev, "help")
	if !ok {
		return nil
	}
	botgraph.Ask(bot, botgraph.AllNodes, describe, func(ctx context.Context, bot *botgraph.Bot, answers []botgraph.Answer[string]) {
		lines := Descriptions(answers, topic)
		if len(lines) == 0 {
			_ = bot.Reply(ctx, ev, "No help for: "+topic)
			return
		}
		_ = bot.Reply(ctx, ev, strings.Join(lines, "\n"))
	})
	return nil
}

func describe(_ context.Context, _ *botgraph.Bot, _ string, n botgraph.Node) string {
	if d, ok := n.(botgraph.Describer); ok {
		return d.Description()
	}
	return ""
}

// Descriptions returns the non-empty answers, sorted, keeping only those
// that start with topic when topic is set.
func Descriptions(answers []botgraph.Answer[string], topic string) []string {
	var lines []string
	for _, a := range answers {
		if a.Value == "" {
			continue
		}
		if topic != "" && !strings.HasPrefix(a.Value, topic) {
			continue
		}
		lines = append(lines, a.Value)
	}
	slices.Sort(lines)
	return lines
}
