package commands

import (
	"context"
	"html"
	"strings"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
)

// Structure replies with an ASCII drawing of the node forest.
type Structure struct{}

func (Structure) Description() string {
	return "structure - Show an ASCII tree of all configured nodes."
}

// Handle implements botgraph.Node.
func (Structure) Handle(_ context.Context, bot *botgraph.Bot, ev event.Event) error {
	if _, ok := command(ev, "structure"); !ok {
		return nil
	}
	botgraph.Ask(bot, botgraph.AllNodes,
		func(_ context.Context, _ *botgraph.Bot, _ string, n botgraph.Node) []string {
			if p, ok := n.(botgraph.Parent); ok {
				return p.Children()
			}
			return nil
		},
		func(ctx context.Context, bot *botgraph.Bot, answers []botgraph.Answer[[]string]) {
			children := make(map[string][]string, len(answers))
			for _, a := range answers {
				children[a.Name] = a.Value
			}
			tree := RenderTree(bot.RootNames(), children)
			_ = bot.ReplyFormatted(ctx, ev, CodeBlock(tree), tree)
		},
	)
	return nil
}

// RenderTree draws roots and their descendants in order, one node per line:
//
//	+- a
//	|  +- b
//	+- c
func RenderTree(roots []string, children map[string][]string) string {
	var lines []string
	seen := make(map[string]bool)
	var walk func(name, indent string, last bool)
	walk = func(name, indent string, last bool) {
		lines = append(lines, indent+"+- "+name)
		if seen[name] {
			return
		}
		seen[name] = true
		next := indent + "|  "
		if last {
			next = indent + "   "
		}
		kids := children[name]
		for i, c := range kids {
			walk(c, next, i == len(kids)-1)
		}
	}
	for i, r := range roots {
		walk(r, "", i == len(roots)-1)
	}
	return strings.Join(lines, "\n")
}

// CodeBlock formats text as an escaped HTML code block.
func CodeBlock(text string) string {
	return `<pre><code class="language-text">` + html.EscapeString(text) + "</code></pre>"
}
