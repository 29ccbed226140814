package commands

import (
	"context"
	"errors"
	"time"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/llm"
)

// DefaultChatPrompt is the system prompt used when none is configured.
const DefaultChatPrompt = "You are a helpful chat bot. Answer in a few sentences of plain text."

// Chat answers "chat <prompt>" with a language model completion. The call
// runs on a background worker so dispatch is not held up.
type Chat struct {
	client llm.Client
	system string
}

// NewChat creates a chat command. An empty system prompt selects DefaultChatPrompt.
func NewChat(client llm.Client, system string) *Chat {
	if system == "" {
		system = DefaultChatPrompt
	}
	return &Chat{client: client, system: system}
}

func (c *Chat) Description() string { return "chat <prompt> - Ask the language model." }

// Handle implements botgraph.Node.
func (c *Chat) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	prompt, ok := command(ev, "chat")
	if !ok || prompt == "" {
		return nil
	}

	err := bot.Go(func(ctx context.Context, m *botgraph.Messenger) error {
		_ = m.Typing(ctx, ev.RoomID, 30*time.Second)
		resp, err := c.client.Complete(ctx, llm.UserPrompt(c.system, prompt))
		if err != nil {
			if ctx.Err() == nil {
				_ = m.Reply(ctx, ev, "Could not get an answer: "+err.Error())
			}
			return err
		}
		return m.Reply(ctx, ev, resp.Content)
	})
	if errors.Is(err, botgraph.ErrWorkersBusy) {
		return bot.Reply(ctx, ev, "Too busy right now, try again in a moment.")
	}
	return err
}
