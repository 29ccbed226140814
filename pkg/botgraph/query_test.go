package botgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
)

type described struct {
	Branch
	desc string
}

func (d *described) Description() string { return d.desc }

// asker submits a query each time it handles an event.
type asker struct {
	Branch
	target   string
	received [][]Answer[string]
	receiver *Bot
	askErr   error
}

func (a *asker) Handle(_ context.Context, bot *Bot, _ event.Event) error {
	Ask(bot, a.target,
		func(_ context.Context, _ *Bot, _ string, n Node) string {
			if d, ok := n.(Describer); ok {
				return d.Description()
			}
			return ""
		},
		func(ctx context.Context, bot *Bot, answers []Answer[string]) {
			a.received = append(a.received, answers)
			a.receiver = bot
			a.askErr = bot.Propagate(ctx, event.NewText("!r", "@u:x", "x"))
		},
	)
	return nil
}

func TestAsk_BroadcastIsDeferredAndOneShot(t *testing.T) {
	e, _ := newTestEngine(t)
	a := &asker{target: AllNodes}
	mustRegister(t, e, "help", "", a)
	mustRegister(t, e, "echo", "", &described{desc: "echo text"})
	mustRegister(t, e, "roll", "", &described{desc: "roll dice"})

	e.Dispatch(context.Background(), event.NewText("!r", "@u:x", "help"))
	assert.Empty(t, a.received)
	assert.Equal(t, 1, e.Broker().Pending())

	assert.Equal(t, 1, e.ResolveQueries(context.Background()))
	require.Len(t, a.received, 1)
	assert.Equal(t, []Answer[string]{
		{Name: "help", Value: ""},
		{Name: "echo", Value: "echo text"},
		{Name: "roll", Value: "roll dice"},
	}, a.received[0])
	assert.Equal(t, "help", a.receiver.Name())
	assert.Empty(t, a.receiver.PassID())
	assert.ErrorIs(t, a.askErr, ErrOutsideDispatch)

	assert.Equal(t, 0, e.ResolveQueries(context.Background()))
	assert.Len(t, a.received, 1)
	assert.Zero(t, e.Broker().Pending())
}

func TestAsk_SecondSubmissionReplacesFirst(t *testing.T) {
	e, _ := newTestEngine(t)
	var got []string
	var ids []string
	mustRegister(t, e, "origin", "", HandlerFunc(func(_ context.Context, bot *Bot, ev event.Event) error {
		target, _ := ev.Body()
		ids = append(ids, Ask(bot, target,
			func(_ context.Context, _ *Bot, name string, _ Node) string { return name },
			func(_ context.Context, _ *Bot, answers []Answer[string]) {
				for _, a := range answers {
					got = append(got, a.Value)
				}
			},
		))
		return nil
	}))
	mustRegister(t, e, "first", "", &Branch{})
	mustRegister(t, e, "second", "", &Branch{})

	e.Dispatch(context.Background(), event.NewText("!r", "@u:x", "first"))
	e.Dispatch(context.Background(), event.NewText("!r", "@u:x", "second"))
	assert.Equal(t, 1, e.Broker().Pending())

	assert.Equal(t, 1, e.ResolveQueries(context.Background()))
	assert.Equal(t, []string{"second"}, got)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestAsk_DistinctOriginsResolveInSubmissionOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	var order []string
	for _, name := range []string{"x", "y"} {
		mustRegister(t, e, name, "", HandlerFunc(func(_ context.Context, bot *Bot, _ event.Event) error {
			Ask(bot, bot.Name(),
				func(context.Context, *Bot, string, Node) int { return 1 },
				func(_ context.Context, bot *Bot, _ []Answer[int]) { order = append(order, bot.Name()) },
			)
			return nil
		}))
	}

	e.Dispatch(context.Background(), event.NewText("!r", "@u:x", "go"))
	assert.Equal(t, 2, e.ResolveQueries(context.Background()))
	assert.Equal(t, []string{"x", "y"}, order)
}

func TestAsk_MissingTargetYieldsNoAnswers(t *testing.T) {
	e, _ := newTestEngine(t)
	a := &asker{target: "nobody"}
	mustRegister(t, e, "origin", "", a)

	e.Dispatch(context.Background(), event.NewText("!r", "@u:x", "go"))
	e.ResolveQueries(context.Background())

	require.Len(t, a.received, 1)
	assert.Empty(t, a.received[0])
}

func TestAsk_PanicsAreIsolated(t *testing.T) {
	e, _ := newTestEngine(t)
	var answers []Answer[string]
	calls := 0
	mustRegister(t, e, "origin", "", HandlerFunc(func(_ context.Context, bot *Bot, _ event.Event) error {
		Ask(bot, AllNodes,
			func(_ context.Context, _ *Bot, name string, _ Node) string {
				if name == "bad" {
					panic("no answer")
				}
				return name
			},
			func(_ context.Context, _ *Bot, got []Answer[string]) {
				calls++
				answers = got
				panic("receive failed")
			},
		)
		return nil
	}))
	mustRegister(t, e, "bad", "", &Branch{})
	mustRegister(t, e, "good", "", &Branch{})

	e.Dispatch(context.Background(), event.NewText("!r", "@u:x", "go"))
	require.NotPanics(t, func() { e.ResolveQueries(context.Background()) })

	assert.Equal(t, 1, calls)
	assert.Equal(t, []Answer[string]{{Name: "origin", Value: "origin"}, {Name: "good", Value: "good"}}, answers)
}

func TestAsk_SubmittedDuringResolutionWaitsForNextCycle(t *testing.T) {
	e, _ := newTestEngine(t)
	rounds := 0
	var origin HandlerFunc
	origin = func(_ context.Context, bot *Bot, _ event.Event) error {
		var again func(ctx context.Context, bot *Bot, _ []Answer[bool])
		again = func(_ context.Context, bot *Bot, _ []Answer[bool]) {
			rounds++
			if rounds < 3 {
				Ask(bot, bot.Name(), func(context.Context, *Bot, string, Node) bool { return true }, again)
			}
		}
		Ask(bot, bot.Name(), func(context.Context, *Bot, string, Node) bool { return true }, again)
		return nil
	}
	mustRegister(t, e, "loop", "", origin)

	e.Dispatch(context.Background(), event.NewText("!r", "@u:x", "go"))
	assert.Equal(t, 1, e.ResolveQueries(context.Background()))
	assert.Equal(t, 1, rounds)
	assert.Equal(t, 1, e.ResolveQueries(context.Background()))
	assert.Equal(t, 2, rounds)
	assert.Equal(t, 1, e.ResolveQueries(context.Background()))
	assert.Equal(t, 3, rounds)
	assert.Equal(t, 0, e.ResolveQueries(context.Background()))
}
