package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
)

// argsFor returns the text after word when body is exactly word or starts
// with word followed by a space.
func argsFor(body, word string) (args string, ok bool) {
	if body == word {
		return "", true
	}
	rest, ok := strings.CutPrefix(body, word+" ")
	return strings.TrimSpace(rest), ok
}

// command extracts args for word from a normal text message.
func command(ev event.Event, word string) (string, bool) {
	body, ok := ev.Body()
	if !ok {
		return "", false
	}
	return argsFor(strings.TrimSpace(body), word)
}

// Echo repeats text back to the room.
type Echo struct{}

func (Echo) Description() string { return "echo <text> - Repeat text back to the room." }

// Handle implements botgraph.Node.
func (Echo) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	text, ok := command(ev, "echo")
	if !ok || text == "" {
		return nil
	}
	return bot.Reply(ctx, ev, text)
}

// IntN returns a uniform random int in [0, n).
type IntN func(n int) int

// Roll rolls a die with a given number of sides.
type Roll struct {
	intN IntN
	// MaxSides caps the die size. Zero means no cap.
	MaxSides int
}

// NewRoll creates a Roll. A nil intN uses math/rand/v2.
func NewRoll(intN IntN) *Roll {
	if intN == nil {
		intN = rand.IntN
	}
	return &Roll{intN: intN}
}

func (r *Roll) Description() string {
	return "roll <integer> - Rolls a dice from 1 to specified integer."
}

// Handle implements botgraph.Node.
func (r *Roll) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	arg, ok := command(ev, "roll")
	if !ok {
		return nil
	}
	sides, err := strconv.Atoi(arg)
	if err != nil {
		return bot.Reply(ctx, ev, fmt.Sprintf("Could not roll: %q is not a number", arg))
	}
	if sides < 1 {
		return bot.Reply(ctx, ev, "Could not roll: a die needs at least one side")
	}
	if r.MaxSides > 0 && sides > r.MaxSides {
		return bot.Reply(ctx, ev, fmt.Sprintf("Could not roll: at most %d sides", r.MaxSides))
	}
	return bot.Reply(ctx, ev, fmt.Sprintf("Roll %d: %d", sides, r.intN(sides)+1))
}

// Choose picks one of several space-separated items.
type Choose struct {
	intN IntN
}

// NewChoose creates a Choose. A nil intN uses math/rand/v2.
func NewChoose(intN IntN) *Choose {
	if intN == nil {
		intN = rand.IntN
	}
	return &Choose{intN: intN}
}

func (c *Choose) Description() string {
	return "choose <item 1> <item 2> <item N> - Randomly selects from a space separated list of items."
}

// Handle implements botgraph.Node.
func (c *Choose) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	arg, ok := command(ev, "choose")
	if !ok {
		return nil
	}
	items := strings.Fields(arg)
	if len(items) == 0 {
		return bot.Reply(ctx, ev, "Nothing to choose from.")
	}
	return bot.Reply(ctx, ev, items[c.intN(len(items))])
}

// Join joins a room by id, alias or public room name.
type Join struct{}

func (Join) Description() string { return "join <room> - Join a room by id, alias or directory name." }

// Handle implements botgraph.Node.
func (Join) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	room, ok := command(ev, "join")
	if !ok || room == "" {
		return nil
	}
	if err := bot.JoinPublic(ctx, room); err != nil {
		return bot.Reply(ctx, ev, "Could not join room: "+room)
	}
	return nil
}

// Leave leaves a room, or the current room when none is named.
type Leave struct{}

func (Leave) Description() string { return "leave [room] - Leave a room, or this one." }

// Handle implements botgraph.Node.
func (Leave) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	room, ok := command(ev, "leave")
	if !ok {
		return nil
	}
	if room == "" {
		room = ev.RoomID
	}
	if err := bot.Leave(ctx, room); err != nil {
		return bot.Reply(ctx, ev, "Could not leave room: "+room)
	}
	return nil
}

// Joined lists the rooms the bot is in.
type Joined struct{}

func (Joined) Description() string { return "joined - List the rooms the bot is in." }

// Handle implements botgraph.Node.
func (Joined) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	if _, ok := command(ev, "joined"); !ok {
		return nil
	}
	rooms, err := bot.JoinedRooms(ctx)
	if err != nil {
		return bot.Reply(ctx, ev, "Could not list rooms: "+err.Error())
	}
	return bot.Reply(ctx, ev, "Currently in rooms: "+strings.Join(rooms, ", "))
}

// Logger logs every text message it sees and passes everything on.
type Logger struct {
	botgraph.Branch
}

// Handle implements botgraph.Node.
func (l *Logger) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	if body, ok := ev.Body(); ok {
		bot.Logger().Info("message",
			slog.String("room_id", ev.RoomID),
			slog.String("sender", ev.Sender()),
			slog.String("body", body),
		)
	}
	return bot.Propagate(ctx, ev)
}
