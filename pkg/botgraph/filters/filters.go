package filters

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/state"
)

// SelfFilter drops events sent by the bot's own user.
type SelfFilter struct {
	botgraph.Branch
	userID string
}

// NewSelfFilter ignores events from userID.
func NewSelfFilter(userID string) *SelfFilter {
	return &SelfFilter{userID: userID}
}

// Handle implements botgraph.Node.
func (f *SelfFilter) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	if ev.Sender() == f.userID {
		return nil
	}
	return bot.Propagate(ctx, ev)
}

// UserFilter passes or blocks events by sender.
type UserFilter struct {
	botgraph.Branch
	list list
}

var (
	_ botgraph.Configurable    = (*UserFilter)(nil)
	_ botgraph.ConfigDescriber = (*UserFilter)(nil)
	_ botgraph.Loader          = (*UserFilter)(nil)
	_ botgraph.Exiter          = (*UserFilter)(nil)
)

// NewUserFilter filters on users. With allow set only listed users pass;
// otherwise listed users are blocked.
func NewUserFilter(users []string, allow bool) *UserFilter {
	return &UserFilter{list: newList("user", users, allow)}
}

// Handle implements botgraph.Node.
func (f *UserFilter) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	if !f.list.passes(ev.Sender()) {
		return nil
	}
	return bot.Propagate(ctx, ev)
}

// Configure implements botgraph.Configurable.
func (f *UserFilter) Configure(ctx context.Context, bot *botgraph.Bot, command string, ev event.Event) error {
	return f.list.configure(ctx, bot, command, ev.Sender(), ev)
}

// ConfigureDescription implements botgraph.ConfigDescriber.
func (f *UserFilter) ConfigureDescription() string { return f.list.describe() }

// OnLoad merges the saved list into the configured one.
func (f *UserFilter) OnLoad(name string, store state.Store) error { return f.list.load(name, store) }

// OnExit saves the list.
func (f *UserFilter) OnExit(name string, store state.Store) error { return f.list.save(name, store) }

// ChannelFilter passes or blocks events by room.
type ChannelFilter struct {
	botgraph.Branch
	list list
}

var (
	_ botgraph.Configurable = (*ChannelFilter)(nil)
	_ botgraph.Loader       = (*ChannelFilter)(nil)
	_ botgraph.Exiter       = (*ChannelFilter)(nil)
)

// NewChannelFilter filters on room ids. With allow set only listed rooms
// pass; otherwise listed rooms are blocked.
func NewChannelFilter(rooms []string, allow bool) *ChannelFilter {
	return &ChannelFilter{list: newList("room", rooms, allow)}
}

// Handle implements botgraph.Node.
func (f *ChannelFilter) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	if !f.list.passes(ev.RoomID) {
		return nil
	}
	return bot.Propagate(ctx, ev)
}

func (f *ChannelFilter) Configure(ctx context.Context, bot *botgraph.Bot, command string, ev event.Event) error {
	return f.list.configure(ctx, bot, command, ev.RoomID, ev)
}

func (f *ChannelFilter) ConfigureDescription() string { return f.list.describe() }
func (f *ChannelFilter) OnLoad(name string, store state.Store) error { return f.list.load(name, store) }
func (f *ChannelFilter) OnExit(name string, store state.Store) error { return f.list.save(name, store) }

// MessageTypeFilter passes only normal text messages.
type MessageTypeFilter struct {
	botgraph.Branch
}

// Handle implements botgraph.Node.
func (f *MessageTypeFilter) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	if !ev.IsNormalMessage() {
		return nil
	}
	return bot.Propagate(ctx, ev)
}

// DefaultForwardThreshold is the clock slack ForwardFilter tolerates.
const DefaultForwardThreshold = 2 * time.Millisecond

// ForwardFilter drops events older than the newest one already seen in the
// same room, minus a threshold. It stops replays after a resync from
// reaching commands twice. Events without a timestamp always pass.
type ForwardFilter struct {
	botgraph.Branch
	threshold time.Duration
	last      map[string]time.Time
}

// NewForwardFilter creates a filter with the given slack. Zero or negative
// selects DefaultForwardThreshold.
func NewForwardFilter(threshold time.Duration) *ForwardFilter {
	if threshold <= 0 {
		threshold = DefaultForwardThreshold
	}
	return &ForwardFilter{threshold: threshold, last: make(map[string]time.Time)}
}

// Handle implements botgraph.Node.
func (f *ForwardFilter) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	ts, ok := ev.Timestamp()
	if !ok {
		return bot.Propagate(ctx, ev)
	}
	if last, seen := f.last[ev.RoomID]; seen && !ts.After(last.Add(-f.threshold)) {
		return nil
	}
	f.last[ev.RoomID] = ts
	return bot.Propagate(ctx, ev)
}

// Admin passes only events from configured admins.
type Admin struct {
	botgraph.Branch
	admins []string
}

// NewAdmin creates an admin gate for the given user ids.
func NewAdmin(admins []string) *Admin {
	return &Admin{admins: slices.Clone(admins)}
}

// Handle implements botgraph.Node.
func (f *Admin) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	if !slices.Contains(f.admins, ev.Sender()) {
		return nil
	}
	return bot.Propagate(ctx, ev)
}

// Prefix passes text messages that start with a command prefix, with the
// prefix removed from the body.
type Prefix struct {
	botgraph.Branch
	prefix string
}

// NewPrefix creates a prefix filter such as NewPrefix("!").
func NewPrefix(prefix string) *Prefix {
	return &Prefix{prefix: prefix}
}

// Handle implements botgraph.Node.
func (f *Prefix) Handle(ctx context.Context, bot *botgraph.Bot, ev event.Event) error {
	body, ok := ev.Body()
	if !ok {
		return nil
	}
	rest, ok := strings.CutPrefix(body, f.prefix)
	if !ok {
		return nil
	}
	return bot.Propagate(ctx, ev.WithBody(rest))
}
