package filters

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/state"
)

// ErrUnknownCommand is returned by Configure for commands a filter does not understand.
var ErrUnknownCommand = errors.New("unknown command")

// list is an allow or deny set shared by the user and channel filters.
type list struct {
	allow   bool
	entries map[string]struct{}
	// noun names an entry in replies ("user", "room").
	noun string
}

func newList(noun string, entries []string, allow bool) list {
	l := list{allow: allow, entries: make(map[string]struct{}, len(entries)), noun: noun}
	for _, e := range entries {
		l.add(e)
	}
	return l
}

func (l *list) add(entry string) {
	if entry = strings.TrimSpace(entry); entry != "" {
		l.entries[entry] = struct{}{}
	}
}

// passes reports whether key may pass: listed keys pass in allow mode,
// unlisted keys pass in deny mode.
func (l *list) passes(key string) bool {
	_, listed := l.entries[key]
	return listed == l.allow
}

func (l *list) sorted() []string {
	return slices.Sorted(maps.Keys(l.entries))
}

func (l *list) mode() string {
	if l.allow {
		return "allow"
	}
	return "deny"
}

func (l *list) encode() string {
	return strconv.FormatBool(l.allow) + "|" + strings.Join(l.sorted(), ",")
}

// decode merges a persisted blob into l. A blob without a "|" is a bare
// entry list and leaves the mode unchanged.
func (l *list) decode(blob string) error {
	entries := blob
	if mode, rest, ok := strings.Cut(blob, "|"); ok {
		allow, err := strconv.ParseBool(mode)
		if err != nil {
			return fmt.Errorf("%s filter mode %q: %w", l.noun, mode, err)
		}
		l.allow = allow
		entries = rest
	}
	for _, e := range strings.Split(entries, ",") {
		l.add(e)
	}
	return nil
}

func (l *list) load(name string, store state.Store) error {
	blob, err := store.Load(name)
	if errors.Is(err, state.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return l.decode(blob)
}

func (l *list) save(name string, store state.Store) error {
	return store.Save(name, l.encode())
}

// configure applies one node config command. self is the entry that
// identifies the requester (their user id or the current room); changing it
// requires -f.
func (l *list) configure(ctx context.Context, bot *botgraph.Bot, command, self string, ev event.Event) error {
	command = strings.TrimSpace(command)
	verb, arg, _ := strings.Cut(command, " ")
	arg = strings.TrimSpace(arg)

	switch verb {
	case "add", "rm":
		force := false
		if rest, ok := strings.CutPrefix(arg, "-f "); ok {
			force = true
			arg = strings.TrimSpace(rest)
		}
		if arg == "" {
			return bot.Reply(ctx, ev, fmt.Sprintf("Usage: %s <%s>", verb, l.noun))
		}
		if arg == self && !force {
			return bot.Reply(ctx, ev, fmt.Sprintf(
				"WARNING: changing your own %s in a filter could limit your ability to update the filter. Use `%s -f %s` if this is really what you want to do.",
				l.noun, verb, arg))
		}
		if verb == "add" {
			l.add(arg)
		} else {
			delete(l.entries, arg)
		}
		return nil
	case "allow":
		l.allow = true
		return nil
	case "deny":
		l.allow = false
		return nil
	case "status":
		return bot.Reply(ctx, ev, l.mode()+": "+strings.Join(l.sorted(), ", "))
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
}

func (l *list) describe() string {
	return fmt.Sprintf("add <%[1]s> - add %[1]s to filter list\n"+
		"rm <%[1]s> - remove %[1]s from filter list\n"+
		"allow - only let listed %[1]ss through\n"+
		"deny - block listed %[1]ss\n"+
		"status - show the filter mode and list", l.noun)
}
