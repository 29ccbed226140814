// Package transport defines the narrow interface between the dispatch core
// and a chat-protocol connection.
//
// The core never depends on a concrete client. The matrix subpackage provides
// a Matrix client-server implementation and transporttest provides a
// recording fake.
package transport

import (
	"context"
	"time"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
)

// Client is a chat-protocol connection.
// Implementations must be safe for concurrent use: background workers send
// while the main loop polls.
type Client interface {
	// Send posts a plain-text message.
	Send(ctx context.Context, roomID, text string) error
	// SendFormatted posts an HTML message with a plain-text fallback.
	SendFormatted(ctx context.Context, roomID, html, plain string) error
	// SendAction posts an emote ("/me") message.
	SendAction(ctx context.Context, roomID, text string) error

	// Join joins a room by id.
	Join(ctx context.Context, roomID string) error
	// JoinPublic resolves a public room by name or alias via the directory and joins it.
	JoinPublic(ctx context.Context, name string) error
	// Leave leaves a room by id.
	Leave(ctx context.Context, roomID string) error
	Kick(ctx context.Context, roomID, userID, reason string) error
	Ban(ctx context.Context, roomID, userID, reason string) error
	// Typing shows (timeout > 0) or clears (timeout == 0) the typing indicator.
	Typing(ctx context.Context, roomID string, timeout time.Duration) error

	// Directory searches the public room directory.
	Directory(ctx context.Context, filter string, limit int) ([]PublicRoom, error)
	// JoinedRooms lists the rooms the bot is in.
	JoinedRooms(ctx context.Context) ([]string, error)

	// Poll long-polls for events after since. An empty since requests the
	// initial snapshot.
	Poll(ctx context.Context, since string) (*Batch, error)
}

// Batch is one poll result.
type Batch struct {
	// NextToken is passed as since to the next Poll.
	NextToken string
	// Rooms lists per-room events in the order they should be dispatched.
	Rooms []RoomEvents
}

// RoomEvents is the ordered event list for one room in one category.
type RoomEvents struct {
	RoomID   string
	Category event.Category
	Events   []event.Raw
}

// Events flattens the batch into dispatchable events, preserving order.
func (b *Batch) Events() []event.Event {
	if b == nil {
		return nil
	}
	n := 0
	for _, r := range b.Rooms {
		n += len(r.Events)
	}
	out := make([]event.Event, 0, n)
	for _, r := range b.Rooms {
		for _, raw := range r.Events {
			out = append(out, event.New(r.RoomID, r.Category, raw))
		}
	}
	return out
}

// PublicRoom is a public room directory entry.
type PublicRoom struct {
	RoomID  string
	Name    string
	Alias   string
	Topic   string
	Members int
}

// Matches reports whether the entry answers to name, by alias, room id or display name.
func (p PublicRoom) Matches(name string) bool {
	return name != "" && (p.Alias == name || p.RoomID == name || p.Name == name)
}
