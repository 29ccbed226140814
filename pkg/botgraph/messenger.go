package botgraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/observability"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport"
)

// Messenger performs outbound actions on behalf of one node.
//
// It is the only handle background workers receive: it reaches the
// transport but never the registry. Every action returns an error instead
// of panicking, and is logged at debug level and counted.
type Messenger struct {
	client  transport.Client
	name    string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

func newMessenger(client transport.Client, name string, logger *slog.Logger, metrics observability.MetricsRecorder) *Messenger {
	return &Messenger{client: client, name: name, logger: logger, metrics: metrics}
}

// Name returns the name of the node this messenger acts for.
func (m *Messenger) Name() string { return m.name }

// Logger returns a logger enriched with the node name.
func (m *Messenger) Logger() *slog.Logger { return m.logger }

func (m *Messenger) call(ctx context.Context, action, roomID string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: transport panicked: %v", action, r)
		}
		m.metrics.RecordOutbound(ctx, action, err)
		observability.LogOutbound(m.logger, action, roomID, err)
	}()
	return fn()
}

// Send posts plain text to a room.
func (m *Messenger) Send(ctx context.Context, roomID, text string) error {
	return m.call(ctx, "send", roomID, func() error { return m.client.Send(ctx, roomID, text) })
}

// SendFormatted posts HTML with a plain-text fallback.
func (m *Messenger) SendFormatted(ctx context.Context, roomID, html, plain string) error {
	return m.call(ctx, "send_formatted", roomID, func() error {
		return m.client.SendFormatted(ctx, roomID, html, plain)
	})
}

// SendAction posts an emote.
func (m *Messenger) SendAction(ctx context.Context, roomID, text string) error {
	return m.call(ctx, "send_action", roomID, func() error { return m.client.SendAction(ctx, roomID, text) })
}

// Reply sends text to the room ev came from.
func (m *Messenger) Reply(ctx context.Context, ev event.Event, text string) error {
	return m.Send(ctx, ev.RoomID, text)
}

// ReplyFormatted sends HTML to the room ev came from.
func (m *Messenger) ReplyFormatted(ctx context.Context, ev event.Event, html, plain string) error {
	return m.SendFormatted(ctx, ev.RoomID, html, plain)
}

// Join joins a room by id or alias.
func (m *Messenger) Join(ctx context.Context, roomID string) error {
	return m.call(ctx, "join", roomID, func() error { return m.client.Join(ctx, roomID) })
}

// JoinPublic joins a public room found by name.
func (m *Messenger) JoinPublic(ctx context.Context, name string) error {
	return m.call(ctx, "join_public", name, func() error { return m.client.JoinPublic(ctx, name) })
}

// Leave leaves a room.
func (m *Messenger) Leave(ctx context.Context, roomID string) error {
	return m.call(ctx, "leave", roomID, func() error { return m.client.Leave(ctx, roomID) })
}

// Kick removes a user from a room.
func (m *Messenger) Kick(ctx context.Context, roomID, userID, reason string) error {
	return m.call(ctx, "kick", roomID, func() error { return m.client.Kick(ctx, roomID, userID, reason) })
}

// Ban bans a user from a room.
func (m *Messenger) Ban(ctx context.Context, roomID, userID, reason string) error {
	return m.call(ctx, "ban", roomID, func() error { return m.client.Ban(ctx, roomID, userID, reason) })
}

// Typing toggles the typing indicator; a zero timeout clears it.
func (m *Messenger) Typing(ctx context.Context, roomID string, timeout time.Duration) error {
	return m.call(ctx, "typing", roomID, func() error { return m.client.Typing(ctx, roomID, timeout) })
}

// Directory searches the public room directory.
func (m *Messenger) Directory(ctx context.Context, filter string, limit int) ([]transport.PublicRoom, error) {
	var rooms []transport.PublicRoom
	err := m.call(ctx, "directory", "", func() error {
		var err error
		rooms, err = m.client.Directory(ctx, filter, limit)
		return err
	})
	return rooms, err
}

// JoinedRooms lists the rooms the bot is in.
func (m *Messenger) JoinedRooms(ctx context.Context) ([]string, error) {
	var rooms []string
	err := m.call(ctx, "joined_rooms", "", func() error {
		var err error
		rooms, err = m.client.JoinedRooms(ctx)
		return err
	})
	return rooms, err
}
