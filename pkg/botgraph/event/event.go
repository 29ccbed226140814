// Package event models a single chat-protocol event as delivered to the
// dispatch forest.
//
// Events are immutable values. Any modification, such as stripping a command
// prefix from the body, produces a new event with its own content map.
package event

import (
	"encoding/json"
	"time"
)

// Matrix event and message types the core understands.
const (
	TypeMessage = "m.room.message"
	TypeMember  = "m.room.member"

	MsgTypeText   = "m.text"
	MsgTypeEmote  = "m.emote"
	MsgTypeNotice = "m.notice"
)

// Category describes how an event reached the bot.
type Category int

const (
	// Joined events come from rooms the bot has joined.
	Joined Category = iota
	// Invited events are stripped state from rooms the bot is invited to.
	Invited
	// Left events come from rooms the bot has left.
	Left
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case Joined:
		return "joined"
	case Invited:
		return "invited"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Raw is the protocol payload of an event.
type Raw struct {
	EventID        string         `json:"event_id,omitempty"`
	Sender         string         `json:"sender"`
	Type           string         `json:"type"`
	Content        map[string]any `json:"content"`
	OriginServerTS *int64         `json:"origin_server_ts,omitempty"`
	Unsigned       map[string]any `json:"unsigned,omitempty"`
}

// Event is one event in one room.
type Event struct {
	RoomID   string
	Category Category
	Raw      Raw
}

// New builds an event for roomID.
func New(roomID string, category Category, raw Raw) Event {
	return Event{RoomID: roomID, Category: category, Raw: raw}
}

// NewText builds a joined-room text message. Mostly useful in tests and demos.
func NewText(roomID, sender, body string) Event {
	return New(roomID, Joined, Raw{
		Sender: sender,
		Type:   TypeMessage,
		Content: map[string]any{
			"msgtype": MsgTypeText,
			"body":    body,
		},
	})
}

// Sender returns the sending user id.
func (e Event) Sender() string { return e.Raw.Sender }

// Type returns the protocol event type.
func (e Event) Type() string { return e.Raw.Type }

// ID returns the protocol event id, which may be empty.
func (e Event) ID() string { return e.Raw.EventID }

// MsgType returns the content msgtype, or "" if absent.
func (e Event) MsgType() string {
	s, _ := e.Raw.Content["msgtype"].(string)
	return s
}

// IsNormalMessage reports whether the event is a plain text room message.
func (e Event) IsNormalMessage() bool {
	return e.Raw.Type == TypeMessage && e.MsgType() == MsgTypeText
}

// Body returns the message body. ok is false for anything that is not a
// normal text message with a string body.
func (e Event) Body() (body string, ok bool) {
	if !e.IsNormalMessage() {
		return "", false
	}
	body, ok = e.Raw.Content["body"].(string)
	return body, ok
}

// Timestamp returns the origin server timestamp if the event carries one.
func (e Event) Timestamp() (time.Time, bool) {
	if e.Raw.OriginServerTS == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*e.Raw.OriginServerTS), true
}

// WithBody returns a copy of e whose content body is replaced.
// The receiver is left untouched.
func (e Event) WithBody(body string) Event {
	out := e
	out.Raw.Content = copyMap(e.Raw.Content)
	out.Raw.Content["body"] = body
	return out
}

// copyMap deep-copies decoded JSON content: nested objects and arrays are
// copied, scalars are shared.
func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// ParseRaw decodes a JSON protocol event.
func ParseRaw(data []byte) (Raw, error) {
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return Raw{}, err
	}
	return raw, nil
}
