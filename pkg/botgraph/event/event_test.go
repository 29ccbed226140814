package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNormalMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  Raw
		want bool
	}{
		{
			name: "text message",
			raw:  Raw{Type: TypeMessage, Content: map[string]any{"msgtype": MsgTypeText, "body": "hi"}},
			want: true,
		},
		{
			name: "emote",
			raw:  Raw{Type: TypeMessage, Content: map[string]any{"msgtype": MsgTypeEmote, "body": "waves"}},
			want: false,
		},
		{
			name: "membership",
			raw:  Raw{Type: TypeMember, Content: map[string]any{"membership": "join"}},
			want: false,
		},
		{
			name: "no content",
			raw:  Raw{Type: TypeMessage},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New("!r", Joined, tt.raw).IsNormalMessage())
		})
	}
}

func TestBody(t *testing.T) {
	body, ok := NewText("!r", "@a:x", "echo hi").Body()
	require.True(t, ok)
	assert.Equal(t, "echo hi", body)

	_, ok = New("!r", Joined, Raw{Type: TypeMessage, Content: map[string]any{"msgtype": MsgTypeText, "body": 42}}).Body()
	assert.False(t, ok, "non-string body")

	_, ok = New("!r", Joined, Raw{Type: TypeMember}).Body()
	assert.False(t, ok, "not a message")
}

func TestWithBodyDoesNotMutateOriginal(t *testing.T) {
	orig := NewText("!r", "@a:x", "!echo hi")
	stripped := orig.WithBody("echo hi")

	body, _ := orig.Body()
	assert.Equal(t, "!echo hi", body)
	body, _ = stripped.Body()
	assert.Equal(t, "echo hi", body)
	assert.Equal(t, orig.RoomID, stripped.RoomID)
	assert.Equal(t, orig.Sender(), stripped.Sender())
}

func TestWithBodyCopiesNestedContent(t *testing.T) {
	orig := New("!r", Joined, Raw{
		Sender: "@a:x",
		Type:   TypeMessage,
		Content: map[string]any{
			"msgtype": MsgTypeText,
			"body":    "!echo hi",
			"m.relates_to": map[string]any{
				"rel_type":      "m.thread",
				"m.in_reply_to": map[string]any{"event_id": "$parent"},
			},
			"m.mentions": map[string]any{"user_ids": []any{"@b:x"}},
		},
	})
	stripped := orig.WithBody("echo hi")

	stripped.Raw.Content["m.relates_to"].(map[string]any)["rel_type"] = "m.reference"
	stripped.Raw.Content["m.relates_to"].(map[string]any)["m.in_reply_to"].(map[string]any)["event_id"] = "$other"
	stripped.Raw.Content["m.mentions"].(map[string]any)["user_ids"].([]any)[0] = "@c:x"

	relates := orig.Raw.Content["m.relates_to"].(map[string]any)
	assert.Equal(t, "m.thread", relates["rel_type"])
	assert.Equal(t, "$parent", relates["m.in_reply_to"].(map[string]any)["event_id"])
	assert.Equal(t, []any{"@b:x"}, orig.Raw.Content["m.mentions"].(map[string]any)["user_ids"])
}

func TestWithBodyOnEmptyContent(t *testing.T) {
	ev := New("!r", Joined, Raw{Type: TypeMessage}).WithBody("x")
	assert.Equal(t, "x", ev.Raw.Content["body"])
}

func TestTimestamp(t *testing.T) {
	_, ok := NewText("!r", "@a", "x").Timestamp()
	assert.False(t, ok)

	ts := int64(1_700_000_000_000)
	ev := New("!r", Joined, Raw{Type: TypeMessage, OriginServerTS: &ts})
	got, ok := ev.Timestamp()
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(ts), got)
}

func TestParseRaw(t *testing.T) {
	raw, err := ParseRaw([]byte(`{
		"event_id": "$abc",
		"sender": "@alice:example.org",
		"type": "m.room.message",
		"origin_server_ts": 1700000000000,
		"content": {"msgtype": "m.text", "body": "hello"}
	}`))
	require.NoError(t, err)

	ev := New("!room", Joined, raw)
	assert.Equal(t, "$abc", ev.ID())
	assert.Equal(t, "@alice:example.org", ev.Sender())
	body, ok := ev.Body()
	require.True(t, ok)
	assert.Equal(t, "hello", body)

	_, err = ParseRaw([]byte("{"))
	assert.Error(t, err)
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "joined", Joined.String())
	assert.Equal(t, "invited", Invited.String())
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "unknown", Category(9).String())
}
