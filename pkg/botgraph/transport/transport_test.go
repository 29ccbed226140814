package transport

import (
	"testing"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchEventsPreservesOrder(t *testing.T) {
	b := &Batch{
		NextToken: "s2",
		Rooms: []RoomEvents{
			{RoomID: "!b", Category: event.Joined, Events: []event.Raw{{EventID: "$1"}, {EventID: "$2"}}},
			{RoomID: "!a", Category: event.Invited, Events: []event.Raw{{EventID: "$3"}}},
		},
	}

	evs := b.Events()
	require.Len(t, evs, 3)
	assert.Equal(t, "$1", evs[0].ID())
	assert.Equal(t, "!b", evs[1].RoomID)
	assert.Equal(t, "$3", evs[2].ID())
	assert.Equal(t, event.Invited, evs[2].Category)
}

func TestBatchEventsNil(t *testing.T) {
	var b *Batch
	assert.Empty(t, b.Events())
}

func TestPublicRoomMatches(t *testing.T) {
	r := PublicRoom{RoomID: "!abc:x", Alias: "#go:x", Name: "Go"}
	assert.True(t, r.Matches("#go:x"))
	assert.True(t, r.Matches("!abc:x"))
	assert.True(t, r.Matches("Go"))
	assert.False(t, r.Matches("#rust:x"))
	assert.False(t, PublicRoom{}.Matches(""))
}
