package matrix

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport"
)

type syncResponse struct {
	NextBatch string `json:"next_batch"`
	Rooms     struct {
		Join map[string]struct {
			Timeline struct {
				Events []event.Raw `json:"events"`
			} `json:"timeline"`
		} `json:"join"`
		Invite map[string]struct {
			InviteState struct {
				Events []event.Raw `json:"events"`
			} `json:"invite_state"`
		} `json:"invite"`
		Leave map[string]struct {
			Timeline struct {
				Events []event.Raw `json:"events"`
			} `json:"timeline"`
		} `json:"leave"`
	} `json:"rooms"`
}

// Poll implements transport.Client using /sync.
//
// Rooms are ordered joined, invited, left, and by room id within each
// category; events keep their timeline order.
func (c *Client) Poll(ctx context.Context, since string) (*transport.Batch, error) {
	q := url.Values{}
	if since != "" {
		q.Set("since", since)
		q.Set("timeout", strconv.FormatInt(c.pollTimeout.Milliseconds(), 10))
	}

	var resp syncResponse
	if err := c.do(ctx, http.MethodGet, "/sync", q, nil, &resp, true); err != nil {
		return nil, err
	}

	batch := &transport.Batch{NextToken: resp.NextBatch}
	for _, id := range sortedKeys(resp.Rooms.Join) {
		batch.Rooms = append(batch.Rooms, transport.RoomEvents{
			RoomID:   id,
			Category: event.Joined,
			Events:   resp.Rooms.Join[id].Timeline.Events,
		})
	}
	for _, id := range sortedKeys(resp.Rooms.Invite) {
		batch.Rooms = append(batch.Rooms, transport.RoomEvents{
			RoomID:   id,
			Category: event.Invited,
			Events:   resp.Rooms.Invite[id].InviteState.Events,
		})
	}
	for _, id := range sortedKeys(resp.Rooms.Leave) {
		batch.Rooms = append(batch.Rooms, transport.RoomEvents{
			RoomID:   id,
			Category: event.Left,
			Events:   resp.Rooms.Leave[id].Timeline.Events,
		})
	}
	return batch, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
