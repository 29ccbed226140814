// Package transporttest provides a recording transport.Client for tests.
package transporttest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/randalmurphal/botgraph/pkg/botgraph/transport"
)

// Action names recorded in Call.Action.
const (
	ActionSend          = "send"
	ActionSendFormatted = "send_formatted"
	ActionSendAction    = "send_action"
	ActionJoin          = "join"
	ActionJoinPublic    = "join_public"
	ActionLeave         = "leave"
	ActionKick          = "kick"
	ActionBan           = "ban"
	ActionTyping        = "typing"
	ActionDirectory     = "directory"
	ActionJoinedRooms   = "joined_rooms"
)

// Call is one recorded client invocation.
type Call struct {
	Action string
	RoomID string
	Text   string
	HTML   string
	UserID string
	Reason string
}

type pollResult struct {
	batch *transport.Batch
	err   error
}

// Recorder records every outbound call and replays scripted poll results.
// When the script is exhausted Poll blocks until its context is done.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	failures map[string]error
	polls    []pollResult
	since    []string
	drained  chan struct{}
	once     sync.Once

	// Rooms is returned by JoinedRooms.
	Rooms []string
	// Public is the directory searched by Directory and JoinPublic.
	Public []transport.PublicRoom
}

var _ transport.Client = (*Recorder)(nil)

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{
		failures: make(map[string]error),
		drained:  make(chan struct{}),
	}
}

// Fail makes every subsequent call of action return err. A nil err clears it.
func (r *Recorder) Fail(action string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, action)
		return
	}
	r.failures[action] = err
}

// QueueBatch appends a batch to the poll script.
func (r *Recorder) QueueBatch(b *transport.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls = append(r.polls, pollResult{batch: b})
}

// QueuePollError appends a failing poll to the script.
func (r *Recorder) QueuePollError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls = append(r.polls, pollResult{err: err})
}

// Drained is closed the first time Poll finds the script empty.
func (r *Recorder) Drained() <-chan struct{} {
	return r.drained
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallsFor returns recorded calls of one action.
func (r *Recorder) CallsFor(action string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Messages returns the text of every send, send_formatted and send_action call.
func (r *Recorder) Messages() []string {
	var out []string
	for _, c := range r.Calls() {
		switch c.Action {
		case ActionSend, ActionSendFormatted, ActionSendAction:
			out = append(out, c.Text)
		}
	}
	return out
}

// SinceTokens returns the since argument of every Poll call.
func (r *Recorder) SinceTokens() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.since)
}

// Reset forgets recorded calls. Scripted polls and failures are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.failures[c.Action]
}

func (r *Recorder) Send(_ context.Context, roomID, text string) error {
	return r.record(Call{Action: ActionSend, RoomID: roomID, Text: text})
}

func (r *Recorder) SendFormatted(_ context.Context, roomID, html, plain string) error {
	return r.record(Call{Action: ActionSendFormatted, RoomID: roomID, Text: plain, HTML: html})
}

func (r *Recorder) SendAction(_ context.Context, roomID, text string) error {
	return r.record(Call{Action: ActionSendAction, RoomID: roomID, Text: text})
}

func (r *Recorder) Join(_ context.Context, roomID string) error {
	return r.record(Call{Action: ActionJoin, RoomID: roomID})
}

func (r *Recorder) JoinPublic(_ context.Context, name string) error {
	return r.record(Call{Action: ActionJoinPublic, RoomID: name})
}

func (r *Recorder) Leave(_ context.Context, roomID string) error {
	return r.record(Call{Action: ActionLeave, RoomID: roomID})
}

func (r *Recorder) Kick(_ context.Context, roomID, userID, reason string) error {
	return r.record(Call{Action: ActionKick, RoomID: roomID, UserID: userID, Reason: reason})
}

func (r *Recorder) Ban(_ context.Context, roomID, userID, reason string) error {
	return r.record(Call{Action: ActionBan, RoomID: roomID, UserID: userID, Reason: reason})
}

func (r *Recorder) Typing(_ context.Context, roomID string, timeout time.Duration) error {
	return r.record(Call{Action: ActionTyping, RoomID: roomID, Text: timeout.String()})
}

func (r *Recorder) Directory(_ context.Context, filter string, limit int) ([]transport.PublicRoom, error) {
	if err := r.record(Call{Action: ActionDirectory, Text: filter}); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []transport.PublicRoom
	for _, p := range r.Public {
		if filter == "" || p.Matches(filter) {
			out = append(out, p)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *Recorder) JoinedRooms(context.Context) ([]string, error) {
	if err := r.record(Call{Action: ActionJoinedRooms}); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.Rooms), nil
}

// Poll replays the next scripted result.
func (r *Recorder) Poll(ctx context.Context, since string) (*transport.Batch, error) {
	r.mu.Lock()
	r.since = append(r.since, since)
	if len(r.polls) > 0 {
		next := r.polls[0]
		r.polls = r.polls[1:]
		r.mu.Unlock()
		return next.batch, next.err
	}
	r.mu.Unlock()

	r.once.Do(func() { close(r.drained) })
	<-ctx.Done()
	return nil, ctx.Err()
}
