package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/config"
	"github.com/randalmurphal/botgraph/pkg/botgraph/event"
	"github.com/randalmurphal/botgraph/pkg/botgraph/llm"
	"github.com/randalmurphal/botgraph/pkg/botgraph/state"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport/transporttest"
)

func testSettings() *config.Settings {
	s := &config.Settings{
		Bot: config.Bot{
			Prefix: "!",
			Admins: []string{"@admin:example.org"},
			Ignore: []string{"@spam:example.org"},
		},
		Nodes: map[string]map[string]any{
			"roll": {"max_sides": 20},
		},
	}
	s.Defaults()
	return s
}

func newTree(t *testing.T, chat llm.Client) (*botgraph.Engine, *transporttest.Recorder) {
	t.Helper()
	rec := transporttest.New()
	e := botgraph.NewEngine(rec, botgraph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, buildTree(e, testSettings(), "@bot:example.org", chat))
	return e, rec
}

func TestBuildTreeReachesEveryNode(t *testing.T) {
	e, _ := newTree(t, llm.NewMockClient("hi"))

	assert.Equal(t, []string{"self_filter"}, e.Registry().RootNames())
	assert.Empty(t, e.Registry().Unreachable())
	assert.Contains(t, e.Registry().AllNames(), "chat")
	assert.Equal(t, []string{"join", "leave", "node_config"}, e.Registry().Children("admin"))
}

func TestBuildTreeWithoutChat(t *testing.T) {
	e, _ := newTree(t, nil)
	_, ok := e.Registry().Lookup("chat")
	assert.False(t, ok)
}

func TestBuildTreeRoutesMessages(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		body   string
		want   []string
	}{
		{name: "command", sender: "@alice:example.org", body: "!echo hello", want: []string{"hello"}},
		{name: "no prefix", sender: "@alice:example.org", body: "echo hello"},
		{name: "own message", sender: "@bot:example.org", body: "!echo hello"},
		{name: "ignored user", sender: "@spam:example.org", body: "!echo hello"},
		{name: "roll limit from config", sender: "@alice:example.org", body: "!roll 50", want: []string{"Could not roll: at most 20 sides"}},
		{name: "admin only", sender: "@alice:example.org", body: "!join #x:example.org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newTree(t, nil)
			report := e.Dispatch(context.Background(), event.NewText("!r:example.org", tt.sender, tt.body))
			assert.Empty(t, report.Failures)
			assert.Equal(t, tt.want, rec.Messages())
		})
	}
}

func TestBuildTreeAdminJoin(t *testing.T) {
	e, rec := newTree(t, nil)
	e.Dispatch(context.Background(), event.NewText("!r:example.org", "@admin:example.org", "!join #x:example.org"))
	calls := rec.CallsFor("join_public")
	require.Len(t, calls, 1)
}

func TestNewChatClient(t *testing.T) {
	assert.Nil(t, newChatClient(config.New(nil)))
	assert.NotNil(t, newChatClient(config.New(map[string]any{"enabled": true, "model": "sonnet"})))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(config.Log{Level: "warn", Format: "json"}, &buf).Info("hidden")
	assert.Empty(t, buf.String())

	newLogger(config.Log{Level: "debug", Format: "json"}, &buf).Debug("shown", slog.Int("n", 1))
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger(config.Log{}, &buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestSetupTelemetryDisabled(t *testing.T) {
	shutdown, err := setupTelemetry(context.Background(), config.Telemetry{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTelemetryLocalProviders(t *testing.T) {
	shutdown, err := setupTelemetry(context.Background(), config.Telemetry{Metrics: true, Tracing: true})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

type failingList struct{ state.Store }

func (failingList) List() ([]state.Info, error) { return nil, errors.New("disk gone") }

func TestLogStoredState(t *testing.T) {
	store := state.NewMemoryStore()
	require.NoError(t, store.Save("user_filter", "false|@spam:example.org"))
	require.NoError(t, store.Save("channel_filter", "true|"))

	var buf bytes.Buffer
	logStoredState(store, newLogger(config.Log{Format: "json"}, &buf))
	out := buf.String()
	assert.Contains(t, out, `"node":"channel_filter"`)
	assert.Contains(t, out, `"node":"user_filter","bytes":23`)

	buf.Reset()
	logStoredState(failingList{store}, newLogger(config.Log{Format: "json"}, &buf))
	assert.Contains(t, buf.String(), "disk gone")
}
