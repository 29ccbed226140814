package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestEnrichLogger(t *testing.T) {
	var buf bytes.Buffer
	EnrichLogger(newTestLogger(&buf), "help", "pass-9").Info("hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "help", lines[0]["node"])
	assert.Equal(t, "pass-9", lines[0]["pass_id"])
}

func TestEnrichLoggerWithoutPass(t *testing.T) {
	var buf bytes.Buffer
	EnrichLogger(newTestLogger(&buf), "chat", "").Info("background")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, hasPass := lines[0]["pass_id"]
	assert.False(t, hasPass)
}

func TestLogHelpersNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Nil(t, EnrichLogger(nil, "a", "b"))
		LogEngineStart(nil, 1, "")
		LogEngineStop(nil, 0, errors.New("x"))
		LogBatchComplete(nil, 1, 0, 1)
		LogPollError(nil, errors.New("x"), time.Second)
		LogNodeComplete(nil, "a", 1)
		LogNodeError(nil, "a", errors.New("x"))
		LogLookupError(nil, "a", "b")
		LogQueryResolved(nil, "q", "a", 1)
		LogQuerySuperseded(nil, "a", "q1", "q2")
		LogOutbound(nil, "send", "!r", nil)
		LogStateError(nil, "a", "save", errors.New("x"))
	})
}

func TestLogNodeErrorFields(t *testing.T) {
	var buf bytes.Buffer
	LogNodeError(newTestLogger(&buf), "roll", errors.New("bad dice"))
	LogOutbound(newTestLogger(&buf), "join", "!x", errors.New("forbidden"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "roll", lines[0]["node"])
	assert.Equal(t, "bad dice", lines[0]["error"])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "join", lines[1]["action"])
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 1.0)
}
