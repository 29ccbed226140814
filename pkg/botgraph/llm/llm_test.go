package llm_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/botgraph/pkg/botgraph/llm"
)

func TestMockClient_Sequence(t *testing.T) {
	m := llm.NewMockClient("one", "two")
	ctx := context.Background()

	for _, want := range []string{"one", "two", "two"} {
		resp, err := m.Complete(ctx, llm.UserPrompt("", "q"))
		require.NoError(t, err)
		assert.Equal(t, want, resp.Content)
	}
	assert.Len(t, m.Calls(), 3)
	assert.Equal(t, "q", m.Calls()[0].Messages[0].Content)
}

func TestMockClient_Errors(t *testing.T) {
	boom := errors.New("boom")
	m := llm.NewMockClient("x").WithError(boom)
	_, err := m.Complete(context.Background(), llm.UserPrompt("", "q"))
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = llm.NewMockClient("x").Complete(ctx, llm.UserPrompt("", "q"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockClient_CompleteFunc(t *testing.T) {
	m := llm.NewMockClient()
	m.CompleteFunc = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "echo: " + req.Messages[0].Content}, nil
	}
	resp, err := m.Complete(context.Background(), llm.UserPrompt("", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", resp.Content)
}

func TestError(t *testing.T) {
	cause := errors.New("overloaded")
	err := llm.NewError("complete", cause, true)

	assert.Equal(t, "llm complete: overloaded", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, llm.IsRetryable(err))
	assert.False(t, llm.IsRetryable(llm.NewError("complete", cause, false)))
	assert.False(t, llm.IsRetryable(cause))
}

func TestClaudeCLI_NonExistentBinary(t *testing.T) {
	c := llm.NewClaudeCLI(llm.WithClaudePath("/nonexistent/claude"))
	_, err := c.Complete(context.Background(), llm.UserPrompt("", "hi"))

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "complete", llmErr.Op)
	assert.False(t, llmErr.Retryable)
}

func TestClaudeCLI_FakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "claude")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"  the answer  \"\n"), 0o755))

	c := llm.NewClaudeCLI(llm.WithClaudePath(script), llm.WithModel("haiku"), llm.WithWorkdir(dir))
	resp, err := c.Complete(context.Background(), llm.UserPrompt("", "question"))
	require.NoError(t, err)
	assert.Equal(t, "the answer", resp.Content)
	assert.Equal(t, "haiku", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestClaudeCLI_FailingBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake")
	}
	script := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'rate limit exceeded' >&2\nexit 1\n"), 0o755))

	_, err := llm.NewClaudeCLI(llm.WithClaudePath(script)).Complete(context.Background(), llm.UserPrompt("", "q"))
	assert.True(t, llm.IsRetryable(err))
}
