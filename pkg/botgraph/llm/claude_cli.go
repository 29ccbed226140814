package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ClaudeCLI implements Client using the claude binary.
type ClaudeCLI struct {
	path    string
	model   string
	workdir string
	timeout time.Duration
}

var _ Client = (*ClaudeCLI)(nil)

// ClaudeOption configures ClaudeCLI.
type ClaudeOption func(*ClaudeCLI)

// NewClaudeCLI creates a client. "claude" is looked up in PATH unless
// overridden with WithClaudePath.
func NewClaudeCLI(opts ...ClaudeOption) *ClaudeCLI {
	c := &ClaudeCLI{
		path:    "claude",
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithClaudePath sets the path to the claude binary.
func WithClaudePath(path string) ClaudeOption {
	return func(c *ClaudeCLI) { c.path = path }
}

// WithModel sets the default model.
func WithModel(model string) ClaudeOption {
	return func(c *ClaudeCLI) { c.model = model }
}

// WithWorkdir sets the working directory for claude commands.
func WithWorkdir(dir string) ClaudeOption {
	return func(c *ClaudeCLI) { c.workdir = dir }
}

// WithTimeout bounds each call. Zero disables the bound.
func WithTimeout(d time.Duration) ClaudeOption {
	return func(c *ClaudeCLI) { c.timeout = d }
}

// Complete implements Client.
func (c *ClaudeCLI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, c.buildArgs(req)...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, NewError("complete", ctx.Err(), ctx.Err() == context.DeadlineExceeded)
		}
		errMsg := stderr.String()
		return nil, NewError("complete", fmt.Errorf("%w: %s", err, errMsg), isRetryableError(errMsg))
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	return &CompletionResponse{
		Content:      strings.TrimSpace(stdout.String()),
		Model:        model,
		FinishReason: "stop",
		Duration:     time.Since(start),
	}, nil
}

func (c *ClaudeCLI) buildArgs(req CompletionRequest) []string {
	args := []string{"--print"}

	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	if req.MaxTokens > 0 {
		args = append(args, "--max-tokens", strconv.Itoa(req.MaxTokens))
	}

	// The CLI takes a single prompt; earlier assistant turns are inlined.
	var prompt strings.Builder
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			prompt.WriteString(msg.Content)
			prompt.WriteString("\n")
		case RoleAssistant:
			if prompt.Len() > 0 {
				prompt.WriteString("\nAssistant: ")
				prompt.WriteString(msg.Content)
				prompt.WriteString("\n\nUser: ")
			}
		}
	}
	if p := strings.TrimSpace(prompt.String()); p != "" {
		args = append(args, "-p", p)
	}
	return args
}

func isRetryableError(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	for _, marker := range []string{"rate limit", "timeout", "overloaded", "503", "529"} {
		if strings.Contains(errLower, marker) {
			return true
		}
	}
	return false
}
