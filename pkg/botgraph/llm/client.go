// Package llm provides language model completion for chat commands.
//
// Client is the only abstraction commands depend on. ClaudeCLI shells out to
// the claude binary; MockClient is a scripted implementation for tests and
// demos.
package llm

import (
	"context"
	"sync"
)

// Client completes prompts.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// MockClient returns scripted responses and records every request.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	next      int
	err       error
	calls     []CompletionRequest

	// CompleteFunc, when set, replaces the scripted behaviour.
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

var _ Client = (*MockClient)(nil)

// NewMockClient returns responses in order, repeating the last one once the
// list is exhausted.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses}
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn, err := m.CompleteFunc, m.err
	content := ""
	if len(m.responses) > 0 {
		content = m.responses[min(m.next, len(m.responses)-1)]
		m.next++
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewError("complete", err, false)
	}
	if err != nil {
		return nil, err
	}
	return &CompletionResponse{Content: content, FinishReason: "stop", Model: req.Model}, nil
}

// Calls returns every request received so far.
func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.calls...)
}
