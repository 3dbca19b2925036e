package llm

import (
	"context"
	"sync"
)

// MockClient implements the Client interface for testing
type MockClient struct {
	mu sync.Mutex

	// CompleteFunc allows customizing the non-streaming behavior
	CompleteFunc func(context.Context, []ChatMessage, Settings) (*Result, error)

	// StreamFunc allows customizing the streaming behavior
	StreamFunc func(context.Context, []ChatMessage, Settings) (<-chan Chunk, error)

	// Tracking for assertions
	CompleteCalls [][]ChatMessage
	StreamCalls   [][]ChatMessage
}

// NewMockClient creates a new mock client with default behavior
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete implements Client.Complete
func (m *MockClient) Complete(ctx context.Context, messages []ChatMessage, settings Settings) (*Result, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, messages)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages, settings)
	}

	return &Result{
		Content:    "This is a mock response.",
		TokensUsed: 15,
	}, nil
}

// StreamComplete implements Client.StreamComplete
func (m *MockClient) StreamComplete(ctx context.Context, messages []ChatMessage, settings Settings) (<-chan Chunk, error) {
	m.mu.Lock()
	m.StreamCalls = append(m.StreamCalls, messages)
	m.mu.Unlock()

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, messages, settings)
	}

	ch := make(chan Chunk, 2)
	ch <- Chunk{Content: "This is "}
	ch <- Chunk{Content: "a mock response."}
	close(ch)
	return ch, nil
}

// CompleteCallCount returns the number of non-streaming calls made
func (m *MockClient) CompleteCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CompleteCalls)
}

// Reset clears the call history
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls = nil
	m.StreamCalls = nil
}
