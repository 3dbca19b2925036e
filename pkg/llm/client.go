package llm

import (
	"context"
)

// Client interface for LLM API interactions
type Client interface {
	// Complete sends a non-streaming chat completion request
	Complete(ctx context.Context, messages []ChatMessage, settings Settings) (*Result, error)

	// StreamComplete sends a streaming chat completion request.
	// The returned channel is closed when the upstream finishes.
	StreamComplete(ctx context.Context, messages []ChatMessage, settings Settings) (<-chan Chunk, error)
}
