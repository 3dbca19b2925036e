package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/drx3/drx-backend/pkg/llm"
)

// ChatStream is the streaming variant of Chat. It returns the chunk
// channel of the first provider that accepts the request; the channel
// closing is the completion sentinel. Chunk granularity is whatever the
// provider emits.
//
// Fallback applies to stream initiation only: once a provider starts
// streaming it owns the request, and a mid-stream failure simply ends
// the stream.
func (o *Orchestrator) ChatStream(ctx context.Context, req ChatRequest) (<-chan llm.Chunk, llm.Provider, bool, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, llm.Provider(-1), false, ErrEmptyMessage
	}

	selected, err := Select(req.Settings, o.creds)
	if err != nil {
		return nil, llm.Provider(-1), false, err
	}

	messages := o.composer.Compose(req.Settings, req.History, message)

	chunks, err := o.openStream(ctx, selected, messages, req.Settings)
	if err == nil {
		return chunks, selected, false, nil
	}
	log.Printf("Primary provider (%s) failed to start stream: %v", selected, err)

	for _, candidate := range llm.FallbackOrder {
		if candidate == selected || !o.creds.HasCredential(candidate) {
			continue
		}

		chunks, err = o.openStream(ctx, candidate, messages, req.Settings)
		if err == nil {
			return chunks, candidate, true, nil
		}
		log.Printf("Fallback provider (%s) failed to start stream: %v", candidate, err)
	}

	return nil, selected, true, ErrAllProvidersExhausted
}

func (o *Orchestrator) openStream(ctx context.Context, p llm.Provider, messages []llm.ChatMessage, settings llm.Settings) (<-chan llm.Chunk, error) {
	adapter, ok := o.adapters[p]
	if !ok {
		return nil, errors.New("no adapter configured for " + p.String())
	}
	return adapter.StreamComplete(ctx, messages, settings)
}
