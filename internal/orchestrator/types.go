package orchestrator

import (
	"context"

	"github.com/drx3/drx-backend/pkg/llm"
)

// ChatRequest is the canonical request accepted by both the blocking
// and streaming entry points.
type ChatRequest struct {
	Message  string            `json:"message"`
	Settings llm.Settings      `json:"settings"`
	History  []llm.ChatMessage `json:"history"`
}

// ChatResponse is the envelope returned to the HTTP layer.
// Provider is the originally selected provider id; when a fallback
// answered, Model carries the fallback suffix instead.
type ChatResponse struct {
	Content        string `json:"content"`
	Model          string `json:"model"`
	Tokens         int    `json:"tokens"`
	ProcessingTime int64  `json:"processingTime"` // milliseconds
	FallbackUsed   bool   `json:"fallbackUsed"`
	Provider       string `json:"provider,omitempty"`
}

// CredentialStore reports which provider credentials are configured.
// Implemented by config.Config; tests supply fakes.
type CredentialStore interface {
	HasCredential(p llm.Provider) bool
}

// UsageRecord is the analytics event emitted after every completed
// request, successful or not.
type UsageRecord struct {
	Provider       string
	Model          string
	Tokens         int
	ProcessingTime int64
	FallbackUsed   bool
	Success        bool
}

// UsageRecorder receives usage records. Failures are logged and
// swallowed by the orchestrator, never surfaced to the caller.
type UsageRecorder interface {
	Record(ctx context.Context, rec UsageRecord) error
}
