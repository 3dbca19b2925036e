package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/drx3/drx-backend/internal/metrics"
	"github.com/drx3/drx-backend/pkg/llm"
)

// noReplyContent replaces empty provider output so the user always
// receives natural-language content.
const noReplyContent = "عذراً، لم أتمكن من إنتاج رد مناسب."

// exhaustedContent is returned when every configured provider failed.
const exhaustedContent = "عذراً، أواجه مشكلة تقنية مؤقتة في جميع الخدمات. يرجى المحاولة مرة أخرى."

// fallbackSuffix marks the model label when a fallback provider answered.
const fallbackSuffix = " - Fallback"

// Composer builds the outgoing message sequence
type Composer interface {
	Compose(settings llm.Settings, history []llm.ChatMessage, message string) []llm.ChatMessage
}

// Orchestrator selects a provider, composes the prompt, calls the
// adapter with fallback, and wraps the normalized result into the
// response envelope. It holds no per-request state; concurrent requests
// are independent.
type Orchestrator struct {
	adapters     map[llm.Provider]llm.Client
	creds        CredentialStore
	composer     Composer
	recorder     UsageRecorder
	timeout      time.Duration
	usageTimeout time.Duration
}

// New creates an orchestrator. recorder may be nil to disable usage
// logging.
func New(adapters map[llm.Provider]llm.Client, creds CredentialStore, composer Composer, recorder UsageRecorder, providerTimeout, usageTimeout time.Duration) *Orchestrator {
	if providerTimeout == 0 {
		providerTimeout = 30 * time.Second
	}
	if usageTimeout == 0 {
		usageTimeout = 5 * time.Second
	}
	return &Orchestrator{
		adapters:     adapters,
		creds:        creds,
		composer:     composer,
		recorder:     recorder,
		timeout:      providerTimeout,
		usageTimeout: usageTimeout,
	}
}

// Chat runs the full select -> compose -> call -> fallback sequence and
// builds the response envelope.
//
// On total failure (no provider configured, or every provider failed)
// it returns BOTH a degraded ChatResponse and the sentinel error, so
// the HTTP layer can serve a structured payload with status 500. Only
// ErrEmptyMessage and ErrUnknownProvider come back with a nil response.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	start := time.Now()

	selected, err := Select(req.Settings, o.creds)
	if err != nil {
		if errors.Is(err, ErrNoProviderAvailable) {
			metrics.ChatRequestsTotal.WithLabelValues("none", "unavailable").Inc()
			return o.degraded(start, ""), err
		}
		return nil, err
	}

	messages := o.composer.Compose(req.Settings, req.History, message)

	log.Printf("Calling %s with %d messages", selected, len(messages))

	result, actual, usedFallback, err := o.execute(ctx, selected, messages, req.Settings)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(selected.String(), "error").Inc()
		o.recordUsage(UsageRecord{
			Provider:       selected.String(),
			Model:          "error",
			ProcessingTime: elapsed,
			FallbackUsed:   true,
		})
		return o.degraded(start, selected.String()), err
	}

	content := result.Content
	if content == "" {
		content = noReplyContent
	}

	tokens := result.TokensUsed
	if tokens <= 0 {
		// Rough character-based estimate when the provider reports no usage.
		tokens = (len(content) + 3) / 4
	}

	label := actual.Label()
	if usedFallback {
		label += fallbackSuffix
		metrics.FallbacksTotal.Inc()
	}
	metrics.ChatRequestsTotal.WithLabelValues(selected.String(), "success").Inc()

	resp := &ChatResponse{
		Content:        content,
		Model:          label,
		Tokens:         tokens,
		ProcessingTime: elapsed,
		FallbackUsed:   usedFallback,
		Provider:       selected.String(),
	}

	o.recordUsage(UsageRecord{
		Provider:       selected.String(),
		Model:          label,
		Tokens:         tokens,
		ProcessingTime: elapsed,
		FallbackUsed:   usedFallback,
		Success:        true,
	})

	return resp, nil
}

// degraded builds the fixed apology payload served with HTTP 500.
func (o *Orchestrator) degraded(start time.Time, provider string) *ChatResponse {
	return &ChatResponse{
		Content:        exhaustedContent,
		Model:          "error",
		Tokens:         0,
		ProcessingTime: time.Since(start).Milliseconds(),
		FallbackUsed:   true,
		Provider:       provider,
	}
}

// recordUsage dispatches the usage record on a detached goroutine with
// its own short deadline. The main response path never waits on it and
// never sees its errors.
func (o *Orchestrator) recordUsage(rec UsageRecord) {
	if o.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.usageTimeout)
		defer cancel()
		if err := o.recorder.Record(ctx, rec); err != nil {
			log.Printf("Warning: failed to log usage: %v", err)
		}
	}()
}
