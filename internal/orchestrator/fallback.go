package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/drx3/drx-backend/internal/metrics"
	"github.com/drx3/drx-backend/pkg/llm"
)

// execute attempts the primary provider, then the remaining configured
// providers in the fixed priority order. Attempts are strictly
// sequential: the active call completes (success or failure) before the
// next begins, so a request is never billed on two providers at once.
func (o *Orchestrator) execute(ctx context.Context, primary llm.Provider, messages []llm.ChatMessage, settings llm.Settings) (*llm.Result, llm.Provider, bool, error) {
	result, err := o.callProvider(ctx, primary, messages, settings)
	if err == nil {
		return result, primary, false, nil
	}
	log.Printf("Primary provider (%s) failed: %v", primary, err)

	for _, candidate := range llm.FallbackOrder {
		if candidate == primary || !o.creds.HasCredential(candidate) {
			continue
		}

		result, err = o.callProvider(ctx, candidate, messages, settings)
		if err == nil {
			return result, candidate, true, nil
		}
		log.Printf("Fallback provider (%s) also failed: %v", candidate, err)
	}

	return nil, primary, true, ErrAllProvidersExhausted
}

// callProvider runs one adapter call under the per-call timeout. A
// timeout counts as an adapter failure eligible for fallback.
func (o *Orchestrator) callProvider(ctx context.Context, p llm.Provider, messages []llm.ChatMessage, settings llm.Settings) (*llm.Result, error) {
	adapter, ok := o.adapters[p]
	if !ok {
		return nil, &llm.UpstreamError{Provider: p, StatusCode: 0, Body: "no adapter configured"}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	result, err := adapter.Complete(callCtx, messages, settings)
	metrics.ProviderLatencySeconds.WithLabelValues(p.String()).Observe(time.Since(start).Seconds())

	return result, err
}
