package orchestrator

import (
	"fmt"

	"github.com/drx3/drx-backend/pkg/llm"
)

// Select picks the provider to try first. An explicit provider wins
// unconditionally, even with no credential configured; the missing key
// then surfaces as a call failure, not a selection failure.
//
// For "auto", the tie-break rules run in order, first match wins:
// thinking prefers Gemini, hot sampling prefers Together, otherwise
// Groq for latency, else whatever is available. The rules are a
// heuristic policy carried over for behavioral parity, not a law.
func Select(settings llm.Settings, creds CredentialStore) (llm.Provider, error) {
	if settings.Provider != "" && settings.Provider != llm.AutoProvider {
		p, ok := llm.ParseProvider(settings.Provider)
		if !ok {
			return llm.Provider(-1), fmt.Errorf("%w: %q", ErrUnknownProvider, settings.Provider)
		}
		return p, nil
	}

	var available []llm.Provider
	for _, p := range llm.FallbackOrder {
		if creds.HasCredential(p) {
			available = append(available, p)
		}
	}

	if len(available) == 0 {
		return llm.Provider(-1), ErrNoProviderAvailable
	}

	if settings.EnableThinking && contains(available, llm.ProviderGemini) {
		return llm.ProviderGemini, nil
	}
	if settings.Temperature > 1.5 && contains(available, llm.ProviderTogether) {
		return llm.ProviderTogether, nil
	}
	if contains(available, llm.ProviderGroq) {
		return llm.ProviderGroq, nil
	}

	return available[0], nil
}

func contains(providers []llm.Provider, p llm.Provider) bool {
	for _, candidate := range providers {
		if candidate == p {
			return true
		}
	}
	return false
}
