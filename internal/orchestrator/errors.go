package orchestrator

import "errors"

var (
	// ErrEmptyMessage means the request carried no usable user message.
	// No provider call is attempted.
	ErrEmptyMessage = errors.New("message is required")

	// ErrUnknownProvider means the request named a provider outside the
	// supported set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNoProviderAvailable means auto-selection found zero configured
	// credentials. Fatal, no retry.
	ErrNoProviderAvailable = errors.New("no AI providers available")

	// ErrAllProvidersExhausted means the primary and every fallback
	// candidate failed. The caller receives a degraded response.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)
