package llm

import "fmt"

// UpstreamError is returned by adapters when a provider answers with a
// non-2xx status. It carries enough detail for the fallback coordinator
// to log and move on.
type UpstreamError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.StatusCode, e.Body)
}
