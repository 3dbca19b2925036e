package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/drx3/drx-backend/internal/orchestrator"
)

// ResponseCache stores serialized chat responses keyed by an exact-match
// request hash. Implemented by a memory cache (dev) and Redis (prod).
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// BuildKey normalizes a chat request and hashes it with SHA-256. The
// hash covers the message, settings and history, so any behavioral
// change misses the cache.
func BuildKey(req orchestrator.ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to normalize request: %w", err)
	}

	sum := sha256.Sum256(body)
	return "chat:" + hex.EncodeToString(sum[:]), nil
}
