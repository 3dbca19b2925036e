package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config selects and configures the cache backend.
type Config struct {
	Backend string // "redis" or "memory"
	TTL     time.Duration
	Prefix  string
}

// New builds a ResponseCache from configuration. redisClient may be nil
// when the backend is "memory".
func New(cfg Config, redisClient *redis.Client) ResponseCache {
	switch cfg.Backend {
	case "redis":
		return NewRedisCache(redisClient, cfg.Prefix)
	default:
		return NewMemoryCache(cfg.TTL)
	}
}
