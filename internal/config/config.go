package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/drx3/drx-backend/pkg/llm"
)

// Config holds all process-wide configuration, read once at startup and
// injected into every component. Provider credentials are read-only
// after Load returns.
type Config struct {
	Port        string
	DatabaseURL string

	GroqAPIKey     string
	TogetherAPIKey string
	GeminiAPIKey   string

	// ProviderTimeout bounds each upstream LLM call; a timed-out call is
	// treated as an adapter failure eligible for fallback.
	ProviderTimeout time.Duration

	// UsageLogTimeout bounds the best-effort usage-log write.
	UsageLogTimeout time.Duration

	CacheBackend string // "memory" or "redis"
	CacheTTL     time.Duration
	RedisURL     string
	CachePrefix  string
}

// Load reads configuration from the environment, loading .env first if
// present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
		TogetherAPIKey: getEnv("TOGETHER_API_KEY", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),

		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
		UsageLogTimeout: getEnvDuration("USAGE_LOG_TIMEOUT", 5*time.Second),

		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		CacheTTL:     getEnvDuration("CACHE_TTL", time.Hour),
		RedisURL:     getEnv("REDIS_URL", ""),
		CachePrefix:  getEnv("CACHE_PREFIX", "drx"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CacheBackend == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required when CACHE_BACKEND=redis")
	}

	return cfg, nil
}

// HasCredential reports whether the API key for a provider is configured.
func (c *Config) HasCredential(p llm.Provider) bool {
	switch p {
	case llm.ProviderGroq:
		return c.GroqAPIKey != ""
	case llm.ProviderTogether:
		return c.TogetherAPIKey != ""
	case llm.ProviderGemini:
		return c.GeminiAPIKey != ""
	default:
		return false
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s: %q, using default", key, value)
		return defaultValue
	}
	return d
}
