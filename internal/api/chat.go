package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/drx3/drx-backend/internal/cache"
	"github.com/drx3/drx-backend/internal/metrics"
	"github.com/drx3/drx-backend/internal/orchestrator"
	"github.com/drx3/drx-backend/pkg/llm"
)

// ChatService is the slice of the orchestrator the HTTP layer needs.
type ChatService interface {
	Chat(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatResponse, error)
	ChatStream(ctx context.Context, req orchestrator.ChatRequest) (<-chan llm.Chunk, llm.Provider, bool, error)
}

// ChatHandler serves the AI chat endpoints.
type ChatHandler struct {
	service  ChatService
	cache    cache.ResponseCache
	cacheTTL time.Duration
}

// NewChatHandler creates a chat handler. responseCache may be nil to
// disable caching.
func NewChatHandler(service ChatService, responseCache cache.ResponseCache, cacheTTL time.Duration) *ChatHandler {
	return &ChatHandler{
		service:  service,
		cache:    responseCache,
		cacheTTL: cacheTTL,
	}
}

// HandleChat handles POST /api/ai/chat.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req orchestrator.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if cached, ok := h.lookupCache(c.Request.Context(), req); ok {
		metrics.CacheHitsTotal.Inc()
		c.JSON(http.StatusOK, cached)
		return
	}

	resp, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		case errors.Is(err, orchestrator.ErrUnknownProvider):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
		default:
			// Total provider failure still carries a structured
			// apology payload for the frontend to render.
			log.Printf("Chat request failed: %v", err)
			c.JSON(http.StatusInternalServerError, resp)
		}
		return
	}

	if !resp.FallbackUsed {
		h.storeCache(c.Request.Context(), req, resp)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) lookupCache(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatResponse, bool) {
	if h.cache == nil {
		return nil, false
	}

	key, err := cache.BuildKey(req)
	if err != nil {
		return nil, false
	}

	body, found, err := h.cache.Get(ctx, key)
	if err != nil {
		log.Printf("Warning: cache lookup failed: %v", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var resp orchestrator.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Printf("Warning: discarding corrupt cache entry: %v", err)
		return nil, false
	}
	return &resp, true
}

func (h *ChatHandler) storeCache(ctx context.Context, req orchestrator.ChatRequest, resp *orchestrator.ChatResponse) {
	if h.cache == nil {
		return
	}

	key, err := cache.BuildKey(req)
	if err != nil {
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return
	}

	if err := h.cache.Set(ctx, key, body, h.cacheTTL); err != nil {
		log.Printf("Warning: cache store failed: %v", err)
	}
}
