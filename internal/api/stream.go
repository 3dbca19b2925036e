package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drx3/drx-backend/internal/orchestrator"
)

type streamChunk struct {
	Content      string `json:"content"`
	Provider     string `json:"provider"`
	FallbackUsed bool   `json:"fallbackUsed"`
}

// HandleChatStream handles POST /api/ai/chat/stream with a
// server-sent-events response. Each chunk is a data: line with a JSON
// body; the stream ends with data: [DONE].
func (h *ChatHandler) HandleChatStream(c *gin.Context) {
	var req orchestrator.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	chunks, provider, usedFallback, err := h.service.ChatStream(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		case errors.Is(err, orchestrator.ErrUnknownProvider):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
		default:
			log.Printf("Stream request failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "All providers are currently unavailable"})
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	for chunk := range chunks {
		body, err := json.Marshal(streamChunk{
			Content:      chunk.Content,
			Provider:     provider.String(),
			FallbackUsed: usedFallback,
		})
		if err != nil {
			continue
		}

		fmt.Fprintf(c.Writer, "data: %s\n\n", body)
		flusher.Flush()
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	flusher.Flush()
}
