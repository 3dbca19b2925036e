package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/drx3/drx-backend/internal/api/middleware"
	"github.com/drx3/drx-backend/internal/orchestrator"
	"github.com/drx3/drx-backend/pkg/llm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// ChatService is the slice of the orchestrator the socket needs.
type ChatService interface {
	ChatStream(ctx context.Context, req orchestrator.ChatRequest) (<-chan llm.Chunk, llm.Provider, bool, error)
}

// ChatHandler handles WebSocket chat connections
type ChatHandler struct {
	service ChatService
	limiter *middleware.WebSocketLimiter
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service ChatService, limiter *middleware.WebSocketLimiter) *ChatHandler {
	return &ChatHandler{service: service, limiter: limiter}
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Message  string            `json:"message"`
	Settings llm.Settings      `json:"settings"`
	History  []llm.ChatMessage `json:"history"`
}

// OutgoingMessage represents a message to the client
type OutgoingMessage struct {
	Type         string `json:"type"` // "chunk", "error", "done"
	Content      string `json:"content,omitempty"`
	Provider     string `json:"provider,omitempty"`
	FallbackUsed bool   `json:"fallbackUsed,omitempty"`
}

// HandleChat handles WebSocket chat connections
func (h *ChatHandler) HandleChat(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("WebSocket connected: %s", c.ClientIP())

	for {
		var msg IncomingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if h.limiter != nil && !h.limiter.Allow() {
			h.sendError(conn, "Too many messages, slow down")
			continue
		}

		if err := h.processMessage(c.Request.Context(), conn, msg); err != nil {
			log.Printf("Error processing message: %v", err)
			h.sendError(conn, err.Error())
		}
	}
}

// processMessage streams one chat turn over the socket
func (h *ChatHandler) processMessage(ctx context.Context, conn *websocket.Conn, msg IncomingMessage) error {
	req := orchestrator.ChatRequest{
		Message:  msg.Message,
		Settings: msg.Settings,
		History:  msg.History,
	}

	chunks, provider, usedFallback, err := h.service.ChatStream(ctx, req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyMessage) {
			return errors.New("message is required")
		}
		return err
	}

	var full strings.Builder
	for chunk := range chunks {
		if chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)

		out := OutgoingMessage{
			Type:         "chunk",
			Content:      chunk.Content,
			Provider:     provider.String(),
			FallbackUsed: usedFallback,
		}
		if err := conn.WriteJSON(out); err != nil {
			return err
		}
	}

	log.Printf("Streamed %d bytes from %s", full.Len(), provider)
	return conn.WriteJSON(OutgoingMessage{Type: "done", Provider: provider.String(), FallbackUsed: usedFallback})
}

func (h *ChatHandler) sendError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(OutgoingMessage{Type: "error", Content: message}); err != nil {
		log.Printf("Failed to send error message: %v", err)
	}
}
