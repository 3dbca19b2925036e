package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/drx3/drx-backend/internal/webhook"
)

// WebhookHandler receives webhook deliveries and serves the retained
// event log.
type WebhookHandler struct {
	logger *webhook.Logger
}

func NewWebhookHandler(logger *webhook.Logger) *WebhookHandler {
	return &WebhookHandler{logger: logger}
}

// HandleReceive handles POST /api/webhooks/:source.
func (h *WebhookHandler) HandleReceive(c *gin.Context) {
	source := c.Param("source")

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	eventType := c.GetHeader("X-Event-Type")
	if eventType == "" {
		eventType = "unknown"
	}

	event := h.logger.Log(webhook.Event{
		Type:   eventType,
		Source: source,
		Data:   payload,
		Metadata: map[string]interface{}{
			"remoteAddr": c.ClientIP(),
			"userAgent":  c.Request.UserAgent(),
		},
	})

	log.Printf("Webhook received from %s (%s)", source, eventType)
	c.JSON(http.StatusOK, gin.H{"received": true, "id": event.ID})
}

// HandleListEvents handles GET /api/webhooks/events?limit=N.
func (h *WebhookHandler) HandleListEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	events := h.logger.Events(limit)
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// HandleGetEvent handles GET /api/webhooks/events/:id.
func (h *WebhookHandler) HandleGetEvent(c *gin.Context) {
	event, found := h.logger.EventByID(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	c.JSON(http.StatusOK, event)
}

// HandleDeleteEvent handles DELETE /api/webhooks/events/:id.
func (h *WebhookHandler) HandleDeleteEvent(c *gin.Context) {
	if !h.logger.DeleteEvent(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// HandleStatistics handles GET /api/webhooks/stats.
func (h *WebhookHandler) HandleStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.logger.Statistics())
}
