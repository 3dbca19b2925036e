package api

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/drx3/drx-backend/internal/db"
)

// StatsStore is the slice of the database the dashboard needs.
type StatsStore interface {
	GetUsageStats(ctx context.Context, days int) ([]db.ProviderDayStat, error)
	GetDashboardStats(ctx context.Context) (*db.DashboardStats, error)
}

// StatsHandler serves the usage dashboard endpoints.
type StatsHandler struct {
	store StatsStore
}

func NewStatsHandler(store StatsStore) *StatsHandler {
	return &StatsHandler{store: store}
}

// HandleDashboardStats handles GET /api/dashboard/stats.
func (h *StatsHandler) HandleDashboardStats(c *gin.Context) {
	stats, err := h.store.GetDashboardStats(c.Request.Context())
	if err != nil {
		log.Printf("Failed to load dashboard stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// HandleUsageStats handles GET /api/dashboard/usage?days=N.
func (h *StatsHandler) HandleUsageStats(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
			return
		}
		days = parsed
	}

	stats, err := h.store.GetUsageStats(c.Request.Context(), days)
	if err != nil {
		log.Printf("Failed to load usage stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "usage": stats})
}
