package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/drx3/drx-backend/internal/orchestrator"
	"github.com/drx3/drx-backend/pkg/llm"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports configured providers and backing-service
// reachability for the dashboard.
type HealthHandler struct {
	creds orchestrator.CredentialStore
	db    Pinger
	redis Pinger
}

// NewHealthHandler creates a health handler. db and redis may be nil
// when the service is not configured.
func NewHealthHandler(creds orchestrator.CredentialStore, db, redis Pinger) *HealthHandler {
	return &HealthHandler{creds: creds, db: db, redis: redis}
}

// HandleHealth handles GET /api/health.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	providers := gin.H{}
	active := 0
	for _, p := range llm.FallbackOrder {
		configured := h.creds.HasCredential(p)
		providers[p.String()] = configured
		if configured {
			active++
		}
	}

	services := gin.H{"providers": providers}
	total := active

	if h.db != nil {
		ok := h.db.Ping(ctx) == nil
		services["database"] = ok
		if ok {
			total++
		}
	}
	if h.redis != nil {
		ok := h.redis.Ping(ctx) == nil
		services["redis"] = ok
		if ok {
			total++
		}
	}

	status := "ok"
	if active == 0 {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"services":        services,
		"activeProviders": active,
		"totalServices":   total,
	})
}
