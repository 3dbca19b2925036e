package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/drx3/drx-backend/internal/api"
	"github.com/drx3/drx-backend/internal/api/middleware"
	"github.com/drx3/drx-backend/internal/cache"
	"github.com/drx3/drx-backend/internal/config"
	"github.com/drx3/drx-backend/internal/db"
	"github.com/drx3/drx-backend/internal/metrics"
	"github.com/drx3/drx-backend/internal/orchestrator"
	"github.com/drx3/drx-backend/internal/prompt"
	"github.com/drx3/drx-backend/internal/usage"
	"github.com/drx3/drx-backend/internal/webhook"
	"github.com/drx3/drx-backend/internal/ws"
	"github.com/drx3/drx-backend/pkg/gemini"
	"github.com/drx3/drx-backend/pkg/groq"
	"github.com/drx3/drx-backend/pkg/llm"
	"github.com/drx3/drx-backend/pkg/together"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	database, err := db.NewFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("✅ Database connected")

	// Initialize Redis (optional - only when the cache backend needs it)
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		log.Println("✅ Redis cache enabled")
	}

	// Initialize provider adapters
	adapters := map[llm.Provider]llm.Client{
		llm.ProviderGroq: groq.NewHTTPClient(groq.Config{
			APIKey:  cfg.GroqAPIKey,
			Timeout: cfg.ProviderTimeout,
		}),
		llm.ProviderTogether: together.NewHTTPClient(together.Config{
			APIKey:  cfg.TogetherAPIKey,
			Timeout: cfg.ProviderTimeout,
		}),
		llm.ProviderGemini: gemini.NewHTTPClient(gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Timeout: cfg.ProviderTimeout,
		}),
	}

	active := 0
	for _, p := range llm.FallbackOrder {
		if cfg.HasCredential(p) {
			active++
		}
	}
	log.Printf("✅ %d of %d providers configured", active, len(llm.FallbackOrder))

	// Initialize components
	promptBuilder := prompt.NewBuilder()
	recorder := usage.NewRecorder(database)
	orch := orchestrator.New(adapters, cfg, promptBuilder, recorder, cfg.ProviderTimeout, cfg.UsageLogTimeout)

	responseCache := cache.New(cache.Config{
		Backend: cfg.CacheBackend,
		TTL:     cfg.CacheTTL,
		Prefix:  cfg.CachePrefix,
	}, redisClient)

	webhookLog := webhook.NewLogger(1000)

	metrics.Register()

	// Initialize handlers
	chatHandler := api.NewChatHandler(orch, responseCache, cfg.CacheTTL)
	statsHandler := api.NewStatsHandler(database)
	webhookHandler := api.NewWebhookHandler(webhookLog)

	var redisPinger api.Pinger
	if redisClient != nil {
		redisPinger = cache.NewRedisCache(redisClient, cfg.CachePrefix)
	}
	healthHandler := api.NewHealthHandler(cfg, database, redisPinger)

	wsHandler := ws.NewChatHandler(orch, middleware.NewWebSocketLimiter(60))

	// Setup Gin router
	router := gin.Default()

	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(metrics.Middleware())

	// Global rate limiting (100 req/min per IP, burst of 200)
	router.Use(middleware.PerIP(100.0/60.0, 200))

	router.GET("/api/health", healthHandler.HandleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	aiGroup := router.Group("/api/ai")
	{
		aiGroup.POST("/chat", chatHandler.HandleChat)
		aiGroup.POST("/chat/stream", chatHandler.HandleChatStream)
	}

	dashboardGroup := router.Group("/api/dashboard")
	{
		dashboardGroup.GET("/stats", statsHandler.HandleDashboardStats)
		dashboardGroup.GET("/usage", statsHandler.HandleUsageStats)
	}

	webhookGroup := router.Group("/api/webhooks")
	{
		webhookGroup.GET("/events", webhookHandler.HandleListEvents)
		webhookGroup.GET("/events/:id", webhookHandler.HandleGetEvent)
		webhookGroup.DELETE("/events/:id", webhookHandler.HandleDeleteEvent)
		webhookGroup.GET("/stats", webhookHandler.HandleStatistics)
		webhookGroup.POST("/:source", webhookHandler.HandleReceive)
	}

	router.GET("/ws/chat", wsHandler.HandleChat)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
		log.Printf("📝 API endpoints:")
		log.Printf("   POST   /api/ai/chat")
		log.Printf("   POST   /api/ai/chat/stream")
		log.Printf("   GET    /api/health")
		log.Printf("   GET    /api/dashboard/stats")
		log.Printf("   GET    /api/dashboard/usage")
		log.Printf("   POST   /api/webhooks/:source")
		log.Printf("   GET    /api/webhooks/events")
		log.Printf("   GET    /api/webhooks/stats")
		log.Printf("   GET    /metrics")
		log.Printf("   WS     /ws/chat")
		log.Printf("")
		log.Printf("Press Ctrl+C to stop")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if mc, ok := responseCache.(*cache.MemoryCache); ok {
		mc.Close()
	}

	log.Println("Server exited")
}
