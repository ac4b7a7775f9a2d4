package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/lftm-team/meeting-enrichment/pkg/validator"

	"github.com/lftm-team/meeting-enrichment/internal/adapter/handler"
	"github.com/lftm-team/meeting-enrichment/internal/infrastructure/cache"
	"github.com/lftm-team/meeting-enrichment/internal/metrics"
	"github.com/lftm-team/meeting-enrichment/internal/usecase/enrich"
	pkgai "github.com/lftm-team/meeting-enrichment/pkg/ai"
	"github.com/lftm-team/meeting-enrichment/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Request ID first so every log line downstream can correlate. A
	// client-provided X-Request-ID is preserved.
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human} | ${id}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))

	// HTTP metrics and per-client rate limiting
	e.Use(handler.HTTPMetrics())
	e.Use(handler.RateLimiter(cfg.RateLimit.RequestsPerMinute, logger))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	// Idempotency response cache
	var store cache.Store
	if cfg.Cache.Enabled {
		log.Printf("📦 Initializing idempotency cache (backend=%s)...", cfg.Cache.Backend)
		store = cache.New(&cfg.Cache, logger)
		defer store.Close()
	} else {
		log.Println("📦 Idempotency cache disabled")
	}

	// OpenAI client and enrichment service
	log.Println("🤖 Initializing enrichment pipeline...")
	openaiClient := pkgai.NewOpenAIClient(&cfg.OpenAI)
	enrichService := enrich.NewService(openaiClient, metrics.Recorder{}, &cfg.OpenAI, logger)

	enrichHandler := handler.NewEnrich(enrichService, store, cfg.Cache.Enabled, cfg.Cache.TTL, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, enrichHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}

	log.Println("✅ Server stopped")
}
