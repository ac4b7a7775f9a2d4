package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lftm-team/meeting-enrichment/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg           *config.Config
	enrichHandler *Enrich
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, enrichHandler *Enrich) *Router {
	return &Router{
		cfg:           cfg,
		enrichHandler: enrichHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/extract", rt.enrichHandler.Extract)
	e.POST("/analyze", rt.enrichHandler.Analyze)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "meeting-enrichment",
	})
}
