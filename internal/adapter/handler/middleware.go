package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lftm-team/meeting-enrichment/internal/metrics"
)

// HTTPMetrics records request count and latency for every route.
func HTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			method := c.Request().Method
			endpoint := c.Path()
			metrics.RecordHTTPRequest(method, endpoint, strconv.Itoa(status))
			metrics.RecordHTTPDuration(method, endpoint, time.Since(start).Seconds())
			return err
		}
	}
}

// RateLimiter enforces a per-client request quota. Exceeding it yields a
// 429 with a Retry-After header.
func RateLimiter(requestsPerMinute int, logger *zap.Logger) echo.MiddlewareFunc {
	limit := rate.Limit(float64(requestsPerMinute) / 60.0)

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      limit,
			Burst:     requestsPerMinute,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "could not identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			requestID := RequestID(c)
			metrics.RecordRateLimitExceeded(c.Path())
			if logger != nil {
				logger.Warn("rate limit exceeded",
					zap.String("request_id", requestID),
					zap.String("client", identifier),
					zap.Int("limit_per_minute", requestsPerMinute),
				)
			}
			c.Response().Header().Set("Retry-After", "60")
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"error":      "rate_limit_exceeded",
				"message":    "You exceeded the request limit. Try again shortly.",
				"limit":      strconv.Itoa(requestsPerMinute) + " requests per minute",
				"request_id": requestID,
			})
		},
	})
}
