// Package router wires the HTTP routes of the orders service.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tickethub/orders-service/internal/config"
	"github.com/tickethub/orders-service/internal/handler"
	"github.com/tickethub/orders-service/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints: the
// liveness probe and the Prometheus exposition.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterOrders mounts the /api/orders routes behind JWT authentication
// and the Redis token-bucket rate limiter. rdb may be nil, in which case
// rate limiting is disabled.
func RegisterOrders(e *echo.Echo, h *handler.OrderHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/api/orders")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.NewTokenBucket(rlCfg, rdb))

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:orderId", h.Show)
	g.DELETE("/:orderId", h.Cancel)
}
