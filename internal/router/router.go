package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/hotel-reservation/internal/config"
    "github.com/iliyamo/hotel-reservation/internal/handler"
    "github.com/iliyamo/hotel-reservation/internal/metrics"
    "github.com/iliyamo/hotel-reservation/internal/middleware"
)

// Deps carries everything the routes need.  Redis may be nil.
type Deps struct {
    Reservations *handler.ReservationHandler
    Admin        *handler.AdminHandler
    DB           handler.Pinger
    Metrics      *metrics.Metrics
    Redis        *redis.Client
    RateLimit    config.RateLimitConfig
    Cache        config.CacheConfig
    JWTSecret    string
}

// RegisterRoutes installs the global middleware and every route.
func RegisterRoutes(e *echo.Echo, d Deps) {
    e.Validator = handler.NewValidator()
    e.Use(
        middleware.RequestID(),
        middleware.AccessLog(),
        middleware.Metrics(d.Metrics),
    )

    e.GET("/healthz", handler.Health(d.DB))
    if d.Metrics != nil {
        e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
    }

    api := e.Group("/api")
    h := d.Reservations
    // creation is the only route that takes inventory locks
    api.POST("/reservations/pending", h.CreatePending, middleware.NewTokenBucket(d.RateLimit, d.Redis))
    api.GET("/reservations/:id", h.Get)
    api.POST("/reservations/:id/customer-info", h.CustomerInfo)
    api.POST("/reservations/:id/cancel", h.Cancel)
    api.POST("/reservations/:id/expire", h.Expire)
    api.POST("/reservations/:id/confirm", h.Confirm)
    api.GET("/room-types/:id/availability", h.Availability, middleware.NewRedisCache(d.Cache, d.Redis))

    if d.Admin != nil {
        internal := e.Group("/internal",
            middleware.JWTAuth(d.JWTSecret),
            middleware.RequireRole("ADMIN"),
        )
        internal.POST("/stock/reload", d.Admin.ReloadStock)
    }
}
