package middleware

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-reservation/internal/metrics"
)

// Metrics records count and latency per route template.  Unmatched paths
// are folded into one label value so they cannot blow up cardinality.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            m.ObserveHTTP(route, c.Request().Method, c.Response().Status, time.Since(start))
            return nil
        }
    }
}
