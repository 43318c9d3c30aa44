package middleware

import (
    "log"
    "time"

    "github.com/labstack/echo/v4"
)

// AccessLog prints one line per request including its request id.
func AccessLog() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let the error handler write the status before it is logged
                c.Error(err)
            }
            log.Printf("[HTTP] request_id=%s method=%s route=%s status=%d latency_ms=%.3f ip=%s",
                GetRequestID(c),
                c.Request().Method,
                c.Path(),
                c.Response().Status,
                float64(time.Since(start).Microseconds())/1000.0,
                c.RealIP(),
            )
            return nil
        }
    }
}
