package middleware

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

const requestIDKey = "request_id"

// RequestID makes sure every request carries an id.  A client supplied
// X-Request-ID is kept; otherwise a random UUID is generated.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            rid := c.Request().Header.Get(echo.HeaderXRequestID)
            if rid == "" || len(rid) > 128 {
                rid = uuid.NewString()
            }
            c.Set(requestIDKey, rid)
            c.Response().Header().Set(echo.HeaderXRequestID, rid)
            return next(c)
        }
    }
}

// GetRequestID returns the id stored by RequestID, or "".
func GetRequestID(c echo.Context) string {
    if c == nil {
        return ""
    }
    rid, _ := c.Get(requestIDKey).(string)
    return rid
}
