package handler

import (
    "errors"
    "log"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-reservation/internal/middleware"
    "github.com/iliyamo/hotel-reservation/internal/service"
)

// Codes produced at the HTTP boundary, before the service is reached.
const (
    CodeMalformedBody = "malformed_body"
    CodeInvalidDate   = "invalid_date"
    CodeInvalidEmail  = "invalid_email"
    CodeInvalidField  = "invalid_field"
    CodeNotFound      = "not_found"
    CodeInternal      = "internal_error"
)

// StatusFor maps a lifecycle error to its HTTP status.  It is the only
// place that decides this.
func StatusFor(err error) int {
    switch {
    case err == nil:
        return http.StatusOK
    case service.IsValidation(err), service.IsBusinessRule(err), service.IsCustomerInfoMissing(err):
        return http.StatusUnprocessableEntity
    case service.IsNotFound(err):
        return http.StatusNotFound
    case service.IsSessionTokenMismatch(err), service.IsStateConflict(err):
        return http.StatusConflict
    case service.IsExpired(err):
        return http.StatusGone
    }
    return http.StatusInternalServerError
}

// respondError writes {"error": code} and, for validation failures, the
// offending field.  Internal errors are logged and never shown.
func respondError(c echo.Context, err error) error {
    status := StatusFor(err)
    if status == http.StatusInternalServerError {
        log.Printf("handler: request_id=%s %s %s failed: %v", middleware.GetRequestID(c), c.Request().Method, c.Path(), err)
        return c.JSON(status, echo.Map{"error": CodeInternal})
    }
    body := echo.Map{"error": service.ErrorCode(err)}
    if v, ok := asValidation(err); ok && v.Field != "" {
        body["field"] = v.Field
    }
    return c.JSON(status, body)
}

func asValidation(err error) (service.ValidationError, bool) {
    var v service.ValidationError
    ok := errors.As(err, &v)
    return v, ok
}

func notFound(c echo.Context) error {
    return c.JSON(http.StatusNotFound, echo.Map{"error": CodeNotFound})
}
