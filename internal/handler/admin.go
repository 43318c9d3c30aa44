package handler

import (
    "context"
    "log"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-reservation/internal/metrics"
)

// StockReloader swaps the stock snapshot for a freshly loaded one.
type StockReloader interface {
    Reload(ctx context.Context) error
    Len() int
}

// AdminHandler serves the internal routes.  JWT and role checks happen in
// middleware.
type AdminHandler struct {
    stock   StockReloader
    metrics *metrics.Metrics
}

// NewAdminHandler returns the handler for /internal routes.  m may be nil.
func NewAdminHandler(stock StockReloader, m *metrics.Metrics) *AdminHandler {
    return &AdminHandler{stock: stock, metrics: m}
}

// ReloadStock handles POST /internal/stock/reload.  On failure the old
// snapshot stays in place.
func (h *AdminHandler) ReloadStock(c echo.Context) error {
    subject, _ := c.Get("subject").(string)
    if err := h.stock.Reload(c.Request().Context()); err != nil {
        log.Printf("admin: stock reload by %q failed: %v", subject, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": CodeInternal, "roomTypes": h.stock.Len()})
    }
    n := h.stock.Len()
    h.metrics.SetStockSize(n)
    log.Printf("admin: stock reloaded by %q, %d room types", subject, n)
    return c.JSON(http.StatusOK, echo.Map{"roomTypes": n})
}
