package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-reservation/internal/service"
)

type availabilityResponse struct {
    RoomTypeID uint64 `json:"roomTypeId"`
    CheckIn    string `json:"checkIn"`
    CheckOut   string `json:"checkOut"`
    TotalStock int    `json:"totalStock"`
    Remaining  int    `json:"remaining"`
    Nights     int    `json:"nights"`
    StayPrice  int64  `json:"stayPrice"`
}

// Availability handles GET /api/room-types/:id/availability?checkIn=&checkOut=.
// The numbers are a snapshot taken without locks; only creation is
// authoritative.
func (h *ReservationHandler) Availability(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return notFound(c)
    }
    in, err := time.Parse(dateLayout, c.QueryParam("checkIn"))
    if err != nil {
        return respondError(c, service.ValidationError{Code: CodeInvalidDate, Field: "checkIn"})
    }
    out, err := time.Parse(dateLayout, c.QueryParam("checkOut"))
    if err != nil {
        return respondError(c, service.ValidationError{Code: CodeInvalidDate, Field: "checkOut"})
    }
    av, err := h.svc.Availability(c.Request().Context(), id, in, out)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, availabilityResponse{
        RoomTypeID: av.RoomTypeID,
        CheckIn:    in.Format(dateLayout),
        CheckOut:   out.Format(dateLayout),
        TotalStock: av.TotalStock,
        Remaining:  av.Remaining,
        Nights:     av.Nights,
        StayPrice:  av.StayPrice,
    })
}
