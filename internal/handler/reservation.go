package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-reservation/internal/service"
)

// Lifecycle is the part of the reservation service the HTTP layer drives.
type Lifecycle interface {
    CreateTentative(ctx context.Context, req service.CreateRequest) (service.CreateResult, error)
    GetReservation(ctx context.Context, reservationID uint64) (*service.ReservationView, error)
    UpsertCustomerInfo(ctx context.Context, reservationID uint64, sessionToken string, info service.CustomerInfo) error
    Confirm(ctx context.Context, reservationID uint64, sessionToken string) error
    Cancel(ctx context.Context, reservationID uint64, sessionToken string) (int64, error)
    Expire(ctx context.Context, reservationID uint64) (int64, error)
    Availability(ctx context.Context, roomTypeID uint64, checkIn, checkOut time.Time) (service.Availability, error)
    ValidAccessToken(reservationID uint64, tok string) bool
}

// ReservationHandler serves the guest facing reservation routes.  Every
// route except create needs ?token= (the access token); mutating routes
// also need ?sessionToken=.
type ReservationHandler struct {
    svc Lifecycle
}

// NewReservationHandler returns the handler for /api reservation and
// availability routes.  It panics if svc is nil.
func NewReservationHandler(svc Lifecycle) *ReservationHandler {
    if svc == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{svc: svc}
}

// roomLine is one requested room type.  The upper bound on roomCount
// matches service.MaxRoomsPerType.
type roomLine struct {
    RoomTypeID uint64 `json:"roomTypeId" validate:"required"`
    RoomCount  int    `json:"roomCount" validate:"required,min=1,max=1000"`
}

// createPendingRequest is the body of POST /api/reservations/pending.
// Dates are YYYY-MM-DD; the stay covers the nights from checkIn up to but
// not including checkOut.
type createPendingRequest struct {
    CheckIn  string     `json:"checkIn" validate:"required,isodate"`
    CheckOut string     `json:"checkOut" validate:"required,isodate"`
    Rooms    []roomLine `json:"rooms" validate:"required,min=1,dive"`
}

// createPendingResponse hands both tokens to the client.  The session
// token is not returned by any other route.
type createPendingResponse struct {
    ReservationID  uint64    `json:"reservationId"`
    AccessToken    string    `json:"accessToken"`
    SessionToken   string    `json:"sessionToken"`
    PendingLimitAt time.Time `json:"pendingLimitAt"`
}

// customerInfoRequest is the body of POST .../customer-info.  arrivalTime
// is HH:MM on the check-in date and defaults to the configured time.
type customerInfoRequest struct {
    FirstName   string `json:"firstName" validate:"required,max=100"`
    LastName    string `json:"lastName" validate:"required,max=100"`
    Phone       string `json:"phone" validate:"required,max=32"`
    Email       string `json:"email" validate:"required,email,max=255"`
    ArrivalTime string `json:"arrivalTime" validate:"omitempty,clock"`
}

type reservationRoom struct {
    RoomTypeID uint64 `json:"roomTypeId"`
    RoomCount  int    `json:"roomCount"`
    Price      int64  `json:"price"`
}

type reserverView struct {
    FirstName string `json:"firstName"`
    LastName  string `json:"lastName"`
    Phone     string `json:"phone"`
    Email     string `json:"email"`
}

// reservationResponse never includes the session token.
type reservationResponse struct {
    ReservationID  uint64            `json:"reservationId"`
    Status         string            `json:"status"`
    CheckIn        string            `json:"checkIn"`
    CheckOut       string            `json:"checkOut"`
    ReservedAt     time.Time         `json:"reservedAt"`
    PendingLimitAt time.Time         `json:"pendingLimitAt"`
    ArriveAt       *time.Time        `json:"arriveAt,omitempty"`
    Rooms          []reservationRoom `json:"rooms"`
    TotalPrice     int64             `json:"totalPrice"`
    Reserver       *reserverView     `json:"reserver,omitempty"`
}

// CreatePending handles POST /api/reservations/pending.  It answers 200
// with the reservation id and tokens, 422 for invalid input or missing
// stock.
func (h *ReservationHandler) CreatePending(c echo.Context) error {
    var body createPendingRequest
    if err := c.Bind(&body); err != nil {
        return respondError(c, service.ValidationError{Code: CodeMalformedBody})
    }
    if err := c.Validate(&body); err != nil {
        return respondError(c, validationCode(err))
    }
    in, _ := time.Parse(dateLayout, body.CheckIn)
    out, _ := time.Parse(dateLayout, body.CheckOut)
    req := service.CreateRequest{CheckIn: in, CheckOut: out, Rooms: make([]service.RoomRequest, len(body.Rooms))}
    for i, r := range body.Rooms {
        req.Rooms[i] = service.RoomRequest{RoomTypeID: r.RoomTypeID, RoomCount: r.RoomCount}
    }

    res, err := h.svc.CreateTentative(c.Request().Context(), req)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, createPendingResponse{
        ReservationID:  res.ReservationID,
        AccessToken:    res.AccessToken,
        SessionToken:   res.SessionToken,
        PendingLimitAt: res.PendingLimitAt,
    })
}

// Get handles GET /api/reservations/:id?token=.
func (h *ReservationHandler) Get(c echo.Context) error {
    id, ok := h.authorize(c)
    if !ok {
        return notFound(c)
    }
    view, err := h.svc.GetReservation(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, toResponse(view))
}

// CustomerInfo handles POST /api/reservations/:id/customer-info
// ?token=&sessionToken=.  Resubmitting overwrites the earlier details.
// Success has no body.
func (h *ReservationHandler) CustomerInfo(c echo.Context) error {
    id, ok := h.authorize(c)
    if !ok {
        return notFound(c)
    }
    var body customerInfoRequest
    if err := c.Bind(&body); err != nil {
        return respondError(c, service.ValidationError{Code: CodeMalformedBody})
    }
    if err := c.Validate(&body); err != nil {
        return respondError(c, validationCode(err))
    }
    err := h.svc.UpsertCustomerInfo(c.Request().Context(), id, c.QueryParam("sessionToken"), service.CustomerInfo{
        FirstName:   body.FirstName,
        LastName:    body.LastName,
        Phone:       body.Phone,
        Email:       body.Email,
        ArrivalTime: body.ArrivalTime,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusOK)
}

// Cancel handles POST /api/reservations/:id/cancel?token=&sessionToken=.
// The response reports {"updated": 0|1}; repeating a cancel yields 0.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    id, ok := h.authorize(c)
    if !ok {
        return notFound(c)
    }
    n, err := h.svc.Cancel(c.Request().Context(), id, c.QueryParam("sessionToken"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// Expire handles POST /api/reservations/:id/expire?token=.  It is meant for
// an external sweeper and needs no session token.
func (h *ReservationHandler) Expire(c echo.Context) error {
    id, ok := h.authorize(c)
    if !ok {
        return notFound(c)
    }
    n, err := h.svc.Expire(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// Confirm handles POST /api/reservations/:id/confirm.  Success has no body.
func (h *ReservationHandler) Confirm(c echo.Context) error {
    id, ok := h.authorize(c)
    if !ok {
        return notFound(c)
    }
    if err := h.svc.Confirm(c.Request().Context(), id, c.QueryParam("sessionToken")); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusOK)
}

// authorize parses :id and checks ?token=.  A bad id and a bad token look
// the same to the client.
func (h *ReservationHandler) authorize(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, h.svc.ValidAccessToken(id, c.QueryParam("token"))
}

func toResponse(v *service.ReservationView) reservationResponse {
    r := v.Reservation
    out := reservationResponse{
        ReservationID:  r.ID,
        Status:         r.Status.String(),
        CheckIn:        r.CheckInDate.Format(dateLayout),
        CheckOut:       r.CheckOutDate.Format(dateLayout),
        ReservedAt:     r.ReservedAt,
        PendingLimitAt: r.PendingLimitAt,
        ArriveAt:       r.ArriveAt,
        Rooms:          make([]reservationRoom, len(v.Details)),
        TotalPrice:     v.TotalPrice,
    }
    for i, d := range v.Details {
        out.Rooms[i] = reservationRoom{RoomTypeID: d.RoomTypeID, RoomCount: d.RoomCount, Price: d.Price}
    }
    if v.Reserver != nil {
        out.Reserver = &reserverView{
            FirstName: v.Reserver.FirstName,
            LastName:  v.Reserver.LastName,
            Phone:     v.Reserver.Phone,
            Email:     v.Reserver.Email,
        }
    }
    return out
}
