package model

import "time"

// Status is the lifecycle state of a reservation.  The integer codes are
// persisted as-is in reservations.status and must not be renumbered.
type Status int

const (
    StatusAvailable Status = 0
    StatusTentative Status = 10
    StatusConfirmed Status = 20
    StatusCancelled Status = 30
    StatusExpired   Status = 40
)

// LedgerStatuses lists the statuses whose rooms count against stock.
var LedgerStatuses = []Status{StatusTentative, StatusConfirmed}

// String returns the upper-case name of the status.
func (s Status) String() string {
    switch s {
    case StatusAvailable:
        return "AVAILABLE"
    case StatusTentative:
        return "TENTATIVE"
    case StatusConfirmed:
        return "CONFIRMED"
    case StatusCancelled:
        return "CANCELLED"
    case StatusExpired:
        return "EXPIRED"
    }
    return "UNKNOWN"
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
    return s == StatusConfirmed || s == StatusCancelled || s == StatusExpired
}

// Reservation records a guest's booking over a date range.  It starts
// TENTATIVE with a pending limit and moves to exactly one terminal state.
//
// Fields:
//  ID             – primary key identifier.
//  ReserverID     – guest who supplied customer info (nil until then).
//  SessionToken   – token of record for the active browser session.
//  ReservedAt     – creation timestamp.
//  CheckInDate    – first night (date only, UTC).
//  CheckOutDate   – departure day; the night before is the last one.
//  ArriveAt       – expected arrival time (nil until customer info).
//  Status         – lifecycle state.
//  PendingLimitAt – deadline after which a TENTATIVE booking may expire.
type Reservation struct {
    ID             uint64     // reservations.id
    ReserverID     *uint64    // reservations.reserver_id (nullable)
    SessionToken   string     // reservations.session_token
    ReservedAt     time.Time  // reservations.reserved_at
    CheckInDate    time.Time  // reservations.check_in_date
    CheckOutDate   time.Time  // reservations.check_out_date
    ArriveAt       *time.Time // reservations.arrive_at (nullable)
    Status         Status     // reservations.status
    PendingLimitAt time.Time  // reservations.pending_limit_at
}

// ReservationDetail is one room type line of a reservation.  Price is the
// server-computed total for the whole stay and all rooms of the line.
type ReservationDetail struct {
    ID            uint64 // reservation_details.id
    ReservationID uint64 // reservation_details.reservation_id
    RoomTypeID    uint64 // reservation_details.room_type_id
    RoomCount     int    // reservation_details.room_count
    Price         int64  // reservation_details.price
}

// ReservationState is the subset of a reservation that the lifecycle
// checks look at before and after a conditional update.
type ReservationState struct {
    ID             uint64
    Status         Status
    PendingLimitAt time.Time
    ReserverID     *uint64
    CheckInDate    time.Time
}

// Expired reports whether the pending limit has passed at now, or the
// reservation has already been marked expired.
func (s ReservationState) Expired(now time.Time) bool {
    if s.Status == StatusExpired {
        return true
    }
    return s.Status == StatusTentative && !s.PendingLimitAt.After(now)
}
