// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/google/uuid"
)

// Event types published for reservation lifecycle transitions.
const (
    EventReservationCreated   = "reservation.created"
    EventReservationConfirmed = "reservation.confirmed"
    EventReservationCancelled = "reservation.cancelled"
    EventReservationExpired   = "reservation.expired"
)

// ReservationEventsQueue is the durable queue all lifecycle events go to.
const ReservationEventsQueue = "reservation.events"

// EventRoom is one room type line of a reservation.
type EventRoom struct {
    RoomTypeID uint64 `json:"room_type_id"`
    RoomCount  int    `json:"room_count"`
    Price      int64  `json:"price"`
}

// ReservationEvent is published after a lifecycle transition commits.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type ReservationEvent struct {
    EventID       string      `json:"event_id"`
    Type          string      `json:"type"`
    ReservationID uint64      `json:"reservation_id"`
    Status        string      `json:"status"`
    CheckInDate   string      `json:"check_in_date,omitempty"`
    CheckOutDate  string      `json:"check_out_date,omitempty"`
    Rooms         []EventRoom `json:"rooms,omitempty"`
    TotalPrice    int64       `json:"total_price,omitempty"`
    OccurredAt    string      `json:"occurred_at"`
}

// NewReservationEvent stamps an event with a fresh id and the given time.
func NewReservationEvent(eventType string, reservationID uint64, status string, at time.Time) ReservationEvent {
    return ReservationEvent{
        EventID:       uuid.NewString(),
        Type:          eventType,
        ReservationID: reservationID,
        Status:        status,
        OccurredAt:    at.UTC().Format(time.RFC3339),
    }
}
