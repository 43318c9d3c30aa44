// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation service to distinguish a missing row from a database
// failure without inspecting driver errors.
package repository

import "errors"

// ErrReservationNotFound is returned when no reservation row matches the
// requested id.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrRoomTypeNotFound is returned when the room type row to be locked does
// not exist.
var ErrRoomTypeNotFound = errors.New("room type not found")

// ErrReserverNotFound is returned when a reservation links to a reserver id
// with no matching row.
var ErrReserverNotFound = errors.New("reserver not found")
