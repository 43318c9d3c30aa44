package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Stable machine-readable codes carried by ValidationError and
// BusinessRuleError.
const (
	CodeRoomTypeNotFound   = "room_type_not_found"
	CodeStockInsufficient  = "stock_insufficient"
	CodeInvalidDateRange   = "invalid_date_range"
	CodeCheckInInPast      = "check_in_in_past"
	CodeStayTooLong        = "stay_too_long"
	CodeNoRooms            = "no_rooms"
	CodeInvalidRoomCount   = "invalid_room_count"
	CodeInvalidRoomType    = "invalid_room_type"
	CodeInvalidArrivalTime = "invalid_arrival_time"
	CodeMissingField       = "missing_field"
)

// MaxRoomsPerType bounds the rooms of one type in a single request, after
// duplicate lines are merged.
const MaxRoomsPerType = 1000

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Code  string
	Field string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s (%s)", e.Code, e.Field)
	}
	return "validation: " + e.Code
}

// BusinessRuleError reports a well-formed request the inventory cannot serve.
type BusinessRuleError struct {
	Code       string
	RoomTypeID uint64
}

func (e BusinessRuleError) Error() string {
	if e.RoomTypeID != 0 {
		return fmt.Sprintf("business rule: %s (room type %d)", e.Code, e.RoomTypeID)
	}
	return "business rule: " + e.Code
}

// NotFoundError means the reservation or room type does not exist.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return e.Resource + " not found"
}

func (e NotFoundError) Unwrap() error { return e.Err }

// SessionTokenMismatchError never says which part of the check failed.
type SessionTokenMismatchError struct {
	ReservationID uint64
}

func (e SessionTokenMismatchError) Error() string {
	return fmt.Sprintf("session token mismatch for reservation %d", e.ReservationID)
}

// ExpiredError means the reservation is past its pending limit.
type ExpiredError struct {
	ReservationID uint64
}

func (e ExpiredError) Error() string {
	return fmt.Sprintf("reservation %d expired", e.ReservationID)
}

// CustomerInfoMissingError rejects a confirm before customer info was given.
type CustomerInfoMissingError struct {
	ReservationID uint64
}

func (e CustomerInfoMissingError) Error() string {
	return fmt.Sprintf("reservation %d has no customer info", e.ReservationID)
}

// StateConflictError means the reservation already left TENTATIVE.
type StateConflictError struct {
	ReservationID uint64
	Status        model.Status
}

func (e StateConflictError) Error() string {
	return fmt.Sprintf("reservation %d is %s", e.ReservationID, e.Status)
}

// IsValidation and the other Is helpers match the typed errors through
// any wrapping.
func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsBusinessRule(err error) bool {
	var target BusinessRuleError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsSessionTokenMismatch(err error) bool {
	var target SessionTokenMismatchError
	return errors.As(err, &target)
}

func IsExpired(err error) bool {
	var target ExpiredError
	return errors.As(err, &target)
}

func IsCustomerInfoMissing(err error) bool {
	var target CustomerInfoMissingError
	return errors.As(err, &target)
}

func IsStateConflict(err error) bool {
	var target StateConflictError
	return errors.As(err, &target)
}

// ErrorCode returns the stable code that clients and metrics see for err.
// Anything untyped is reported as internal_error.
func ErrorCode(err error) string {
	if err == nil {
		return "ok"
	}
	var v ValidationError
	if errors.As(err, &v) {
		return v.Code
	}
	var b BusinessRuleError
	if errors.As(err, &b) {
		return b.Code
	}
	switch {
	case IsNotFound(err):
		return "not_found"
	case IsSessionTokenMismatch(err):
		return "session_token_mismatch"
	case IsExpired(err):
		return "reservation_expired"
	case IsCustomerInfoMissing(err):
		return "customer_info_missing"
	case IsStateConflict(err):
		return "state_conflict"
	}
	return "internal_error"
}
