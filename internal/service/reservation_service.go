// Package service implements the reservation lifecycle: tentative booking
// against stock, customer info, confirm, cancel and expire.  Every operation
// runs inside exactly one store transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/metrics"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/pricing"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/token"
)

// TxStore runs fn inside one transaction, committing only when fn returns nil.
type TxStore interface {
	WithinTx(ctx context.Context, fn func(repository.Tx) error) error
}

// StockReader is the read side of the stock snapshot cache.
type StockReader interface {
	Get(roomTypeID uint64) (model.RoomTypeSnapshot, bool)
}

// EventPublisher receives lifecycle events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, event queue.ReservationEvent) error
}

// Options are the configured lifecycle parameters.
type Options struct {
	TentativeExpiry time.Duration // pending limit after creation
	DefaultArrival  time.Duration // offset from midnight of the check-in date
	MaxStayNights   int           // 0 disables the limit
	PublishTimeout  time.Duration
}

// RoomRequest asks for RoomCount rooms of one room type.
type RoomRequest struct {
	RoomTypeID uint64
	RoomCount  int
}

// CreateRequest is a stay and the rooms wanted for it.  Only the date part
// of CheckIn and CheckOut is used.
type CreateRequest struct {
	CheckIn  time.Time
	CheckOut time.Time
	Rooms    []RoomRequest
}

// CreateResult carries both tokens.  The session token is only ever
// returned here.
type CreateResult struct {
	ReservationID  uint64
	SessionToken   string
	AccessToken    string
	PendingLimitAt time.Time
}

// CustomerInfo is the guest data submitted before confirmation.
// ArrivalTime is "HH:MM"; empty means the configured default.
type CustomerInfo struct {
	FirstName   string
	LastName    string
	Phone       string
	Email       string
	ArrivalTime string
}

// ReservationView is the read model returned to the guest.
type ReservationView struct {
	Reservation model.Reservation
	Details     []model.ReservationDetail
	Reserver    *model.Reserver
	TotalPrice  int64
}

// Availability is the unlocked stock view of one room type for a stay.
type Availability struct {
	RoomTypeID uint64
	TotalStock int
	Reserved   int
	Remaining  int
	Nights     int
	StayPrice  int64
}

// ReservationService drives the reservation lifecycle over a TxStore.
type ReservationService struct {
	store    TxStore
	stock    StockReader
	prices   pricing.Calculator
	sessions *token.SessionGuard
	access   *token.AccessGuard
	events   EventPublisher
	metrics  *metrics.Metrics
	opts     Options
	now      func() time.Time
}

// NewReservationService wires the lifecycle service.  All dependencies must
// be non-nil.
func NewReservationService(store TxStore, stock StockReader, prices pricing.Calculator, sessions *token.SessionGuard, access *token.AccessGuard, opts Options) *ReservationService {
	if store == nil || stock == nil || sessions == nil || access == nil {
		panic("nil dependency passed to NewReservationService")
	}
	if opts.TentativeExpiry <= 0 {
		opts.TentativeExpiry = 15 * time.Minute
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 3 * time.Second
	}
	return &ReservationService{
		store:    store,
		stock:    stock,
		prices:   prices,
		sessions: sessions,
		access:   access,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithEvents sets the publisher for lifecycle events.  nil disables them.
func (s *ReservationService) WithEvents(p EventPublisher) *ReservationService {
	s.events = p
	return s
}

// WithMetrics records lifecycle outcomes on m.
func (s *ReservationService) WithMetrics(m *metrics.Metrics) *ReservationService {
	s.metrics = m
	return s
}

// WithClock replaces the clock used for deadlines.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// AccessToken returns the access token for a reservation id.
func (s *ReservationService) AccessToken(reservationID uint64) string {
	return s.access.Generate(reservationID)
}

// ValidAccessToken reports whether tok grants access to reservationID.
func (s *ReservationService) ValidAccessToken(reservationID uint64, tok string) bool {
	return s.access.Validate(reservationID, tok)
}

// CreateTentative books the requested rooms as a TENTATIVE reservation.
// Room types are locked in ascending id order and stock is checked under
// the lock, so concurrent requests can never oversell.
func (s *ReservationService) CreateTentative(ctx context.Context, req CreateRequest) (res CreateResult, err error) {
	defer func() { s.metrics.Lifecycle("create", ErrorCode(err)) }()

	now := s.now()
	checkIn, checkOut, lines, err := s.normalize(req, now)
	if err != nil {
		return CreateResult{}, err
	}
	snaps := make([]model.RoomTypeSnapshot, len(lines))
	for i, l := range lines {
		snap, ok := s.stock.Get(l.RoomTypeID)
		if !ok {
			return CreateResult{}, ValidationError{Code: CodeRoomTypeNotFound, Field: "rooms"}
		}
		snaps[i] = snap
	}

	var details []model.ReservationDetail
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		for i, l := range lines {
			reserved, err := tx.CountReserved(ctx, l.RoomTypeID, model.LedgerStatuses, checkIn, checkOut, true)
			if errors.Is(err, repository.ErrRoomTypeNotFound) {
				return ValidationError{Code: CodeRoomTypeNotFound, Field: "rooms"}
			}
			if err != nil {
				return fmt.Errorf("count reserved: %w", err)
			}
			if snaps[i].TotalStock-reserved < l.RoomCount {
				return BusinessRuleError{Code: CodeStockInsufficient, RoomTypeID: l.RoomTypeID}
			}
		}

		r := &model.Reservation{
			ReservedAt:     now,
			CheckInDate:    checkIn,
			CheckOutDate:   checkOut,
			Status:         model.StatusTentative,
			PendingLimitAt: now.Add(s.opts.TentativeExpiry),
		}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		sessionToken, err := s.sessions.Generate(ctx, tx, r.ID)
		if err != nil {
			return fmt.Errorf("session token: %w", err)
		}

		details = make([]model.ReservationDetail, len(lines))
		for i, l := range lines {
			details[i] = model.ReservationDetail{
				ReservationID: r.ID,
				RoomTypeID:    l.RoomTypeID,
				RoomCount:     l.RoomCount,
				Price:         s.prices.StayTotal(snaps[i].Capacity, snaps[i].HotelID, checkIn, checkOut) * int64(l.RoomCount),
			}
		}
		if err := tx.InsertDetails(ctx, details); err != nil {
			return fmt.Errorf("insert details: %w", err)
		}

		res = CreateResult{
			ReservationID:  r.ID,
			SessionToken:   sessionToken,
			AccessToken:    s.access.Generate(r.ID),
			PendingLimitAt: r.PendingLimitAt,
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	ev := queue.NewReservationEvent(queue.EventReservationCreated, res.ReservationID, model.StatusTentative.String(), now)
	ev.CheckInDate, ev.CheckOutDate = checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02")
	for _, d := range details {
		ev.Rooms = append(ev.Rooms, queue.EventRoom{RoomTypeID: d.RoomTypeID, RoomCount: d.RoomCount, Price: d.Price})
		ev.TotalPrice += d.Price
	}
	s.publish(ctx, ev)
	return res, nil
}

// UpsertCustomerInfo stores the guest's details and arrival time on a
// TENTATIVE reservation that is still within its pending limit.
func (s *ReservationService) UpsertCustomerInfo(ctx context.Context, reservationID uint64, sessionToken string, info CustomerInfo) (err error) {
	defer func() { s.metrics.Lifecycle("customer_info", ErrorCode(err)) }()

	if err := validateCustomerInfo(info); err != nil {
		return err
	}
	arrival := s.opts.DefaultArrival
	if info.ArrivalTime != "" {
		d, perr := ParseClock(info.ArrivalTime)
		if perr != nil {
			return ValidationError{Code: CodeInvalidArrivalTime, Field: "arrivalTime"}
		}
		arrival = d
	}

	return s.store.WithinTx(ctx, func(tx repository.Tx) error {
		now := s.now()
		st, err := s.state(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if err := precheck(st, now); err != nil {
			return err
		}
		if err := s.checkSession(ctx, tx, reservationID, sessionToken); err != nil {
			return err
		}

		rv := &model.Reserver{FirstName: info.FirstName, LastName: info.LastName, Phone: info.Phone, Email: info.Email}
		if err := tx.UpsertReserver(ctx, st.ReserverID, rv); err != nil {
			return fmt.Errorf("upsert reserver: %w", err)
		}
		arriveAt := pricing.DateOnly(st.CheckInDate).Add(arrival)
		n, err := tx.LinkReserver(ctx, reservationID, rv.ID, arriveAt, now)
		if err != nil {
			return fmt.Errorf("link reserver: %w", err)
		}
		if n == 1 {
			return nil
		}
		return s.diagnose(ctx, tx, reservationID, now, false)
	})
}

// Confirm moves a TENTATIVE reservation with customer info to CONFIRMED.
// The conditional update is the only authoritative step; the reads around
// it only choose the error returned.
func (s *ReservationService) Confirm(ctx context.Context, reservationID uint64, sessionToken string) (err error) {
	defer func() { s.metrics.Lifecycle("confirm", ErrorCode(err)) }()

	var at time.Time
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		now := s.now()
		at = now
		st, err := s.state(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if err := precheck(st, now); err != nil {
			return err
		}
		if err := s.checkSession(ctx, tx, reservationID, sessionToken); err != nil {
			return err
		}
		if st.ReserverID == nil {
			return CustomerInfoMissingError{ReservationID: reservationID}
		}
		n, err := tx.Confirm(ctx, reservationID, now)
		if err != nil {
			return fmt.Errorf("confirm: %w", err)
		}
		if n == 1 {
			return nil
		}
		return s.diagnose(ctx, tx, reservationID, now, true)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, queue.NewReservationEvent(queue.EventReservationConfirmed, reservationID, model.StatusConfirmed.String(), at))
	return nil
}

// Cancel moves a TENTATIVE reservation to CANCELLED and returns the number
// of rows changed.  A reservation that already left TENTATIVE, or whose
// deadline passed, yields 0 without error.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uint64, sessionToken string) (updated int64, err error) {
	defer func() { s.metrics.Lifecycle("cancel", ErrorCode(err)) }()

	var at time.Time
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		now := s.now()
		at = now
		st, err := s.state(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if st.Status != model.StatusTentative {
			return nil
		}
		if err := s.checkSession(ctx, tx, reservationID, sessionToken); err != nil {
			return err
		}
		n, err := tx.Cancel(ctx, reservationID, now)
		if err != nil {
			return fmt.Errorf("cancel: %w", err)
		}
		updated = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.publish(ctx, queue.NewReservationEvent(queue.EventReservationCancelled, reservationID, model.StatusCancelled.String(), at))
	}
	return updated, nil
}

// Expire moves a TENTATIVE reservation past its deadline to EXPIRED and
// returns the number of rows changed.  Repeated calls return 0.
func (s *ReservationService) Expire(ctx context.Context, reservationID uint64) (updated int64, err error) {
	defer func() { s.metrics.Lifecycle("expire", ErrorCode(err)) }()

	var at time.Time
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		now := s.now()
		at = now
		if _, err := s.state(ctx, tx, reservationID); err != nil {
			return err
		}
		n, err := tx.Expire(ctx, reservationID, now)
		if err != nil {
			return fmt.Errorf("expire: %w", err)
		}
		updated = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.publish(ctx, queue.NewReservationEvent(queue.EventReservationExpired, reservationID, model.StatusExpired.String(), at))
	}
	return updated, nil
}

// GetReservation loads a reservation with its details and reserver.
func (s *ReservationService) GetReservation(ctx context.Context, reservationID uint64) (*ReservationView, error) {
	var view ReservationView
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		r, err := tx.Reservation(ctx, reservationID)
		if errors.Is(err, repository.ErrReservationNotFound) {
			return NotFoundError{Resource: "reservation", Err: err}
		}
		if err != nil {
			return err
		}
		view.Reservation = *r
		if view.Details, err = tx.Details(ctx, reservationID); err != nil {
			return err
		}
		for _, d := range view.Details {
			view.TotalPrice += d.Price
		}
		if r.ReserverID != nil {
			rv, err := tx.Reserver(ctx, *r.ReserverID)
			if err != nil && !errors.Is(err, repository.ErrReserverNotFound) {
				return err
			}
			view.Reserver = rv
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Availability reports remaining stock and the one-room stay price without
// taking any lock.
func (s *ReservationService) Availability(ctx context.Context, roomTypeID uint64, checkIn, checkOut time.Time) (Availability, error) {
	in, out := pricing.DateOnly(checkIn), pricing.DateOnly(checkOut)
	if checkIn.IsZero() || checkOut.IsZero() || !out.After(in) {
		return Availability{}, ValidationError{Code: CodeInvalidDateRange, Field: "checkOut"}
	}
	snap, ok := s.stock.Get(roomTypeID)
	if !ok {
		return Availability{}, NotFoundError{Resource: "room type"}
	}
	var reserved int
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		reserved, err = tx.CountReserved(ctx, roomTypeID, model.LedgerStatuses, in, out, false)
		return err
	})
	if err != nil {
		return Availability{}, err
	}
	remaining := snap.TotalStock - reserved
	if remaining < 0 {
		remaining = 0
	}
	return Availability{
		RoomTypeID: roomTypeID,
		TotalStock: snap.TotalStock,
		Reserved:   reserved,
		Remaining:  remaining,
		Nights:     pricing.Nights(in, out),
		StayPrice:  s.prices.StayTotal(snap.Capacity, snap.HotelID, in, out),
	}, nil
}

func (s *ReservationService) normalize(req CreateRequest, now time.Time) (time.Time, time.Time, []RoomRequest, error) {
	if req.CheckIn.IsZero() {
		return time.Time{}, time.Time{}, nil, ValidationError{Code: CodeMissingField, Field: "checkIn"}
	}
	if req.CheckOut.IsZero() {
		return time.Time{}, time.Time{}, nil, ValidationError{Code: CodeMissingField, Field: "checkOut"}
	}
	in, out := pricing.DateOnly(req.CheckIn), pricing.DateOnly(req.CheckOut)
	if !out.After(in) {
		return in, out, nil, ValidationError{Code: CodeInvalidDateRange, Field: "checkOut"}
	}
	if in.Before(pricing.DateOnly(now)) {
		return in, out, nil, ValidationError{Code: CodeCheckInInPast, Field: "checkIn"}
	}
	if s.opts.MaxStayNights > 0 && pricing.Nights(in, out) > s.opts.MaxStayNights {
		return in, out, nil, ValidationError{Code: CodeStayTooLong, Field: "checkOut"}
	}
	if len(req.Rooms) == 0 {
		return in, out, nil, ValidationError{Code: CodeNoRooms, Field: "rooms"}
	}

	merged := make(map[uint64]int, len(req.Rooms))
	for _, r := range req.Rooms {
		if r.RoomTypeID == 0 {
			return in, out, nil, ValidationError{Code: CodeInvalidRoomType, Field: "rooms"}
		}
		// checked against the running total so merging cannot overflow
		if r.RoomCount < 1 || r.RoomCount > MaxRoomsPerType-merged[r.RoomTypeID] {
			return in, out, nil, ValidationError{Code: CodeInvalidRoomCount, Field: "rooms"}
		}
		merged[r.RoomTypeID] += r.RoomCount
	}
	lines := make([]RoomRequest, 0, len(merged))
	for id, n := range merged {
		lines = append(lines, RoomRequest{RoomTypeID: id, RoomCount: n})
	}
	// canonical lock order
	sort.Slice(lines, func(i, j int) bool { return lines[i].RoomTypeID < lines[j].RoomTypeID })
	return in, out, lines, nil
}

func (s *ReservationService) state(ctx context.Context, tx repository.Tx, id uint64) (model.ReservationState, error) {
	st, err := tx.State(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return st, NotFoundError{Resource: "reservation", Err: err}
	}
	return st, err
}

func (s *ReservationService) checkSession(ctx context.Context, tx repository.Tx, id uint64, sessionToken string) error {
	ok, err := s.sessions.Validate(ctx, tx, id, sessionToken)
	if err != nil {
		return fmt.Errorf("validate session token: %w", err)
	}
	if !ok {
		return SessionTokenMismatchError{ReservationID: id}
	}
	return nil
}

// precheck rejects reservations that are obviously past their deadline or
// already terminal.
func precheck(st model.ReservationState, now time.Time) error {
	if st.Expired(now) {
		return ExpiredError{ReservationID: st.ID}
	}
	if st.Status != model.StatusTentative {
		return StateConflictError{ReservationID: st.ID, Status: st.Status}
	}
	return nil
}

// diagnose re-reads state after a conditional update changed nothing.
func (s *ReservationService) diagnose(ctx context.Context, tx repository.Tx, id uint64, now time.Time, needReserver bool) error {
	st, err := s.state(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := precheck(st, now); err != nil {
		return err
	}
	if needReserver && st.ReserverID == nil {
		return CustomerInfoMissingError{ReservationID: id}
	}
	return StateConflictError{ReservationID: id, Status: st.Status}
}

func (s *ReservationService) publish(ctx context.Context, ev queue.ReservationEvent) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		log.Printf("reservation: publish %s for %d failed: %v", ev.Type, ev.ReservationID, err)
	}
}

func validateCustomerInfo(info CustomerInfo) error {
	switch {
	case info.FirstName == "":
		return ValidationError{Code: CodeMissingField, Field: "firstName"}
	case info.LastName == "":
		return ValidationError{Code: CodeMissingField, Field: "lastName"}
	case info.Phone == "":
		return ValidationError{Code: CodeMissingField, Field: "phone"}
	case info.Email == "":
		return ValidationError{Code: CodeMissingField, Field: "email"}
	}
	return nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
