package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// memStore is a transactional in-memory store.  A transaction holds the
// store mutex from start to end and rolls back by restoring a copy.  It
// serializes every transaction, so tests on it check the lifecycle logic;
// lock order against MySQL is covered in sql_store_test.go.
type memStore struct {
	mu           sync.Mutex
	nextRes      uint64
	nextDetail   uint64
	nextReserver uint64
	reservations map[uint64]model.Reservation
	details      []model.ReservationDetail
	reservers    map[uint64]model.Reserver
	roomTypes    map[uint64]bool

	failInsertDetails bool
	hook              func(op string, id uint64, m *memStore)
}

func newMemStore(roomTypeIDs ...uint64) *memStore {
	m := &memStore{
		reservations: map[uint64]model.Reservation{},
		reservers:    map[uint64]model.Reserver{},
		roomTypes:    map[uint64]bool{},
	}
	for _, id := range roomTypeIDs {
		m.roomTypes[id] = true
	}
	return m
}

type memSnapshot struct {
	nextRes, nextDetail, nextReserver uint64
	reservations                      map[uint64]model.Reservation
	details                           []model.ReservationDetail
	reservers                         map[uint64]model.Reserver
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		nextRes:      m.nextRes,
		nextDetail:   m.nextDetail,
		nextReserver: m.nextReserver,
		reservations: make(map[uint64]model.Reservation, len(m.reservations)),
		details:      append([]model.ReservationDetail(nil), m.details...),
		reservers:    make(map[uint64]model.Reserver, len(m.reservers)),
	}
	for k, v := range m.reservations {
		s.reservations[k] = v
	}
	for k, v := range m.reservers {
		s.reservers[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.nextRes, m.nextDetail, m.nextReserver = s.nextRes, s.nextDetail, s.nextReserver
	m.reservations, m.details, m.reservers = s.reservations, s.details, s.reservers
}

func (m *memStore) WithinTx(_ context.Context, fn func(repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// reservation returns a committed reservation for assertions.
func (m *memStore) reservation(id uint64) (model.Reservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	return r, ok
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

// reservedRooms sums live rooms of a type overlapping [in, out).
func (m *memStore) reservedRooms(roomTypeID uint64, in, out time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumLocked(roomTypeID, model.LedgerStatuses, in, out)
}

func (m *memStore) sumLocked(roomTypeID uint64, statuses []model.Status, in, out time.Time) int {
	total := 0
	for _, d := range m.details {
		if d.RoomTypeID != roomTypeID {
			continue
		}
		r := m.reservations[d.ReservationID]
		if !statusIn(r.Status, statuses) {
			continue
		}
		if r.CheckOutDate.After(in) && r.CheckInDate.Before(out) {
			total += d.RoomCount
		}
	}
	return total
}

func statusIn(s model.Status, set []model.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

type memTx struct {
	m *memStore
}

func (t *memTx) CountReserved(_ context.Context, roomTypeID uint64, statuses []model.Status, checkIn, checkOut time.Time, lock bool) (int, error) {
	if lock && !t.m.roomTypes[roomTypeID] {
		return 0, repository.ErrRoomTypeNotFound
	}
	return t.m.sumLocked(roomTypeID, statuses, checkIn, checkOut), nil
}

func (t *memTx) InsertReservation(_ context.Context, res *model.Reservation) error {
	t.m.nextRes++
	res.ID = t.m.nextRes
	res.ReserverID = nil
	res.ArriveAt = nil
	t.m.reservations[res.ID] = *res
	return nil
}

func (t *memTx) InsertDetails(_ context.Context, details []model.ReservationDetail) error {
	if t.m.failInsertDetails {
		return errors.New("insert details failed")
	}
	for _, d := range details {
		t.m.nextDetail++
		d.ID = t.m.nextDetail
		t.m.details = append(t.m.details, d)
	}
	return nil
}

func (t *memTx) SaveSessionToken(_ context.Context, id uint64, tok string) error {
	r, ok := t.m.reservations[id]
	if !ok {
		return nil
	}
	r.SessionToken = tok
	t.m.reservations[id] = r
	return nil
}

func (t *memTx) CurrentSessionToken(_ context.Context, id uint64) (string, bool, error) {
	r, ok := t.m.reservations[id]
	if !ok || r.Status != model.StatusTentative || r.SessionToken == "" {
		return "", false, nil
	}
	return r.SessionToken, true, nil
}

func (t *memTx) State(_ context.Context, id uint64) (model.ReservationState, error) {
	r, ok := t.m.reservations[id]
	if !ok {
		return model.ReservationState{}, repository.ErrReservationNotFound
	}
	return model.ReservationState{
		ID:             r.ID,
		Status:         r.Status,
		PendingLimitAt: r.PendingLimitAt,
		ReserverID:     r.ReserverID,
		CheckInDate:    r.CheckInDate,
	}, nil
}

func (t *memTx) Reservation(_ context.Context, id uint64) (*model.Reservation, error) {
	r, ok := t.m.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return &r, nil
}

func (t *memTx) Details(_ context.Context, id uint64) ([]model.ReservationDetail, error) {
	out := []model.ReservationDetail{}
	for _, d := range t.m.details {
		if d.ReservationID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (t *memTx) Reserver(_ context.Context, id uint64) (*model.Reserver, error) {
	rv, ok := t.m.reservers[id]
	if !ok {
		return nil, repository.ErrReserverNotFound
	}
	return &rv, nil
}

func (t *memTx) UpsertReserver(_ context.Context, existingID *uint64, rv *model.Reserver) error {
	if existingID != nil {
		if _, ok := t.m.reservers[*existingID]; ok {
			rv.ID = *existingID
			t.m.reservers[rv.ID] = *rv
			return nil
		}
	}
	t.m.nextReserver++
	rv.ID = t.m.nextReserver
	t.m.reservers[rv.ID] = *rv
	return nil
}

func (t *memTx) runHook(op string, id uint64) {
	if t.m.hook != nil {
		t.m.hook(op, id, t.m)
	}
}

func (t *memTx) LinkReserver(_ context.Context, id, reserverID uint64, arriveAt, now time.Time) (int64, error) {
	t.runHook("link", id)
	r, ok := t.m.reservations[id]
	if !ok || r.Status != model.StatusTentative || !r.PendingLimitAt.After(now) {
		return 0, nil
	}
	r.ReserverID = &reserverID
	r.ArriveAt = &arriveAt
	t.m.reservations[id] = r
	return 1, nil
}

func (t *memTx) Confirm(_ context.Context, id uint64, now time.Time) (int64, error) {
	t.runHook("confirm", id)
	r, ok := t.m.reservations[id]
	if !ok || r.Status != model.StatusTentative || !r.PendingLimitAt.After(now) || r.ReserverID == nil {
		return 0, nil
	}
	r.Status = model.StatusConfirmed
	t.m.reservations[id] = r
	return 1, nil
}

func (t *memTx) Cancel(_ context.Context, id uint64, now time.Time) (int64, error) {
	t.runHook("cancel", id)
	r, ok := t.m.reservations[id]
	if !ok || r.Status != model.StatusTentative || !r.PendingLimitAt.After(now) {
		return 0, nil
	}
	r.Status = model.StatusCancelled
	t.m.reservations[id] = r
	return 1, nil
}

func (t *memTx) Expire(_ context.Context, id uint64, now time.Time) (int64, error) {
	t.runHook("expire", id)
	r, ok := t.m.reservations[id]
	if !ok || r.Status != model.StatusTentative || r.PendingLimitAt.After(now) {
		return 0, nil
	}
	r.Status = model.StatusExpired
	t.m.reservations[id] = r
	return 1, nil
}
