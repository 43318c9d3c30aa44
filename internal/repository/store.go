package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Tx is the set of operations available inside one reservation
// transaction.  Implementations must apply every write atomically with the
// surrounding transaction and discard all of them on rollback.
type Tx interface {
	CountReserved(ctx context.Context, roomTypeID uint64, statuses []model.Status, checkIn, checkOut time.Time, lock bool) (int, error)
	InsertReservation(ctx context.Context, res *model.Reservation) error
	InsertDetails(ctx context.Context, details []model.ReservationDetail) error
	SaveSessionToken(ctx context.Context, reservationID uint64, token string) error
	CurrentSessionToken(ctx context.Context, reservationID uint64) (string, bool, error)
	State(ctx context.Context, reservationID uint64) (model.ReservationState, error)
	Reservation(ctx context.Context, reservationID uint64) (*model.Reservation, error)
	Details(ctx context.Context, reservationID uint64) ([]model.ReservationDetail, error)
	Reserver(ctx context.Context, reserverID uint64) (*model.Reserver, error)
	UpsertReserver(ctx context.Context, existingID *uint64, rv *model.Reserver) error
	LinkReserver(ctx context.Context, reservationID, reserverID uint64, arriveAt, now time.Time) (int64, error)
	Confirm(ctx context.Context, reservationID uint64, now time.Time) (int64, error)
	Cancel(ctx context.Context, reservationID uint64, now time.Time) (int64, error)
	Expire(ctx context.Context, reservationID uint64, now time.Time) (int64, error)
}

// Store runs reservation work inside MySQL transactions.
type Store struct {
	db           *sql.DB
	reservations *ReservationRepo
	details      *ReservationDetailRepo
	reservers    *ReserverRepo
	ledger       *LedgerRepo
}

// NewStore wires the reservation repositories over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		reservations: NewReservationRepo(db),
		details:      NewReservationDetailRepo(db),
		reservers:    NewReserverRepo(db),
		ledger:       NewLedgerRepo(NewRoomTypeRepo(db)),
	}
}

// WithinTx begins a transaction, hands it to fn and commits when fn returns
// nil.  Any error from fn, or a panic, rolls the transaction back.
func (s *Store) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type sqlTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *sqlTx) CountReserved(ctx context.Context, roomTypeID uint64, statuses []model.Status, checkIn, checkOut time.Time, lock bool) (int, error) {
	return t.s.ledger.CountReservedTx(ctx, t.tx, roomTypeID, statuses, checkIn, checkOut, lock)
}

func (t *sqlTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	return t.s.reservations.CreateTx(ctx, t.tx, res)
}

func (t *sqlTx) InsertDetails(ctx context.Context, details []model.ReservationDetail) error {
	return t.s.details.CreateBulkTx(ctx, t.tx, details)
}

func (t *sqlTx) SaveSessionToken(ctx context.Context, id uint64, token string) error {
	return t.s.reservations.SaveSessionTokenTx(ctx, t.tx, id, token)
}

func (t *sqlTx) CurrentSessionToken(ctx context.Context, id uint64) (string, bool, error) {
	return t.s.reservations.CurrentSessionTokenTx(ctx, t.tx, id)
}

func (t *sqlTx) State(ctx context.Context, id uint64) (model.ReservationState, error) {
	return t.s.reservations.StateTx(ctx, t.tx, id)
}

func (t *sqlTx) Reservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return t.s.reservations.GetTx(ctx, t.tx, id)
}

func (t *sqlTx) Details(ctx context.Context, id uint64) ([]model.ReservationDetail, error) {
	return t.s.details.ListByReservationTx(ctx, t.tx, id)
}

func (t *sqlTx) Reserver(ctx context.Context, id uint64) (*model.Reserver, error) {
	return t.s.reservers.GetTx(ctx, t.tx, id)
}

func (t *sqlTx) UpsertReserver(ctx context.Context, existingID *uint64, rv *model.Reserver) error {
	return t.s.reservers.UpsertTx(ctx, t.tx, existingID, rv)
}

func (t *sqlTx) LinkReserver(ctx context.Context, id, reserverID uint64, arriveAt, now time.Time) (int64, error) {
	return t.s.reservations.LinkReserverTx(ctx, t.tx, id, reserverID, arriveAt, now)
}

func (t *sqlTx) Confirm(ctx context.Context, id uint64, now time.Time) (int64, error) {
	return t.s.reservations.ConfirmTx(ctx, t.tx, id, now)
}

func (t *sqlTx) Cancel(ctx context.Context, id uint64, now time.Time) (int64, error) {
	return t.s.reservations.CancelTx(ctx, t.tx, id, now)
}

func (t *sqlTx) Expire(ctx context.Context, id uint64, now time.Time) (int64, error) {
	return t.s.reservations.ExpireTx(ctx, t.tx, id, now)
}
