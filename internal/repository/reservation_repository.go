package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/hotel-reservation/internal/model"
)

// ReservationRepo reads and transitions rows of the reservations table.
// Every state change is a single conditional UPDATE whose WHERE clause holds
// both the expected status and the deadline comparison, so the check and
// the write happen atomically in the database.  The deadline is compared
// with the caller's clock value rather than NOW() so one clock drives both
// the pre-check and the update.  All timestamps are UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can begin transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID.  reserver_id and arrive_at
// are always NULL on insert.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const q = `INSERT INTO reservations
               (reserver_id, session_token, reserved_at, check_in_date, check_out_date, arrive_at, status, pending_limit_at)
               VALUES (NULL, ?, ?, ?, ?, NULL, ?, ?)`
    result, err := tx.ExecContext(ctx, q, res.SessionToken, res.ReservedAt, res.CheckInDate, res.CheckOutDate, int(res.Status), res.PendingLimitAt)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    res.ReserverID = nil
    res.ArriveAt = nil
    return nil
}

// SaveSessionTokenTx overwrites the token of record.
func (r *ReservationRepo) SaveSessionTokenTx(ctx context.Context, tx *sql.Tx, id uint64, token string) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET session_token = ? WHERE id = ?`, token, id)
    return err
}

// CurrentSessionTokenTx returns the stored session token while the
// reservation is TENTATIVE.  ok is false for any other status, an empty
// token or a missing row.
func (r *ReservationRepo) CurrentSessionTokenTx(ctx context.Context, tx *sql.Tx, id uint64) (string, bool, error) {
    var tok sql.NullString
    err := tx.QueryRowContext(ctx,
        `SELECT session_token FROM reservations WHERE id = ? AND status = ?`,
        id, int(model.StatusTentative),
    ).Scan(&tok)
    if errors.Is(err, sql.ErrNoRows) {
        return "", false, nil
    }
    if err != nil {
        return "", false, err
    }
    if !tok.Valid || tok.String == "" {
        return "", false, nil
    }
    return tok.String, true, nil
}

// StateTx reads the fields the lifecycle checks need.
func (r *ReservationRepo) StateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.ReservationState, error) {
    var st model.ReservationState
    var status int
    var reserverID sql.NullInt64
    err := tx.QueryRowContext(ctx,
        `SELECT id, status, pending_limit_at, reserver_id, check_in_date FROM reservations WHERE id = ?`, id,
    ).Scan(&st.ID, &status, &st.PendingLimitAt, &reserverID, &st.CheckInDate)
    if errors.Is(err, sql.ErrNoRows) {
        return st, ErrReservationNotFound
    }
    if err != nil {
        return st, err
    }
    st.Status = model.Status(status)
    if reserverID.Valid {
        rid := uint64(reserverID.Int64)
        st.ReserverID = &rid
    }
    return st, nil
}

// GetTx loads the full reservation row.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
    const q = `SELECT id, reserver_id, session_token, reserved_at, check_in_date, check_out_date, arrive_at, status, pending_limit_at
               FROM reservations WHERE id = ?`
    var res model.Reservation
    var status int
    var reserverID sql.NullInt64
    var token sql.NullString
    var arrive sql.NullTime
    err := tx.QueryRowContext(ctx, q, id).Scan(
        &res.ID, &reserverID, &token, &res.ReservedAt, &res.CheckInDate, &res.CheckOutDate,
        &arrive, &status, &res.PendingLimitAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrReservationNotFound
    }
    if err != nil {
        return nil, err
    }
    res.Status = model.Status(status)
    res.SessionToken = token.String
    if reserverID.Valid {
        rid := uint64(reserverID.Int64)
        res.ReserverID = &rid
    }
    if arrive.Valid {
        a := arrive.Time
        res.ArriveAt = &a
    }
    return &res, nil
}

// LinkReserverTx attaches a reserver and arrival time to a reservation that
// is still TENTATIVE and not past its deadline at now.
func (r *ReservationRepo) LinkReserverTx(ctx context.Context, tx *sql.Tx, id, reserverID uint64, arriveAt, now time.Time) (int64, error) {
    return r.execAffected(ctx, tx,
        `UPDATE reservations SET reserver_id = ?, arrive_at = ?
         WHERE id = ? AND status = ? AND pending_limit_at > ?`,
        reserverID, arriveAt, id, int(model.StatusTentative), now)
}

// ConfirmTx moves TENTATIVE to CONFIRMED when the deadline has not passed
// and customer info is present.
func (r *ReservationRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (int64, error) {
    return r.execAffected(ctx, tx,
        `UPDATE reservations SET status = ?
         WHERE id = ? AND status = ? AND pending_limit_at > ? AND reserver_id IS NOT NULL`,
        int(model.StatusConfirmed), id, int(model.StatusTentative), now)
}

// CancelTx moves TENTATIVE to CANCELLED when the deadline has not passed.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (int64, error) {
    return r.execAffected(ctx, tx,
        `UPDATE reservations SET status = ?
         WHERE id = ? AND status = ? AND pending_limit_at > ?`,
        int(model.StatusCancelled), id, int(model.StatusTentative), now)
}

// ExpireTx moves TENTATIVE to EXPIRED once the deadline has passed.
func (r *ReservationRepo) ExpireTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (int64, error) {
    return r.execAffected(ctx, tx,
        `UPDATE reservations SET status = ?
         WHERE id = ? AND status = ? AND pending_limit_at <= ?`,
        int(model.StatusExpired), id, int(model.StatusTentative), now)
}

func (r *ReservationRepo) execAffected(ctx context.Context, tx *sql.Tx, q string, args ...interface{}) (int64, error) {
    res, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
