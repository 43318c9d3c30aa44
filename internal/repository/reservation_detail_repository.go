package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// ReservationDetailRepo stores the per room type lines of a reservation.
type ReservationDetailRepo struct {
	db *sql.DB
}

// NewReservationDetailRepo returns a new ReservationDetailRepo bound to the given database.
func NewReservationDetailRepo(db *sql.DB) *ReservationDetailRepo {
	return &ReservationDetailRepo{db: db}
}

// CreateBulkTx inserts multiple reservation_details rows in a single
// statement.  Passing an empty slice has no effect and returns nil.
func (r *ReservationDetailRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, details []model.ReservationDetail) error {
	if len(details) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_details (reservation_id, room_type_id, room_count, price) VALUES `
	args := make([]interface{}, 0, len(details)*4)
	for i, d := range details {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, d.ReservationID, d.RoomTypeID, d.RoomCount, d.Price)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ListByReservationTx returns the details of a reservation ordered by room type.
func (r *ReservationDetailRepo) ListByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) ([]model.ReservationDetail, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, reservation_id, room_type_id, room_count, price
         FROM reservation_details WHERE reservation_id = ? ORDER BY room_type_id`,
		reservationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReservationDetail{}
	for rows.Next() {
		var d model.ReservationDetail
		if err := rows.Scan(&d.ID, &d.ReservationID, &d.RoomTypeID, &d.RoomCount, &d.Price); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
