package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RoomTypeRepo reads room type inventory and provides the per room type
// lock used while counting reserved rooms.
type RoomTypeRepo struct {
	db *sql.DB
}

// NewRoomTypeRepo returns a new RoomTypeRepo bound to the given database.
func NewRoomTypeRepo(db *sql.DB) *RoomTypeRepo { return &RoomTypeRepo{db: db} }

// LoadRoomTypeStock returns every room type with its capacity and the number
// of physical rooms it has.  Room types without rooms are reported with a
// total stock of zero.
func (r *RoomTypeRepo) LoadRoomTypeStock(ctx context.Context) ([]model.RoomTypeSnapshot, error) {
	const q = `SELECT rt.id, rt.hotel_id, rt.capacity, COUNT(rm.id)
               FROM room_types rt
               LEFT JOIN rooms rm ON rm.room_type_id = rt.id
               GROUP BY rt.id, rt.hotel_id, rt.capacity
               ORDER BY rt.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoomTypeSnapshot
	for rows.Next() {
		var s model.RoomTypeSnapshot
		if err := rows.Scan(&s.RoomTypeID, &s.HotelID, &s.Capacity, &s.TotalStock); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LockTx takes an exclusive row lock on the room type for the rest of the
// transaction.  Every booking of the type passes through this lock, which
// covers date windows that have no reservation rows yet.
func (r *RoomTypeRepo) LockTx(ctx context.Context, tx *sql.Tx, roomTypeID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM room_types WHERE id = ? FOR UPDATE`, roomTypeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomTypeNotFound
	}
	return err
}
