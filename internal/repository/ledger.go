package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// LedgerRepo counts rooms already held against a room type's stock.
type LedgerRepo struct {
	roomTypes *RoomTypeRepo
}

// NewLedgerRepo returns a LedgerRepo that locks through roomTypes.
func NewLedgerRepo(roomTypes *RoomTypeRepo) *LedgerRepo { return &LedgerRepo{roomTypes: roomTypes} }

// CountReservedTx sums room_count over details of reservations in one of
// statuses whose stay overlaps [checkIn, checkOut).  With lock set it first
// locks the room type row and then reads the detail rows with FOR UPDATE, so
// concurrent bookings of the same room type are serialized until commit.
// Other room types are left untouched.
func (r *LedgerRepo) CountReservedTx(ctx context.Context, tx *sql.Tx, roomTypeID uint64, statuses []model.Status, checkIn, checkOut time.Time, lock bool) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	if lock {
		if err := r.roomTypes.LockTx(ctx, tx, roomTypeID); err != nil {
			return 0, err
		}
	}
	q, args := countReservedQuery(roomTypeID, statuses, checkIn, checkOut, lock)
	var n sql.NullInt64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return int(n.Int64), nil
}

func countReservedQuery(roomTypeID uint64, statuses []model.Status, checkIn, checkOut time.Time, lock bool) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(`SELECT COALESCE(SUM(d.room_count), 0)
               FROM reservation_details d
               JOIN reservations r ON r.id = d.reservation_id
               WHERE d.room_type_id = ? AND r.status IN (`)
	args := make([]interface{}, 0, len(statuses)+3)
	args = append(args, roomTypeID)
	for i, s := range statuses {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, int(s))
	}
	b.WriteString(`) AND r.check_out_date > ? AND r.check_in_date < ?`)
	args = append(args, checkIn, checkOut)
	if lock {
		b.WriteString(" FOR UPDATE")
	}
	return b.String(), args
}
