package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// ReserverRepo provides access to the reservers table.
type ReserverRepo struct {
	db *sql.DB
}

// NewReserverRepo returns a new ReserverRepo bound to the given database.
func NewReserverRepo(db *sql.DB) *ReserverRepo { return &ReserverRepo{db: db} }

// UpsertTx updates the reserver with id existingID when given, otherwise it
// inserts a new row.  rv.ID is set to the id of the row written.
func (r *ReserverRepo) UpsertTx(ctx context.Context, tx *sql.Tx, existingID *uint64, rv *model.Reserver) error {
	if existingID != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE reservers SET first_name = ?, last_name = ?, phone = ?, email = ? WHERE id = ?`,
			rv.FirstName, rv.LastName, rv.Phone, rv.Email, *existingID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		// database.Open sets clientFoundRows, so an unchanged row still
		// counts and only a missing row falls through to insert.
		if n > 0 {
			rv.ID = *existingID
			return nil
		}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO reservers (first_name, last_name, phone, email) VALUES (?, ?, ?, ?)`,
		rv.FirstName, rv.LastName, rv.Phone, rv.Email,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// GetTx loads a reserver by id.
func (r *ReserverRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reserver, error) {
	var rv model.Reserver
	err := tx.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, phone, email FROM reservers WHERE id = ?`, id,
	).Scan(&rv.ID, &rv.FirstName, &rv.LastName, &rv.Phone, &rv.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReserverNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}
