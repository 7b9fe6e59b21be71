package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	acctshared "github.com/paperledger/paperledger/internal/accounting/shared"
)

type Repository interface {
	// FindByDate returns the period covering the date regardless of status.
	FindByDate(ctx context.Context, date time.Time) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) FindByDate(ctx context.Context, date time.Time) (Period, error) {
	var period Period
	err := r.db.QueryRow(ctx, `SELECT id, code, start_date, end_date, status, closed_at, created_at, updated_at
FROM periods WHERE $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date).
		Scan(&period.ID, &period.Code, &period.StartDate, &period.EndDate, &period.Status, &period.ClosedAt, &period.CreatedAt, &period.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, acctshared.ErrInvalidPeriod
		}
		return Period{}, err
	}
	return period, nil
}
