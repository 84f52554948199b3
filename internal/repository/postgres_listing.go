package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/spacehub/rental-api/internal/domain"
)

type PostgresListingRepository struct {
	db DBTX
}

func NewPostgresListingRepository(db DBTX) *PostgresListingRepository {
	return &PostgresListingRepository{
		db: db,
	}
}

func (p *PostgresListingRepository) GetById(ctx context.Context, id int) (*domain.Listing, error) {
	query := `
		SELECT id, owner_id, title, price, price_unit, available_from, available_until,
			available_start_time, available_end_time
		FROM listings
		WHERE id = $1
	`

	return p.get(ctx, query, id)
}

func (p *PostgresListingRepository) GetByIdForUpdate(ctx context.Context, id int) (*domain.Listing, error) {
	query := `
		SELECT id, owner_id, title, price, price_unit, available_from, available_until,
			available_start_time, available_end_time
		FROM listings
		WHERE id = $1
		FOR UPDATE
	`

	return p.get(ctx, query, id)
}

func (p *PostgresListingRepository) get(ctx context.Context, query string, id int) (*domain.Listing, error) {
	var (
		listing            domain.Listing
		availableFrom      pgtype.Date
		availableUntil     pgtype.Date
		availableStartTime pgtype.Time
		availableEndTime   pgtype.Time
	)

	err := p.db.QueryRow(ctx, query, id).Scan(
		&listing.ID,
		&listing.OwnerID,
		&listing.Title,
		&listing.Price,
		&listing.PriceUnit,
		&availableFrom,
		&availableUntil,
		&availableStartTime,
		&availableEndTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	if availableFrom.Valid {
		listing.AvailableFrom = &availableFrom.Time
	}

	if availableUntil.Valid {
		listing.AvailableUntil = &availableUntil.Time
	}

	listing.AvailableStartTime = timeOfDay(availableStartTime)
	listing.AvailableEndTime = timeOfDay(availableEndTime)

	return &listing, nil
}

func timeOfDay(t pgtype.Time) *domain.TimeOfDay {
	if !t.Valid {
		return nil
	}

	tod := domain.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
	return &tod
}
