package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/domain"
)

const bookingColumns = `
	id, user_id, listing_id, booking_start, booking_end, total_price, status,
	payment_status, created_at, updated_at, cancelled_at, refund_amount`

var blockingStatuses = []domain.BookingStatus{
	domain.BookingStatusActive,
	domain.BookingStatusPendingUpdate,
	domain.BookingStatusPendingCancellation,
}

type PostgresBookingRepository struct {
	db DBTX
}

func NewPostgresBookingRepository(db DBTX) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			user_id,
			listing_id,
			booking_start,
			booking_end,
			total_price,
			status,
			payment_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	return p.db.QueryRow(
		ctx,
		query,
		booking.UserID,
		booking.ListingID,
		booking.Start,
		booking.End,
		booking.TotalPrice,
		booking.Status,
		booking.PaymentStatus,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (p *PostgresBookingRepository) GetById(ctx context.Context, id int) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	return p.getOne(ctx, query, id)
}

func (p *PostgresBookingRepository) GetByIdForUpdate(ctx context.Context, id, userId int) (*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1 AND ($2::int = 0 OR user_id = $2)
		FOR UPDATE
	`

	return p.getOne(ctx, query, id, userId)
}

func (p *PostgresBookingRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Booking, error) {
	booking, err := scanBooking(p.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return booking, nil
}

var bookingSortColumns = map[string]string{
	"":          "booking_start",
	"startDate": "booking_start",
	"createdAt": "created_at",
	"price":     "total_price",
}

func (p *PostgresBookingRepository) GetByUserId(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error) {

	column, ok := bookingSortColumns[pagination.SortField()]
	if !ok {
		return nil, nil, domain.ErrInvalidInput
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) OVER(), %s
		FROM bookings
		WHERE user_id = $1
		ORDER BY %s %s, id
		LIMIT $2 OFFSET $3
	`, bookingColumns, column, pagination.SortDirection())

	rows, err := p.db.Query(ctx, query, userId, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	totalRecords := 0

	for rows.Next() {
		var booking domain.Booking

		err = rows.Scan(append([]any{&totalRecords}, bookingDest(&booking)...)...)
		if err != nil {
			return nil, nil, err
		}

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return bookings, metadata, nil
}

func (p *PostgresBookingRepository) GetByListingId(ctx context.Context, listingId int) ([]domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE listing_id = $1
		ORDER BY booking_start
	`

	return p.getMany(ctx, query, listingId)
}

func (p *PostgresBookingRepository) GetBlocking(
	ctx context.Context,
	listingId int,
	start, end time.Time) ([]domain.Booking, error) {

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE listing_id = $1
			AND status = ANY($2)
			AND booking_start < $4
			AND booking_end > $3
		ORDER BY booking_start
	`

	return p.getMany(ctx, query, listingId, statusStrings(blockingStatuses), start, end)
}

func (p *PostgresBookingRepository) getMany(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, *booking)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (p *PostgresBookingRepository) UpdateSlot(ctx context.Context, booking *domain.Booking) error {
	query := `
		UPDATE bookings
		SET booking_start = $2, booking_end = $3, total_price = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		booking.ID,
		booking.Start,
		booking.End,
		booking.TotalPrice,
		booking.Status,
	).Scan(&booking.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrRecordNotFound
	}

	return err
}

func (p *PostgresBookingRepository) UpdateStatus(
	ctx context.Context,
	id int,
	from []domain.BookingStatus,
	to domain.BookingStatus) error {

	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`

	tag, err := p.db.Exec(ctx, query, id, to, statusStrings(from))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEditConflict
	}

	return nil
}

func (p *PostgresBookingRepository) UpdatePaymentStatus(
	ctx context.Context,
	id int,
	status domain.BookingPaymentStatus) error {

	query := `UPDATE bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := p.db.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresBookingRepository) MarkCancelled(
	ctx context.Context,
	id int,
	cancelledAt time.Time,
	refunded decimal.Decimal) error {

	query := `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = $2,
			refund_amount = COALESCE(refund_amount, 0) + $3,
			updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
	`

	tag, err := p.db.Exec(ctx, query, id, cancelledAt, refunded)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyCancelled
	}

	return nil
}

func (p *PostgresBookingRepository) AddRefundAmount(ctx context.Context, id int, amount decimal.Decimal) error {
	query := `
		UPDATE bookings
		SET refund_amount = COALESCE(refund_amount, 0) + $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := p.db.Exec(ctx, query, id, amount)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresBookingRepository) CompleteElapsed(ctx context.Context, userId int, now time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'active'
			AND booking_end < $1
			AND ($2::int = 0 OR user_id = $2)
	`

	tag, err := p.db.Exec(ctx, query, now, userId)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresBookingRepository) ReleaseUpdateHolds(ctx context.Context, heldBefore time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'active', updated_at = NOW()
		WHERE status = 'pending_update'
			AND updated_at < $1
	`

	tag, err := p.db.Exec(ctx, query, heldBefore)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var booking domain.Booking

	err := row.Scan(bookingDest(&booking)...)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func bookingDest(booking *domain.Booking) []any {
	return []any{
		&booking.ID,
		&booking.UserID,
		&booking.ListingID,
		&booking.Start,
		&booking.End,
		&booking.TotalPrice,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
		&booking.RefundAmount,
	}
}
