package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spacehub/rental-api/internal/domain"
)

const maxErrorLength = 2000

type PostgresNotificationRepository struct {
	db DBTX
}

func NewPostgresNotificationRepository(db DBTX) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{
		db: db,
	}
}

func (p *PostgresNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	query := `
		INSERT INTO notifications (user_id, booking_id, kind, title, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	return p.db.QueryRow(
		ctx,
		query,
		notification.UserID,
		notification.BookingID,
		notification.Kind,
		notification.Title,
		notification.Message,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (p *PostgresNotificationRepository) Schedule(
	ctx context.Context,
	notifications []domain.ScheduledNotification) error {

	if len(notifications) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(notifications))
	for _, n := range notifications {
		rows = append(rows, []any{
			n.UserID,
			n.BookingID,
			string(n.Kind),
			n.Title,
			n.Message,
			n.FireAt,
		})
	}

	_, err := p.db.CopyFrom(
		ctx,
		pgx.Identifier{"scheduled_notifications"},
		[]string{"user_id", "booking_id", "kind", "title", "message", "fire_at"},
		pgx.CopyFromRows(rows),
	)

	return err
}

func (p *PostgresNotificationRepository) ClaimDue(
	ctx context.Context,
	limit int,
	staleAfter time.Duration) ([]domain.ScheduledNotification, error) {

	query := `
		WITH candidates AS (
			SELECT id
			FROM scheduled_notifications
			WHERE (
				(status = 'pending' AND fire_at <= NOW())
				OR (status = 'processing' AND processing_started_at < NOW() - ($2 * INTERVAL '1 second'))
			)
			ORDER BY fire_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE scheduled_notifications AS s
		SET status = 'processing',
			processing_started_at = NOW(),
			attempts = s.attempts + 1
		FROM candidates
		WHERE s.id = candidates.id
		RETURNING s.id, s.user_id, s.booking_id, s.kind, s.title, s.message, s.fire_at, s.attempts
	`

	rows, err := p.db.Query(ctx, query, limit, int(staleAfter.Seconds()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claimed := make([]domain.ScheduledNotification, 0, limit)

	for rows.Next() {
		var n domain.ScheduledNotification

		err = rows.Scan(&n.ID, &n.UserID, &n.BookingID, &n.Kind, &n.Title, &n.Message, &n.FireAt, &n.Attempts)
		if err != nil {
			return nil, err
		}

		claimed = append(claimed, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return claimed, nil
}

func (p *PostgresNotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `
		UPDATE scheduled_notifications
		SET status = 'sent', sent_at = NOW(), processing_started_at = NULL, last_error = NULL
		WHERE id = $1
	`

	_, err := p.db.Exec(ctx, query, id)
	return err
}

func (p *PostgresNotificationRepository) MarkFailed(
	ctx context.Context,
	id int64,
	retryAfter time.Duration,
	reason string) error {

	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	query := `
		UPDATE scheduled_notifications
		SET status = 'pending',
			fire_at = NOW() + ($2 * INTERVAL '1 second'),
			processing_started_at = NULL,
			last_error = $3
		WHERE id = $1
	`

	_, err := p.db.Exec(ctx, query, id, seconds, truncate(reason))
	return err
}

func (p *PostgresNotificationRepository) MarkAbandoned(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE scheduled_notifications
		SET status = 'failed', processing_started_at = NULL, last_error = $2
		WHERE id = $1
	`

	_, err := p.db.Exec(ctx, query, id, truncate(reason))
	return err
}

func (p *PostgresNotificationRepository) CancelForBooking(ctx context.Context, bookingId int) error {
	query := `
		UPDATE scheduled_notifications
		SET status = 'cancelled', processing_started_at = NULL
		WHERE booking_id = $1 AND status IN ('pending', 'processing')
	`

	_, err := p.db.Exec(ctx, query, bookingId)
	return err
}

func truncate(reason string) string {
	if len(reason) > maxErrorLength {
		return reason[:maxErrorLength]
	}

	return reason
}
