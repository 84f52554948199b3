package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spacehub/rental-api/internal/domain"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository can run inside or
// outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type PostgresStore struct {
	repositories
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		repositories: repositories{db: db},
		db:           db,
	}
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	return runInTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(repositories{db: tx})
	})
}

type repositories struct {
	db DBTX
}

func (r repositories) Bookings() domain.BookingRepository {
	return NewPostgresBookingRepository(r.db)
}

func (r repositories) Payments() domain.PaymentRepository {
	return NewPostgresPaymentRepository(r.db)
}

func (r repositories) Listings() domain.ListingRepository {
	return NewPostgresListingRepository(r.db)
}

func (r repositories) Users() domain.UserRepository {
	return NewPostgresUserRepository(r.db)
}

func (r repositories) Notifications() domain.NotificationRepository {
	return NewPostgresNotificationRepository(r.db)
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	txOptions := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}

	return out
}
