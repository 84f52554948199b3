package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/spacehub/rental-api/internal/domain"
)

const paymentColumns = `
	p.id, p.user_id, p.booking_id, p.stripe_payment_id, p.stripe_charge_id, p.amount,
	p.currency, p.status, p.payment_type, p.original_payment_id, p.created_at`

// refundedSum is the succeeded refund total of the payment aliased as p.
const refundedSum = `
	COALESCE((
		SELECT SUM(r.amount)
		FROM payments r
		WHERE r.original_payment_id = p.id
			AND r.payment_type = 'refund'
			AND r.status = 'succeeded'
	), 0)`

type PostgresPaymentRepository struct {
	db DBTX
}

func NewPostgresPaymentRepository(db DBTX) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if err := payment.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			user_id,
			booking_id,
			stripe_payment_id,
			stripe_charge_id,
			amount,
			currency,
			status,
			payment_type,
			original_payment_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		payment.UserID,
		payment.BookingID,
		payment.StripePaymentId,
		payment.StripeChargeId,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.Type,
		payment.OriginalPaymentID,
	).Scan(&payment.ID, &payment.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateRecord
		}

		return err
	}

	return nil
}

func (p *PostgresPaymentRepository) GetByBookingId(ctx context.Context, bookingId int) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		WHERE p.booking_id = $1
		ORDER BY p.created_at, p.id
	`

	rows, err := p.db.Query(ctx, query, bookingId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)

	for rows.Next() {
		var payment domain.Payment

		err = rows.Scan(paymentDest(&payment)...)
		if err != nil {
			return nil, err
		}

		payments = append(payments, payment)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (p *PostgresPaymentRepository) GetByExternalId(
	ctx context.Context,
	externalId string,
	types ...domain.PaymentType) (*domain.Payment, error) {

	if len(types) == 0 {
		types = []domain.PaymentType{domain.PaymentTypePayment, domain.PaymentTypeAdditionalCharge}
	}

	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		WHERE p.stripe_payment_id = $1 AND p.payment_type = ANY($2)
		ORDER BY p.created_at
		LIMIT 1
	`

	var payment domain.Payment

	err := p.db.QueryRow(ctx, query, externalId, typeNames).Scan(paymentDest(&payment)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &payment, nil
}

func (p *PostgresPaymentRepository) SettleRefund(
	ctx context.Context,
	refundId string,
	status domain.PaymentStatus) (bool, error) {

	query := `
		UPDATE payments
		SET status = $2
		WHERE stripe_payment_id = $1 AND payment_type = 'refund' AND status = 'pending'
	`

	tag, err := p.db.Exec(ctx, query, refundId, status)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (p *PostgresPaymentRepository) GetRefundable(ctx context.Context, bookingId int) ([]domain.RefundablePayment, error) {
	query := `
		SELECT ` + paymentColumns + `, ` + refundedSum + ` AS refunded
		FROM payments p
		WHERE p.booking_id = $1
			AND p.payment_type IN ('payment', 'additional_charge')
			AND p.status = 'succeeded'
			AND p.amount > ` + refundedSum + `
		ORDER BY p.created_at, p.id
	`

	rows, err := p.db.Query(ctx, query, bookingId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.RefundablePayment, 0)

	for rows.Next() {
		var payment domain.RefundablePayment

		err = rows.Scan(append(paymentDest(&payment.Payment), &payment.Refunded)...)
		if err != nil {
			return nil, err
		}

		payments = append(payments, payment)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (p *PostgresPaymentRepository) GetLatestUnrefunded(
	ctx context.Context,
	bookingId int) (*domain.RefundablePayment, error) {

	query := `
		SELECT ` + paymentColumns + `, ` + refundedSum + ` AS refunded
		FROM payments p
		WHERE p.booking_id = $1
			AND p.payment_type IN ('payment', 'additional_charge')
			AND p.status = 'succeeded'
			AND p.created_at > COALESCE((
				SELECT MAX(created_at)
				FROM payments
				WHERE booking_id = $1 AND payment_type = 'refund'
			), '-infinity'::timestamptz)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT 1
	`

	var payment domain.RefundablePayment

	err := p.db.QueryRow(ctx, query, bookingId).Scan(append(paymentDest(&payment.Payment), &payment.Refunded)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoUnrefundedPayment
		}

		return nil, err
	}

	return &payment, nil
}

func paymentDest(payment *domain.Payment) []any {
	return []any{
		&payment.ID,
		&payment.UserID,
		&payment.BookingID,
		&payment.StripePaymentId,
		&payment.StripeChargeId,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.Type,
		&payment.OriginalPaymentID,
		&payment.CreatedAt,
	}
}
