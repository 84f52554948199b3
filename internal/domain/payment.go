package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

type PaymentType string

const (
	PaymentTypePayment          PaymentType = "payment"
	PaymentTypeAdditionalCharge PaymentType = "additional_charge"
	PaymentTypeRefund           PaymentType = "refund"
)

func (t PaymentType) Valid() bool {
	return t == PaymentTypePayment || t == PaymentTypeAdditionalCharge || t == PaymentTypeRefund
}

// Settles reports whether the row represents money paid towards a booking.
func (t PaymentType) Settles() bool {
	return t == PaymentTypePayment || t == PaymentTypeAdditionalCharge
}

// Payment is an append-only ledger row. Refund rows carry the refund's external id in
// StripePaymentId and always point at the payment they return money from.
type Payment struct {
	ID                int
	UserID            int
	BookingID         int
	StripePaymentId   string
	StripeChargeId    *string
	Amount            decimal.Decimal
	Currency          string
	Status            PaymentStatus
	Type              PaymentType
	OriginalPaymentID *int
	CreatedAt         time.Time
}

func (p *Payment) Validate() error {
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	if !p.Type.Valid() || !p.Status.Valid() {
		return ErrInvalidPaymentRecord
	}

	if (p.Type == PaymentTypeRefund) != (p.OriginalPaymentID != nil) {
		return ErrInvalidPaymentRecord
	}

	return nil
}

// RefundablePayment is a settling payment together with what has already been returned from it.
type RefundablePayment struct {
	Payment
	Refunded decimal.Decimal
}

func (p RefundablePayment) Remaining() decimal.Decimal {
	remaining := p.Amount.Sub(p.Refunded)
	if remaining.IsNegative() {
		return decimal.Zero
	}

	return remaining
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByBookingId(ctx context.Context, bookingId int) ([]Payment, error)
	// GetByExternalId finds the row recorded for a processor object id among the given types.
	GetByExternalId(ctx context.Context, externalId string, types ...PaymentType) (*Payment, error)
	// SettleRefund moves a pending refund row to its final status and reports whether it did.
	SettleRefund(ctx context.Context, refundId string, status PaymentStatus) (bool, error)
	// GetRefundable lists settling payments of a booking with a positive remainder, oldest first.
	GetRefundable(ctx context.Context, bookingId int) ([]RefundablePayment, error)
	// GetLatestUnrefunded returns the newest settling payment created after the last refund of
	// the booking.
	GetLatestUnrefunded(ctx context.Context, bookingId int) (*RefundablePayment, error)
}
