package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusActive              BookingStatus = "active"
	BookingStatusPendingUpdate       BookingStatus = "pending_update"
	BookingStatusPendingCancellation BookingStatus = "pending_cancellation"
	BookingStatusCancelled           BookingStatus = "cancelled"
	BookingStatusCompleted           BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusActive,
		BookingStatusPendingUpdate,
		BookingStatusPendingCancellation,
		BookingStatusCancelled,
		BookingStatusCompleted:
		return true
	}

	return false
}

// Blocking reports whether a booking in this status still occupies its time slot.
func (s BookingStatus) Blocking() bool {
	return s == BookingStatusActive || s == BookingStatusPendingUpdate || s == BookingStatusPendingCancellation
}

// CanTransitionTo encodes the booking lifecycle. Cancelled and completed are terminal. A pending
// cancellation goes back to active when its refund fails.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusActive:
		return next != BookingStatusActive && next.Valid()
	case BookingStatusPendingUpdate:
		return next == BookingStatusActive || next == BookingStatusPendingCancellation || next == BookingStatusCancelled
	case BookingStatusPendingCancellation:
		return next == BookingStatusCancelled || next == BookingStatusActive
	default:
		return false
	}
}

type BookingPaymentStatus string

const (
	BookingPaymentPending BookingPaymentStatus = "pending"
	BookingPaymentPaid    BookingPaymentStatus = "paid"
	BookingPaymentFailed  BookingPaymentStatus = "failed"
)

func (s BookingPaymentStatus) Valid() bool {
	return s == BookingPaymentPending || s == BookingPaymentPaid || s == BookingPaymentFailed
}

// Booking reserves the half-open interval [Start, End) of a listing for a renter.
type Booking struct {
	ID            int
	UserID        int
	ListingID     int
	Start         time.Time
	End           time.Time
	TotalPrice    decimal.Decimal
	Status        BookingStatus
	PaymentStatus BookingPaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CancelledAt   *time.Time
	RefundAmount  decimal.NullDecimal
}

func (b *Booking) Validate() error {
	if !b.End.After(b.Start) {
		return ErrInvalidTimeRange
	}

	if b.TotalPrice.IsNegative() {
		return ErrInvalidAmount
	}

	if b.RefundAmount.Valid && b.RefundAmount.Decimal.GreaterThan(b.TotalPrice) {
		return ErrRefundExceedsTotal
	}

	return nil
}

// Refunded returns the cumulative refunded amount, zero when nothing was refunded yet.
func (b *Booking) Refunded() decimal.Decimal {
	if !b.RefundAmount.Valid {
		return decimal.Zero
	}

	return b.RefundAmount.Decimal
}

// Overlaps applies the half-open overlap test against another interval.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End.After(start)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetById(ctx context.Context, id int) (*Booking, error)
	// GetByIdForUpdate locks the booking row owned by userId for the rest of the transaction. A
	// zero userId skips the ownership filter.
	GetByIdForUpdate(ctx context.Context, id, userId int) (*Booking, error)
	GetByUserId(ctx context.Context, userId int, pagination Pagination) ([]Booking, *Metadata, error)
	GetByListingId(ctx context.Context, listingId int) ([]Booking, error)
	// GetBlocking returns bookings of the listing that occupy any part of [start, end).
	GetBlocking(ctx context.Context, listingId int, start, end time.Time) ([]Booking, error)
	UpdateSlot(ctx context.Context, booking *Booking) error
	UpdateStatus(ctx context.Context, id int, from []BookingStatus, to BookingStatus) error
	UpdatePaymentStatus(ctx context.Context, id int, status BookingPaymentStatus) error
	MarkCancelled(ctx context.Context, id int, cancelledAt time.Time, refunded decimal.Decimal) error
	AddRefundAmount(ctx context.Context, id int, amount decimal.Decimal) error
	// CompleteElapsed flips active bookings whose end has passed into completed. A zero userId
	// sweeps every user.
	CompleteElapsed(ctx context.Context, userId int, now time.Time) (int64, error)
	// ReleaseUpdateHolds returns bookings held in pending_update since before heldBefore to active.
	ReleaseUpdateHolds(ctx context.Context, heldBefore time.Time) (int64, error)
}
