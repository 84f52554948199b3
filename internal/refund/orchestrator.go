package refund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/domain"
)

type FullRefund struct {
	Booking       *domain.Booking
	TotalRefunded decimal.Decimal
	RefundIDs     []string
	// Pending is set when the processor has not settled every refund yet. The booking then stays
	// in pending_cancellation until the refund webhook arrives.
	Pending bool
}

type PartialRefundInput struct {
	BookingID int
	UserID    int
	Amount    decimal.Decimal
	NewStart  *time.Time
	NewEnd    *time.Time
}

type PartialRefund struct {
	Booking  *domain.Booking
	RefundID string
	Amount   decimal.Decimal
}

type Orchestrator struct {
	store    domain.Store
	gateway  domain.PaymentGateway
	notifier domain.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrchestrator(
	store domain.Store,
	gateway domain.PaymentGateway,
	notifier domain.Notifier,
	logger *slog.Logger) *Orchestrator {

	return &Orchestrator{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// CancelWithFullRefund refunds every settling payment of the booking and cancels it. The booking
// row stays locked for all processor calls; any failure rolls the whole attempt back and leaves
// the booking as it was.
func (o *Orchestrator) CancelWithFullRefund(ctx context.Context, bookingId, userId int) (*FullRefund, error) {
	result := &FullRefund{
		TotalRefunded: decimal.Zero,
		RefundIDs:     make([]string, 0),
	}

	err := o.store.RunInTx(ctx, func(tx domain.Repositories) error {
		booking, err := tx.Bookings().GetByIdForUpdate(ctx, bookingId, userId)
		if err != nil {
			return err
		}

		switch booking.Status {
		case domain.BookingStatusCancelled:
			return domain.ErrAlreadyCancelled
		case domain.BookingStatusPendingCancellation:
			return domain.ErrAlreadyInProgress
		case domain.BookingStatusCompleted:
			return domain.ErrBookingNotActive
		}

		payments, err := tx.Payments().GetRefundable(ctx, booking.ID)
		if err != nil {
			return err
		}

		if len(payments) == 0 {
			return domain.ErrNoRefundablePayments
		}

		err = tx.Bookings().UpdateStatus(
			ctx,
			booking.ID,
			[]domain.BookingStatus{booking.Status},
			domain.BookingStatusPendingCancellation,
		)
		if err != nil {
			if errors.Is(err, domain.ErrEditConflict) {
				return domain.ErrAlreadyInProgress
			}
			return err
		}

		booking.Status = domain.BookingStatusPendingCancellation

		settled := decimal.Zero

		for _, p := range payments {
			amount := o.refundableAmount(ctx, p)
			if !amount.IsPositive() {
				continue
			}

			row, err := o.issue(ctx, tx, booking, p, amount, domain.RefundTypeFullCancellation)
			if err != nil {
				return err
			}

			result.RefundIDs = append(result.RefundIDs, row.StripePaymentId)
			result.TotalRefunded = result.TotalRefunded.Add(amount)

			if row.Status == domain.PaymentStatusSucceeded {
				settled = settled.Add(amount)
			} else {
				result.Pending = true
			}
		}

		if len(result.RefundIDs) == 0 {
			return domain.ErrNoRefundablePayments
		}

		err = tx.Notifications().CancelForBooking(ctx, booking.ID)
		if err != nil {
			return err
		}

		result.Booking = booking

		if result.Pending {
			if !settled.IsPositive() {
				return nil
			}

			booking.RefundAmount = decimal.NewNullDecimal(booking.Refunded().Add(settled))
			return tx.Bookings().AddRefundAmount(ctx, booking.ID, settled)
		}

		now := o.now()
		err = tx.Bookings().MarkCancelled(ctx, booking.ID, now, settled)
		if err != nil {
			return err
		}

		booking.Status = domain.BookingStatusCancelled
		booking.CancelledAt = &now
		booking.RefundAmount = decimal.NewNullDecimal(booking.Refunded().Add(settled))

		return nil
	})
	if err != nil {
		return nil, err
	}

	o.notifyRefund(ctx, result.Booking, result.TotalRefunded)

	return result, nil
}

// PartialRefund returns part of the latest unrefunded payment. With new dates the booking shrinks
// and its total drops by the refunded amount; without them the amount is recorded as refunded.
func (o *Orchestrator) PartialRefund(ctx context.Context, input PartialRefundInput) (*PartialRefund, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	if (input.NewStart == nil) != (input.NewEnd == nil) {
		return nil, fmt.Errorf("%w: newStartDate and newEndDate must be given together", domain.ErrInvalidInput)
	}

	if input.NewStart != nil && !input.NewEnd.After(*input.NewStart) {
		return nil, domain.ErrInvalidTimeRange
	}

	var result *PartialRefund

	err := o.store.RunInTx(ctx, func(tx domain.Repositories) error {
		booking, err := tx.Bookings().GetByIdForUpdate(ctx, input.BookingID, input.UserID)
		if err != nil {
			return err
		}

		if booking.Status != domain.BookingStatusActive {
			return domain.ErrBookingNotActive
		}

		payment, err := tx.Payments().GetLatestUnrefunded(ctx, booking.ID)
		if err != nil {
			return err
		}

		refundable := o.refundableAmount(ctx, *payment)
		if input.Amount.GreaterThan(refundable) {
			return fmt.Errorf("%w: at most %s can be refunded", domain.ErrExceedsRefundable, refundable.StringFixed(2))
		}

		if input.NewStart != nil {
			if input.NewStart.Before(booking.Start) || input.NewEnd.After(booking.End) {
				return fmt.Errorf("%w: the new dates must lie within the current booking", domain.ErrInvalidInput)
			}

			if input.Amount.GreaterThan(booking.TotalPrice.Sub(booking.Refunded())) {
				return domain.ErrExceedsRefundable
			}
		} else if booking.Refunded().Add(input.Amount).GreaterThan(booking.TotalPrice) {
			return domain.ErrRefundExceedsTotal
		}

		row, err := o.issue(ctx, tx, booking, *payment, input.Amount, domain.RefundTypePartial)
		if err != nil {
			return err
		}

		if input.NewStart != nil {
			booking.Start = *input.NewStart
			booking.End = *input.NewEnd
			booking.TotalPrice = booking.TotalPrice.Sub(input.Amount)

			err = tx.Bookings().UpdateSlot(ctx, booking)
		} else {
			err = tx.Bookings().AddRefundAmount(ctx, booking.ID, input.Amount)
			booking.RefundAmount = decimal.NewNullDecimal(booking.Refunded().Add(input.Amount))
		}
		if err != nil {
			return err
		}

		result = &PartialRefund{
			Booking:  booking,
			RefundID: row.StripePaymentId,
			Amount:   input.Amount,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	o.notifyRefund(ctx, result.Booking, result.Amount)

	return result, nil
}

// refundableAmount asks the processor what is left on the payment, falling back to the ledger
// when the processor cannot answer. The smaller of the two wins.
func (o *Orchestrator) refundableAmount(ctx context.Context, p domain.RefundablePayment) decimal.Decimal {
	local := p.Remaining()

	remote, err := o.gateway.GetRefundableAmount(ctx, p.StripePaymentId)
	if err != nil {
		o.logger.Warn("using ledger refundable amount",
			"payment_id", p.ID,
			"intent_id", p.StripePaymentId,
			"amount", local.StringFixed(2),
			"error", err,
		)
		return local
	}

	return decimal.Min(local, remote.AmountRefundable)
}

func (o *Orchestrator) issue(
	ctx context.Context,
	tx domain.Repositories,
	booking *domain.Booking,
	p domain.RefundablePayment,
	amount decimal.Decimal,
	refundType string) (*domain.Payment, error) {

	metadata := map[string]string{
		domain.MetaRefundType:        refundType,
		domain.MetaBookingID:         strconv.Itoa(booking.ID),
		domain.MetaOriginalPaymentID: strconv.Itoa(p.ID),
	}

	refund, err := o.gateway.CreateRefund(ctx, p.StripePaymentId, amount, metadata)
	if err != nil {
		return nil, fmt.Errorf("refund payment %d: %w", p.ID, err)
	}

	if refund.Status == domain.PaymentStatusFailed {
		return nil, fmt.Errorf("%w: refund %s of payment %d", domain.ErrRefundFailed, refund.ID, p.ID)
	}

	originalId := p.ID
	row := &domain.Payment{
		UserID:            booking.UserID,
		BookingID:         booking.ID,
		StripePaymentId:   refund.ID,
		Amount:            amount,
		Currency:          p.Currency,
		Status:            refund.Status,
		Type:              domain.PaymentTypeRefund,
		OriginalPaymentID: &originalId,
	}

	if refund.ChargeID != "" {
		row.StripeChargeId = &refund.ChargeID
	}

	err = tx.Payments().Create(ctx, row)
	if err != nil {
		return nil, err
	}

	o.logger.Info("refund issued",
		"booking_id", booking.ID,
		"payment_id", p.ID,
		"refund_id", refund.ID,
		"amount", amount.StringFixed(2),
		"status", refund.Status,
	)

	return row, nil
}

func (o *Orchestrator) notifyRefund(ctx context.Context, booking *domain.Booking, amount decimal.Decimal) {
	bookingId := booking.ID

	o.notifier.Notify(ctx, domain.Notification{
		UserID:    booking.UserID,
		BookingID: &bookingId,
		Kind:      domain.NotificationRefundProcessed,
		Title:     "Refund processed",
		Message:   fmt.Sprintf("A refund of %s was issued for booking #%d.", amount.StringFixed(2), booking.ID),
	})
}
