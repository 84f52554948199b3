package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/booking"
	"github.com/spacehub/rental-api/internal/domain"
)

// errDuplicateEvent aborts the event transaction when a concurrent delivery already wrote the
// same ledger row.
var errDuplicateEvent = errors.New("webhook event already applied")

// Reconciler applies processor events to the ledger. Every event runs in one transaction and is
// safe to deliver more than once.
type Reconciler struct {
	store    domain.Store
	gateway  domain.PaymentGateway
	bookings *booking.Manager
	notifier domain.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewReconciler(
	store domain.Store,
	gateway domain.PaymentGateway,
	bookings *booking.Manager,
	notifier domain.Notifier,
	logger *slog.Logger) *Reconciler {

	return &Reconciler{
		store:    store,
		gateway:  gateway,
		bookings: bookings,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Handle verifies and applies a raw webhook delivery.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := r.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	return r.Apply(ctx, event)
}

func (r *Reconciler) Apply(ctx context.Context, event *domain.GatewayEvent) error {
	logger := r.logger.With("event_id", event.ID, "event_type", event.Type)

	var err error

	switch event.Type {
	case domain.EventPaymentIntentSucceeded:
		if event.Intent == nil {
			return domain.ErrInvalidEventPayload
		}

		meta := NormalizeMetadata(event.Intent.Metadata)
		if meta.Purpose() == domain.PurposeUpdateAdditional {
			err = r.applyAdditionalCharge(ctx, logger, event.Intent, meta)
		} else {
			err = r.applyInitialPayment(ctx, logger, event.Intent, meta)
		}

	case domain.EventPaymentIntentFailed:
		if event.Intent == nil {
			return domain.ErrInvalidEventPayload
		}

		err = r.applyPaymentFailed(ctx, logger, event.Intent)

	case domain.EventChargeRefunded:
		if event.Charge == nil || event.Charge.PaymentIntentID == "" {
			return domain.ErrInvalidEventPayload
		}

		err = r.applyRefund(ctx, logger, event.Charge)

	case domain.EventChargeRefundUpdated, domain.EventRefundUpdated:
		if event.Refund == nil || event.Refund.ID == "" {
			return domain.ErrInvalidEventPayload
		}

		err = r.applyRefundUpdate(ctx, logger, event.Refund)

	default:
		logger.Info("ignoring webhook event")
		return nil
	}

	if errors.Is(err, errDuplicateEvent) {
		logger.Info("webhook event already applied")
		return nil
	}

	return err
}

func (r *Reconciler) applyInitialPayment(
	ctx context.Context,
	logger *slog.Logger,
	intent *domain.Intent,
	meta Metadata) error {

	userId, ok := meta.Int(domain.MetaUserID)
	if !ok {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidEventPayload, domain.MetaUserID)
	}

	listingId, ok := meta.Int(domain.MetaListingID)
	if !ok {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidEventPayload, domain.MetaListingID)
	}

	var (
		created *domain.Booking
		listing *domain.Listing
	)

	err := r.store.RunInTx(ctx, func(tx domain.Repositories) error {
		applied, err := paymentRecorded(ctx, tx, intent.ID, domain.PaymentTypePayment)
		if err != nil || applied {
			return err
		}

		current, err := tx.Listings().GetById(ctx, listingId)
		if err != nil {
			return err
		}

		start, end, err := booking.ResolveSlot(current.PriceUnit, slotFrom(meta))
		if err != nil {
			return err
		}

		created = &domain.Booking{
			UserID:        userId,
			ListingID:     listingId,
			Start:         start,
			End:           end,
			Status:        domain.BookingStatusActive,
			PaymentStatus: domain.BookingPaymentPaid,
		}

		listing, err = booking.Reserve(ctx, tx, created, domain.PriceUnit(meta[domain.MetaPriceType]))
		if err != nil {
			if errors.Is(err, domain.ErrBookingConflict) {
				logger.Error("paid slot is no longer available, manual refund required",
					"intent_id", intent.ID,
					"listing_id", listingId,
					"user_id", userId,
				)
			}
			return err
		}

		if !created.TotalPrice.Equal(intent.Amount) {
			logger.Warn("intent amount differs from booking price",
				"intent_id", intent.ID,
				"amount", intent.Amount.StringFixed(2),
				"price", created.TotalPrice.StringFixed(2),
			)
		}

		return recordPayment(ctx, tx, created, intent, domain.PaymentTypePayment)
	})
	if err != nil {
		return err
	}

	if created == nil || created.ID == 0 {
		logger.Info("initial payment already recorded", "intent_id", intent.ID)
		return nil
	}

	logger.Info("booking created from payment", "booking_id", created.ID, "intent_id", intent.ID)

	r.bookings.ScheduleReminders(ctx, created, listing)

	r.notify(ctx, created.UserID, created, domain.NotificationPaymentSucceeded, "Payment received",
		"Your payment of %s for %s was received.", intent.Amount.StringFixed(2), listing.Title)
	r.notify(ctx, listing.OwnerID, created, domain.NotificationBookingNewForHost, "New booking",
		"%s was booked from %s to %s.", listing.Title, fmtTime(created.Start), fmtTime(created.End))

	return nil
}

func (r *Reconciler) applyAdditionalCharge(
	ctx context.Context,
	logger *slog.Logger,
	intent *domain.Intent,
	meta Metadata) error {

	bookingId, ok := meta.Int(domain.MetaBookingID)
	if !ok {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidEventPayload, domain.MetaBookingID)
	}

	var (
		updated *domain.Booking
		listing *domain.Listing
	)

	err := r.store.RunInTx(ctx, func(tx domain.Repositories) error {
		applied, err := paymentRecorded(ctx, tx, intent.ID, domain.PaymentTypeAdditionalCharge)
		if err != nil || applied {
			return err
		}

		current, locked, err := booking.LockForChange(ctx, tx, bookingId)
		if err != nil {
			return err
		}

		if current.Status != domain.BookingStatusActive && current.Status != domain.BookingStatusPendingUpdate {
			logger.Error("additional charge for a booking that can no longer change",
				"booking_id", current.ID,
				"status", current.Status,
				"intent_id", intent.ID,
			)
			return recordPayment(ctx, tx, current, intent, domain.PaymentTypeAdditionalCharge)
		}

		start, end, err := booking.ResolveSlot(locked.PriceUnit, slotFrom(meta))
		if err != nil {
			return err
		}

		conflict, err := booking.HasConflict(ctx, tx.Bookings(), locked.ID, start, end, current.ID)
		if err != nil {
			return err
		}

		if conflict {
			logger.Error("extended slot is no longer available, manual refund required",
				"booking_id", current.ID,
				"intent_id", intent.ID,
			)
			return domain.ErrBookingConflict
		}

		current.Start = start
		current.End = end
		current.TotalPrice = current.TotalPrice.Add(intent.Amount)
		current.Status = domain.BookingStatusActive

		if err = current.Validate(); err != nil {
			return err
		}

		err = tx.Bookings().UpdateSlot(ctx, current)
		if err != nil {
			return err
		}

		updated = current
		listing = locked

		return recordPayment(ctx, tx, current, intent, domain.PaymentTypeAdditionalCharge)
	})
	if err != nil {
		return err
	}

	if updated == nil {
		return nil
	}

	logger.Info("booking extended by additional charge", "booking_id", updated.ID, "intent_id", intent.ID)

	r.bookings.RescheduleReminders(ctx, updated, listing)

	r.notify(ctx, updated.UserID, updated, domain.NotificationBookingModified, "Booking updated",
		"Your booking for %s now runs from %s to %s.", listing.Title, fmtTime(updated.Start), fmtTime(updated.End))
	r.notify(ctx, listing.OwnerID, updated, domain.NotificationBookingModified, "Booking updated",
		"A booking for %s now runs from %s to %s.", listing.Title, fmtTime(updated.Start), fmtTime(updated.End))

	return nil
}

// applyPaymentFailed releases a pending_update hold or flags a booking awaiting payment.
func (r *Reconciler) applyPaymentFailed(ctx context.Context, logger *slog.Logger, intent *domain.Intent) error {
	meta := NormalizeMetadata(intent.Metadata)

	bookingId, ok := meta.Int(domain.MetaBookingID)
	if !ok {
		logger.Info("payment failed before a booking existed", "intent_id", intent.ID)
		return nil
	}

	if meta.Purpose() == domain.PurposeUpdateAdditional {
		return r.bookings.ReleaseUpdateHold(ctx, bookingId)
	}

	err := r.store.RunInTx(ctx, func(tx domain.Repositories) error {
		current, err := tx.Bookings().GetByIdForUpdate(ctx, bookingId, 0)
		if err != nil {
			return err
		}

		if current.PaymentStatus != domain.BookingPaymentPending {
			return nil
		}

		return tx.Bookings().UpdatePaymentStatus(ctx, current.ID, domain.BookingPaymentFailed)
	})
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil
	}

	return err
}

func (r *Reconciler) applyRefund(ctx context.Context, logger *slog.Logger, charge *domain.Charge) error {
	refund, err := r.gateway.LatestRefund(ctx, charge.PaymentIntentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			logger.Warn("charge refunded without a refund object", "intent_id", charge.PaymentIntentID)
			return nil
		}
		return err
	}

	logger = logger.With("refund_id", refund.ID, "intent_id", charge.PaymentIntentID)

	var refunded *domain.Booking

	err = r.store.RunInTx(ctx, func(tx domain.Repositories) error {
		existing, err := tx.Payments().GetByExternalId(ctx, refund.ID, domain.PaymentTypeRefund)
		if err == nil {
			refunded, err = r.settle(ctx, tx, logger, existing, refund)
			return err
		}

		if !errors.Is(err, domain.ErrRecordNotFound) {
			return err
		}

		meta := NormalizeMetadata(refund.Metadata)
		if meta[domain.MetaRefundType] != domain.RefundTypeFullCancellation {
			logger.Info("refund recorded by the requesting flow", "refund_type", meta[domain.MetaRefundType])
			return nil
		}

		original, err := tx.Payments().GetByExternalId(ctx, charge.PaymentIntentID)
		if err != nil {
			return err
		}

		current, err := tx.Bookings().GetByIdForUpdate(ctx, original.BookingID, 0)
		if err != nil {
			return err
		}

		originalId := original.ID
		row := &domain.Payment{
			UserID:            original.UserID,
			BookingID:         original.BookingID,
			StripePaymentId:   refund.ID,
			Amount:            refund.Amount,
			Currency:          original.Currency,
			Status:            refund.Status,
			Type:              domain.PaymentTypeRefund,
			OriginalPaymentID: &originalId,
		}

		if refund.ChargeID != "" {
			row.StripeChargeId = &refund.ChargeID
		}

		err = tx.Payments().Create(ctx, row)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateRecord) {
				return errDuplicateEvent
			}
			return err
		}

		switch refund.Status {
		case domain.PaymentStatusSucceeded:
			refunded, err = r.completeCancellation(ctx, tx, current, refund)
		case domain.PaymentStatusFailed:
			refunded, err = r.reopen(ctx, tx, logger, current)
		}

		return err
	})
	if err != nil {
		return err
	}

	if refunded != nil {
		logger.Info("refund applied", "booking_id", refunded.ID, "status", refund.Status)
		r.notifyRefund(ctx, refunded, refund.Status, refund.Amount)
	}

	return nil
}

// applyRefundUpdate settles a refund row that was written while the processor still reported the
// refund as pending.
func (r *Reconciler) applyRefundUpdate(ctx context.Context, logger *slog.Logger, refund *domain.Refund) error {
	logger = logger.With("refund_id", refund.ID, "status", refund.Status)

	if refund.Status == domain.PaymentStatusPending {
		logger.Info("refund still pending")
		return nil
	}

	var (
		settled *domain.Booking
		amount  decimal.Decimal
	)

	err := r.store.RunInTx(ctx, func(tx domain.Repositories) error {
		existing, err := tx.Payments().GetByExternalId(ctx, refund.ID, domain.PaymentTypeRefund)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				logger.Info("refund not recorded here, nothing to settle")
				return nil
			}
			return err
		}

		amount = existing.Amount
		settled, err = r.settle(ctx, tx, logger, existing, refund)
		return err
	})
	if err != nil {
		return err
	}

	if settled != nil {
		logger.Info("refund settled", "booking_id", settled.ID)
		r.notifyRefund(ctx, settled, refund.Status, amount)
	}

	return nil
}

// settle finalizes a refund row written while the processor still reported it as pending.
func (r *Reconciler) settle(
	ctx context.Context,
	tx domain.Repositories,
	logger *slog.Logger,
	existing *domain.Payment,
	refund *domain.Refund) (*domain.Booking, error) {

	if existing.Status != domain.PaymentStatusPending || refund.Status == domain.PaymentStatusPending {
		logger.Info("refund already recorded")
		return nil, nil
	}

	won, err := tx.Payments().SettleRefund(ctx, refund.ID, refund.Status)
	if err != nil || !won {
		return nil, err
	}

	// partial refunds were applied to the booking when they were issued
	if NormalizeMetadata(refund.Metadata)[domain.MetaRefundType] != domain.RefundTypeFullCancellation {
		if refund.Status != domain.PaymentStatusSucceeded {
			logger.Error("partial refund failed at the processor, manual follow-up required",
				"booking_id", existing.BookingID)
		}
		return nil, nil
	}

	current, err := tx.Bookings().GetByIdForUpdate(ctx, existing.BookingID, 0)
	if err != nil {
		return nil, err
	}

	if refund.Status != domain.PaymentStatusSucceeded {
		return r.reopen(ctx, tx, logger, current)
	}

	return r.completeCancellation(ctx, tx, current, &domain.Refund{ID: refund.ID, Amount: existing.Amount})
}

// reopen puts a booking whose cancellation refund failed back into service.
func (r *Reconciler) reopen(
	ctx context.Context,
	tx domain.Repositories,
	logger *slog.Logger,
	current *domain.Booking) (*domain.Booking, error) {

	logger.Error("cancellation refund failed at the processor", "booking_id", current.ID)

	if current.Status != domain.BookingStatusPendingCancellation {
		return nil, nil
	}

	err := tx.Bookings().UpdateStatus(ctx, current.ID,
		[]domain.BookingStatus{domain.BookingStatusPendingCancellation}, domain.BookingStatusActive)
	if err != nil {
		return nil, err
	}

	current.Status = domain.BookingStatusActive

	return current, nil
}

func (r *Reconciler) completeCancellation(
	ctx context.Context,
	tx domain.Repositories,
	current *domain.Booking,
	refund *domain.Refund) (*domain.Booking, error) {

	if current.Status != domain.BookingStatusPendingCancellation {
		return current, tx.Bookings().AddRefundAmount(ctx, current.ID, refund.Amount)
	}

	now := r.now()
	err := tx.Bookings().MarkCancelled(ctx, current.ID, now, refund.Amount)
	if err != nil {
		return nil, err
	}

	current.Status = domain.BookingStatusCancelled
	current.CancelledAt = &now

	err = tx.Notifications().CancelForBooking(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	return current, nil
}

// paymentRecorded reports whether a settling row for the intent already exists.
func paymentRecorded(ctx context.Context, tx domain.Repositories, intentId string, paymentType domain.PaymentType) (bool, error) {
	_, err := tx.Payments().GetByExternalId(ctx, intentId, paymentType)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, domain.ErrRecordNotFound) {
		return false, nil
	}

	return false, err
}

func recordPayment(
	ctx context.Context,
	tx domain.Repositories,
	b *domain.Booking,
	intent *domain.Intent,
	paymentType domain.PaymentType) error {

	row := &domain.Payment{
		UserID:          b.UserID,
		BookingID:       b.ID,
		StripePaymentId: intent.ID,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Status:          domain.PaymentStatusSucceeded,
		Type:            paymentType,
	}

	if intent.ChargeID != "" {
		row.StripeChargeId = &intent.ChargeID
	}

	err := tx.Payments().Create(ctx, row)
	if errors.Is(err, domain.ErrDuplicateRecord) {
		return errDuplicateEvent
	}

	return err
}

func slotFrom(meta Metadata) booking.SlotRequest {
	return booking.SlotRequest{
		StartDate: meta[domain.MetaStartDate],
		EndDate:   meta[domain.MetaEndDate],
		StartTime: meta[domain.MetaStartTime],
		EndTime:   meta[domain.MetaEndTime],
	}
}

func (r *Reconciler) notify(
	ctx context.Context,
	userId int,
	b *domain.Booking,
	kind domain.NotificationKind,
	title, format string,
	args ...any) {

	bookingId := b.ID

	r.notifier.Notify(ctx, domain.Notification{
		UserID:    userId,
		BookingID: &bookingId,
		Kind:      kind,
		Title:     title,
		Message:   fmt.Sprintf(format, args...),
	})
}

func (r *Reconciler) notifyRefund(ctx context.Context, b *domain.Booking, status domain.PaymentStatus, amount decimal.Decimal) {
	if status == domain.PaymentStatusSucceeded {
		r.notify(ctx, b.UserID, b, domain.NotificationRefundProcessed, "Refund processed",
			"A refund of %s was issued for booking #%d.", amount.StringFixed(2), b.ID)
		return
	}

	r.notify(ctx, b.UserID, b, domain.NotificationRefundFailed, "Refund failed",
		"The refund of %s for booking #%d failed and the booking is active again.", amount.StringFixed(2), b.ID)
}

func fmtTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04")
}
