package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/domain"
)

const displayLayout = "Jan 2, 2006 15:04"

// UpdateHoldTTL is how long a booking may wait in pending_update for its additional charge.
const UpdateHoldTTL = 30 * time.Minute

type CreateInput struct {
	UserID    int
	ListingID int
	Start     time.Time
	End       time.Time
	// Total is the price the renter agreed to; zero accepts the computed price.
	Total     decimal.Decimal
	PriceUnit domain.PriceUnit
}

// Quote is a validated, priced slot of a listing.
type Quote struct {
	Listing *domain.Listing
	Start   time.Time
	End     time.Time
	Amount  decimal.Decimal
}

// PendingUpdate describes a booking held in pending_update until its additional charge settles.
type PendingUpdate struct {
	Booking    *domain.Booking
	Listing    *domain.Listing
	Start      time.Time
	End        time.Time
	NewTotal   decimal.Decimal
	Additional decimal.Decimal
}

type Manager struct {
	store    domain.Store
	notifier domain.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewManager(store domain.Store, notifier domain.Notifier, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the manager's time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Create(ctx context.Context, input CreateInput) (*domain.Booking, error) {
	booking := &domain.Booking{
		UserID:        input.UserID,
		ListingID:     input.ListingID,
		Start:         input.Start,
		End:           input.End,
		TotalPrice:    input.Total,
		Status:        domain.BookingStatusActive,
		PaymentStatus: domain.BookingPaymentPending,
	}

	var listing *domain.Listing

	err := m.store.RunInTx(ctx, func(tx domain.Repositories) error {
		var err error
		listing, err = Reserve(ctx, tx, booking, input.PriceUnit)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.ScheduleReminders(ctx, booking, listing)

	m.notify(ctx, booking.UserID, booking, domain.NotificationBookingConfirmed, "Booking confirmed",
		"Your booking for %s from %s to %s is confirmed.", listing.Title, fmtTime(booking.Start), fmtTime(booking.End))
	m.notify(ctx, listing.OwnerID, booking, domain.NotificationBookingNewForHost, "New booking",
		"%s was booked from %s to %s.", listing.Title, fmtTime(booking.Start), fmtTime(booking.End))

	return booking, nil
}

// Reserve validates booking against its listing and inserts it on tx. The listing row is locked
// before the conflict check and stays locked until tx ends. A zero TotalPrice is replaced by the
// computed price; any other value must match it.
func Reserve(
	ctx context.Context,
	tx domain.Repositories,
	booking *domain.Booking,
	unit domain.PriceUnit) (*domain.Listing, error) {

	if !booking.End.After(booking.Start) {
		return nil, domain.ErrInvalidTimeRange
	}

	listing, err := tx.Listings().GetByIdForUpdate(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID == booking.UserID {
		return nil, domain.ErrOwnListing
	}

	if unit != "" && unit != listing.PriceUnit {
		return nil, domain.ErrPriceUnitMismatch
	}

	if !listing.Covers(booking.Start, booking.End) {
		return nil, domain.ErrOutsideAvailability
	}

	conflict, err := HasConflict(ctx, tx.Bookings(), listing.ID, booking.Start, booking.End, 0)
	if err != nil {
		return nil, err
	}

	if conflict {
		return nil, domain.ErrBookingConflict
	}

	price := listing.PriceFor(booking.Start, booking.End)
	if booking.TotalPrice.IsZero() {
		booking.TotalPrice = price
	} else if !booking.TotalPrice.Equal(price) {
		return nil, fmt.Errorf("%w: expected %s", domain.ErrPriceMismatch, price.StringFixed(2))
	}

	if err = booking.Validate(); err != nil {
		return nil, err
	}

	err = tx.Bookings().Create(ctx, booking)
	if err != nil {
		return nil, err
	}

	return listing, nil
}

// Quote prices a prospective booking without writing anything.
func (m *Manager) Quote(
	ctx context.Context,
	userId, listingId int,
	unit domain.PriceUnit,
	start, end time.Time) (*Quote, error) {

	if !end.After(start) {
		return nil, domain.ErrInvalidTimeRange
	}

	listing, err := m.store.Listings().GetById(ctx, listingId)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID == userId {
		return nil, domain.ErrOwnListing
	}

	if unit != "" && unit != listing.PriceUnit {
		return nil, domain.ErrPriceUnitMismatch
	}

	if !listing.Covers(start, end) {
		return nil, domain.ErrOutsideAvailability
	}

	conflict, err := HasConflict(ctx, m.store.Bookings(), listingId, start, end, 0)
	if err != nil {
		return nil, err
	}

	if conflict {
		return nil, domain.ErrBookingConflict
	}

	return &Quote{
		Listing: listing,
		Start:   start,
		End:     end,
		Amount:  listing.PriceFor(start, end),
	}, nil
}

func (m *Manager) Update(ctx context.Context, bookingId, userId int, start, end time.Time) (*domain.Booking, error) {
	if !end.After(start) {
		return nil, domain.ErrInvalidTimeRange
	}

	var (
		booking *domain.Booking
		listing *domain.Listing
	)

	err := m.store.RunInTx(ctx, func(tx domain.Repositories) error {
		var err error
		booking, listing, err = lockForChange(ctx, tx, bookingId, userId)
		if err != nil {
			return err
		}

		if booking.Status != domain.BookingStatusActive {
			return domain.ErrBookingNotActive
		}

		if !listing.Covers(start, end) {
			return domain.ErrOutsideAvailability
		}

		conflict, err := HasConflict(ctx, tx.Bookings(), listing.ID, start, end, booking.ID)
		if err != nil {
			return err
		}

		if conflict {
			return domain.ErrBookingConflict
		}

		booking.Start = start
		booking.End = end
		booking.TotalPrice = listing.PriceFor(start, end)

		if err = booking.Validate(); err != nil {
			return err
		}

		return tx.Bookings().UpdateSlot(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	m.RescheduleReminders(ctx, booking, listing)

	m.notify(ctx, booking.UserID, booking, domain.NotificationBookingModified, "Booking updated",
		"Your booking for %s now runs from %s to %s.", listing.Title, fmtTime(booking.Start), fmtTime(booking.End))
	m.notify(ctx, listing.OwnerID, booking, domain.NotificationBookingModified, "Booking updated",
		"A booking for %s now runs from %s to %s.", listing.Title, fmtTime(booking.Start), fmtTime(booking.End))

	return booking, nil
}

// Cancel cancels a booking without refunding it.
func (m *Manager) Cancel(ctx context.Context, bookingId, userId int) (*domain.Booking, error) {
	var booking *domain.Booking

	err := m.store.RunInTx(ctx, func(tx domain.Repositories) error {
		var err error
		booking, err = tx.Bookings().GetByIdForUpdate(ctx, bookingId, userId)
		if err != nil {
			return err
		}

		switch booking.Status {
		case domain.BookingStatusCancelled:
			return domain.ErrAlreadyCancelled
		case domain.BookingStatusPendingCancellation:
			return domain.ErrAlreadyInProgress
		}

		if !booking.Status.CanTransitionTo(domain.BookingStatusCancelled) {
			return domain.ErrBookingNotActive
		}

		now := m.now()
		err = tx.Bookings().MarkCancelled(ctx, booking.ID, now, decimal.Zero)
		if err != nil {
			return err
		}

		booking.Status = domain.BookingStatusCancelled
		booking.CancelledAt = &now

		return tx.Notifications().CancelForBooking(ctx, booking.ID)
	})
	if err != nil {
		return nil, err
	}

	listing, err := m.store.Listings().GetById(ctx, booking.ListingID)
	if err != nil {
		m.logger.Error("failed to load listing for cancellation notice", "booking_id", booking.ID, "error", err)
		return booking, nil
	}

	m.notify(ctx, booking.UserID, booking, domain.NotificationBookingCancelled, "Booking cancelled",
		"Your booking for %s on %s was cancelled.", listing.Title, fmtTime(booking.Start))
	m.notify(ctx, listing.OwnerID, booking, domain.NotificationBookingCancelled, "Booking cancelled",
		"The booking for %s on %s was cancelled.", listing.Title, fmtTime(booking.Start))

	return booking, nil
}

// GetByID returns a booking visible to its renter or to the host of its listing.
func (m *Manager) GetByID(ctx context.Context, bookingId, userId int) (*domain.Booking, error) {
	booking, err := m.store.Bookings().GetById(ctx, bookingId)
	if err != nil {
		return nil, err
	}

	if booking.UserID == userId {
		return booking, nil
	}

	listing, err := m.store.Listings().GetById(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID != userId {
		return nil, domain.ErrRecordNotFound
	}

	return booking, nil
}

// GetForUser completes the user's elapsed bookings before listing them.
func (m *Manager) GetForUser(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error) {

	_, err := m.store.Bookings().CompleteElapsed(ctx, userId, m.now())
	if err != nil {
		return nil, nil, err
	}

	return m.store.Bookings().GetByUserId(ctx, userId, pagination)
}

// GetForListing lists the bookings of a listing for its host.
func (m *Manager) GetForListing(ctx context.Context, listingId, userId int) ([]domain.Booking, error) {
	listing, err := m.store.Listings().GetById(ctx, listingId)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID != userId {
		return nil, domain.ErrRecordNotFound
	}

	return m.store.Bookings().GetByListingId(ctx, listingId)
}

func (m *Manager) CompleteElapsed(ctx context.Context) (int64, error) {
	return m.store.Bookings().CompleteElapsed(ctx, 0, m.now())
}

// ReleaseStaleHolds reactivates bookings whose update payment was abandoned. A charge that still
// succeeds later is applied to the active booking.
func (m *Manager) ReleaseStaleHolds(ctx context.Context) (int64, error) {
	return m.store.Bookings().ReleaseUpdateHolds(ctx, m.now().Add(-UpdateHoldTTL))
}

// PrepareUpdate validates a paid change of an active booking and holds it in pending_update
// until the additional charge settles. additional must equal the price difference.
func (m *Manager) PrepareUpdate(
	ctx context.Context,
	bookingId, userId int,
	slot SlotRequest,
	additional decimal.Decimal) (*PendingUpdate, error) {

	if !additional.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var pending *PendingUpdate

	err := m.store.RunInTx(ctx, func(tx domain.Repositories) error {
		booking, listing, err := lockForChange(ctx, tx, bookingId, userId)
		if err != nil {
			return err
		}

		if booking.Status != domain.BookingStatusActive {
			return domain.ErrBookingNotActive
		}

		start, end, err := ResolveSlot(listing.PriceUnit, slot)
		if err != nil {
			return err
		}

		if !listing.Covers(start, end) {
			return domain.ErrOutsideAvailability
		}

		conflict, err := HasConflict(ctx, tx.Bookings(), listing.ID, start, end, booking.ID)
		if err != nil {
			return err
		}

		if conflict {
			return domain.ErrBookingConflict
		}

		newTotal := listing.PriceFor(start, end)
		if !newTotal.Sub(booking.TotalPrice).Equal(additional) {
			return fmt.Errorf("%w: expected additional amount %s",
				domain.ErrPriceMismatch, newTotal.Sub(booking.TotalPrice).StringFixed(2))
		}

		err = tx.Bookings().UpdateStatus(
			ctx,
			booking.ID,
			[]domain.BookingStatus{domain.BookingStatusActive},
			domain.BookingStatusPendingUpdate,
		)
		if err != nil {
			return err
		}

		booking.Status = domain.BookingStatusPendingUpdate

		pending = &PendingUpdate{
			Booking:    booking,
			Listing:    listing,
			Start:      start,
			End:        end,
			NewTotal:   newTotal,
			Additional: additional,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return pending, nil
}

// ReleaseUpdateHold returns a booking held in pending_update to active.
func (m *Manager) ReleaseUpdateHold(ctx context.Context, bookingId int) error {
	err := m.store.Bookings().UpdateStatus(
		ctx,
		bookingId,
		[]domain.BookingStatus{domain.BookingStatusPendingUpdate},
		domain.BookingStatusActive,
	)

	if errors.Is(err, domain.ErrEditConflict) {
		return nil
	}

	return err
}

// lockForChange locks the listing before the booking, the order every writer follows.
func lockForChange(
	ctx context.Context,
	tx domain.Repositories,
	bookingId, userId int) (*domain.Booking, *domain.Listing, error) {

	current, err := tx.Bookings().GetById(ctx, bookingId)
	if err != nil {
		return nil, nil, err
	}

	if userId != 0 && current.UserID != userId {
		return nil, nil, domain.ErrRecordNotFound
	}

	listing, err := tx.Listings().GetByIdForUpdate(ctx, current.ListingID)
	if err != nil {
		return nil, nil, err
	}

	booking, err := tx.Bookings().GetByIdForUpdate(ctx, bookingId, userId)
	if err != nil {
		return nil, nil, err
	}

	return booking, listing, nil
}

// LockForChange exposes the listing-then-booking lock order to other writers.
func LockForChange(
	ctx context.Context,
	tx domain.Repositories,
	bookingId int) (*domain.Booking, *domain.Listing, error) {

	return lockForChange(ctx, tx, bookingId, 0)
}

// ScheduleReminders writes the reminder outbox rows of a committed booking. Failures are logged
// and never undo the booking.
func (m *Manager) ScheduleReminders(ctx context.Context, booking *domain.Booking, listing *domain.Listing) {
	reminders := domain.BookingReminders(booking, listing.Title, m.now())

	err := m.store.Notifications().Schedule(ctx, reminders)
	if err != nil {
		m.logger.Error("failed to schedule booking reminders", "booking_id", booking.ID, "error", err)
	}
}

func (m *Manager) RescheduleReminders(ctx context.Context, booking *domain.Booking, listing *domain.Listing) {
	err := m.store.Notifications().CancelForBooking(ctx, booking.ID)
	if err != nil {
		m.logger.Error("failed to cancel booking reminders", "booking_id", booking.ID, "error", err)
		return
	}

	m.ScheduleReminders(ctx, booking, listing)
}

func (m *Manager) notify(
	ctx context.Context,
	userId int,
	booking *domain.Booking,
	kind domain.NotificationKind,
	title, format string,
	args ...any) {

	bookingId := booking.ID

	m.notifier.Notify(ctx, domain.Notification{
		UserID:    userId,
		BookingID: &bookingId,
		Kind:      kind,
		Title:     title,
		Message:   fmt.Sprintf(format, args...),
	})
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(displayLayout)
}
