package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/booking"
	"github.com/spacehub/rental-api/internal/domain"
)

type BookingIntentInput struct {
	UserID    int
	ListingID int
	PriceUnit domain.PriceUnit
	Slot      booking.SlotRequest
	// Amount is the total the client expects to pay; zero accepts the quoted price.
	Amount   decimal.Decimal
	Currency string
}

type UpdateIntentInput struct {
	BookingID  int
	UserID     int
	Slot       booking.SlotRequest
	Additional decimal.Decimal
	Currency   string
}

// Service starts the payment flows whose outcome the webhook reconciler applies later.
type Service struct {
	store    domain.Store
	bookings *booking.Manager
	gateway  domain.PaymentGateway
	currency string
	logger   *slog.Logger
}

func NewService(
	store domain.Store,
	bookings *booking.Manager,
	gateway domain.PaymentGateway,
	currency string,
	logger *slog.Logger) *Service {

	return &Service{
		store:    store,
		bookings: bookings,
		gateway:  gateway,
		currency: currency,
		logger:   logger,
	}
}

// StartBooking prices the requested slot and opens a payment intent for it. The booking itself is
// created once the intent succeeds.
func (s *Service) StartBooking(ctx context.Context, input BookingIntentInput) (*domain.Intent, error) {
	start, end, err := booking.ResolveSlot(input.PriceUnit, input.Slot)
	if err != nil {
		return nil, err
	}

	quote, err := s.bookings.Quote(ctx, input.UserID, input.ListingID, input.PriceUnit, start, end)
	if err != nil {
		return nil, err
	}

	if !input.Amount.IsZero() && !input.Amount.Equal(quote.Amount) {
		return nil, fmt.Errorf("%w: expected %s", domain.ErrPriceMismatch, quote.Amount.StringFixed(2))
	}

	metadata := slotMetadata(booking.SlotFor(quote.Listing.PriceUnit, start, end))
	metadata[domain.MetaPaymentPurpose] = domain.PurposeInitialBooking
	metadata[domain.MetaUserID] = strconv.Itoa(input.UserID)
	metadata[domain.MetaListingID] = strconv.Itoa(input.ListingID)
	metadata[domain.MetaPriceType] = string(quote.Listing.PriceUnit)

	intent, err := s.gateway.CreateIntent(ctx, quote.Amount, s.currencyOf(input.Currency), metadata)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking payment started",
		"intent_id", intent.ID,
		"listing_id", input.ListingID,
		"amount", quote.Amount.StringFixed(2),
	)

	return intent, nil
}

// StartUpdate holds the booking in pending_update and opens an intent for the price difference.
// The hold is released again when the intent cannot be created.
func (s *Service) StartUpdate(ctx context.Context, input UpdateIntentInput) (*domain.Intent, error) {
	pending, err := s.bookings.PrepareUpdate(ctx, input.BookingID, input.UserID, input.Slot, input.Additional)
	if err != nil {
		return nil, err
	}

	metadata := slotMetadata(booking.SlotFor(pending.Listing.PriceUnit, pending.Start, pending.End))
	metadata[domain.MetaPaymentPurpose] = domain.PurposeUpdateAdditional
	metadata[domain.MetaBookingID] = strconv.Itoa(pending.Booking.ID)
	metadata[domain.MetaUserID] = strconv.Itoa(input.UserID)
	metadata[domain.MetaListingID] = strconv.Itoa(pending.Listing.ID)

	intent, err := s.gateway.CreateIntent(ctx, pending.Additional, s.currencyOf(input.Currency), metadata)
	if err != nil {
		if releaseErr := s.bookings.ReleaseUpdateHold(ctx, pending.Booking.ID); releaseErr != nil {
			s.logger.Error("failed to release update hold", "booking_id", pending.Booking.ID, "error", releaseErr)
		}
		return nil, err
	}

	s.logger.Info("booking update payment started",
		"intent_id", intent.ID,
		"booking_id", pending.Booking.ID,
		"amount", pending.Additional.StringFixed(2),
	)

	return intent, nil
}

// History lists the ledger rows of a booking for its renter.
func (s *Service) History(ctx context.Context, bookingId, userId int) ([]domain.Payment, error) {
	b, err := s.store.Bookings().GetById(ctx, bookingId)
	if err != nil {
		return nil, err
	}

	if b.UserID != userId {
		return nil, domain.ErrRecordNotFound
	}

	return s.store.Payments().GetByBookingId(ctx, bookingId)
}

func (s *Service) currencyOf(requested string) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested == "" {
		return s.currency
	}

	return requested
}

func slotMetadata(slot booking.SlotRequest) map[string]string {
	metadata := map[string]string{
		domain.MetaStartDate: slot.StartDate,
		domain.MetaEndDate:   slot.EndDate,
	}

	if slot.StartTime != "" {
		metadata[domain.MetaStartTime] = slot.StartTime
		metadata[domain.MetaEndTime] = slot.EndTime
	}

	return metadata
}
