package booking_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/booking"
	"github.com/spacehub/rental-api/internal/domain"
	"github.com/spacehub/rental-api/internal/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var now = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

func day(d, hour int) time.Time {
	return time.Date(2030, 6, d, hour, 0, 0, 0, time.UTC)
}

type ManagerTestSuite struct {
	suite.Suite
	store    *mocks.MockStore
	notifier *mocks.MockNotifier
	manager  *booking.Manager
	listing  *domain.Listing
}

func (s *ManagerTestSuite) SetupTest() {
	s.store = mocks.NewMockStore()
	s.notifier = new(mocks.MockNotifier)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.manager = booking.NewManager(s.store, s.notifier, logger).WithClock(func() time.Time { return now })

	start := domain.TimeOfDay(8 * time.Hour)
	end := domain.TimeOfDay(20 * time.Hour)
	s.listing = &domain.Listing{
		ID:                 7,
		OwnerID:            2,
		Title:              "Loft studio",
		Price:              decimal.NewFromInt(10),
		PriceUnit:          domain.PriceUnitHour,
		AvailableStartTime: &start,
		AvailableEndTime:   &end,
	}
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func (s *ManagerTestSuite) TestCreate() {
	tests := []struct {
		name          string
		input         booking.CreateInput
		setupMock     func()
		wantErr       error
		wantTotal     string
		wantNotified  []domain.NotificationKind
		wantRollbacks int
	}{
		{
			name: "creates booking with computed price",
			input: booking.CreateInput{
				UserID: 1, ListingID: 7, Start: day(1, 9), End: day(1, 11), PriceUnit: domain.PriceUnitHour,
			},
			setupMock: func() {
				s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
				s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, day(1, 9), day(1, 11)).
					Return([]domain.Booking{}, nil)
				s.store.BookingRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Booking")).
					Run(func(args mock.Arguments) { args.Get(1).(*domain.Booking).ID = 42 }).
					Return(nil)
				s.store.NotificationRepo.On("Schedule", mock.Anything, mock.MatchedBy(
					func(n []domain.ScheduledNotification) bool {
						return len(n) == 2 && n[0].BookingID == 42
					})).Return(nil)
			},
			wantTotal:    "20",
			wantNotified: []domain.NotificationKind{domain.NotificationBookingConfirmed, domain.NotificationBookingNewForHost},
		},
		{
			name: "reminder failure keeps the booking",
			input: booking.CreateInput{
				UserID: 1, ListingID: 7, Start: day(1, 9), End: day(1, 11), Total: decimal.NewFromInt(20),
			},
			setupMock: func() {
				s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
				s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, mock.Anything, mock.Anything).
					Return([]domain.Booking{}, nil)
				s.store.BookingRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
				s.store.NotificationRepo.On("Schedule", mock.Anything, mock.Anything).
					Return(errors.New("db error"))
			},
			wantTotal:    "20",
			wantNotified: []domain.NotificationKind{domain.NotificationBookingConfirmed, domain.NotificationBookingNewForHost},
		},
		{
			name: "overlapping booking",
			input: booking.CreateInput{
				UserID: 1, ListingID: 7, Start: day(1, 10), End: day(1, 12),
			},
			setupMock: func() {
				s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
				s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, day(1, 10), day(1, 12)).
					Return([]domain.Booking{
						{ID: 3, Start: day(1, 9), End: day(1, 11), Status: domain.BookingStatusActive},
					}, nil)
			},
			wantErr:       domain.ErrBookingConflict,
			wantRollbacks: 1,
		},
		{
			name: "owner books own listing",
			input: booking.CreateInput{
				UserID: 2, ListingID: 7, Start: day(1, 9), End: day(1, 11),
			},
			setupMock: func() {
				s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
			},
			wantErr:       domain.ErrOwnListing,
			wantRollbacks: 1,
		},
		{
			name: "price type mismatch",
			input: booking.CreateInput{
				UserID: 1, ListingID: 7, Start: day(1, 9), End: day(1, 11), PriceUnit: domain.PriceUnitDay,
			},
			setupMock: func() {
				s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
			},
			wantErr:       domain.ErrPriceUnitMismatch,
			wantRollbacks: 1,
		},
		{
			name: "outside availability window",
			input: booking.CreateInput{
				UserID: 1, ListingID: 7, Start: day(1, 19), End: day(1, 21),
			},
			setupMock: func() {
				s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
			},
			wantErr:       domain.ErrOutsideAvailability,
			wantRollbacks: 1,
		},
		{
			name: "submitted total differs",
			input: booking.CreateInput{
				UserID: 1, ListingID: 7, Start: day(1, 9), End: day(1, 11), Total: decimal.NewFromInt(15),
			},
			setupMock: func() {
				s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
				s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, mock.Anything, mock.Anything).
					Return([]domain.Booking{}, nil)
			},
			wantErr:       domain.ErrPriceMismatch,
			wantRollbacks: 1,
		},
		{
			name: "end before start",
			input: booking.CreateInput{
				UserID: 1, ListingID: 7, Start: day(1, 11), End: day(1, 9),
			},
			setupMock:     func() {},
			wantErr:       domain.ErrInvalidTimeRange,
			wantRollbacks: 1,
		},
		{
			name: "listing not found",
			input: booking.CreateInput{
				UserID: 1, ListingID: 99, Start: day(1, 9), End: day(1, 11),
			},
			setupMock: func() {
				s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 99).Return(nil, domain.ErrRecordNotFound)
			},
			wantErr:       domain.ErrRecordNotFound,
			wantRollbacks: 1,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			tt.setupMock()

			got, err := s.manager.Create(context.Background(), tt.input)

			s.Equal(tt.wantRollbacks, s.store.Rollbacks)

			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
				s.Empty(s.notifier.Sent())
				return
			}

			s.Require().NoError(err)
			s.True(got.TotalPrice.Equal(decimal.RequireFromString(tt.wantTotal)))
			s.Equal(domain.BookingStatusActive, got.Status)
			s.Equal(domain.BookingPaymentPending, got.PaymentStatus)
			s.Equal(tt.wantNotified, s.notifier.Kinds())
			s.Equal(1, s.store.Commits)
			s.store.BookingRepo.AssertExpectations(s.T())
		})
	}
}

func (s *ManagerTestSuite) TestUpdateRecomputesPrice() {
	existing := &domain.Booking{
		ID: 42, UserID: 1, ListingID: 7, Start: day(1, 9), End: day(1, 11),
		TotalPrice: decimal.NewFromInt(20), Status: domain.BookingStatusActive,
	}

	s.store.BookingRepo.On("GetById", mock.Anything, 42).Return(existing, nil)
	s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
	s.store.BookingRepo.On("GetByIdForUpdate", mock.Anything, 42, 1).Return(existing, nil)
	s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, day(1, 9), day(1, 14)).
		Return([]domain.Booking{*existing}, nil)
	s.store.BookingRepo.On("UpdateSlot", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.TotalPrice.Equal(decimal.NewFromInt(50)) && b.End.Equal(day(1, 14))
	})).Return(nil)
	s.store.NotificationRepo.On("CancelForBooking", mock.Anything, 42).Return(nil)
	s.store.NotificationRepo.On("Schedule", mock.Anything, mock.Anything).Return(nil)

	got, err := s.manager.Update(context.Background(), 42, 1, day(1, 9), day(1, 14))

	s.Require().NoError(err)
	s.True(got.TotalPrice.Equal(decimal.NewFromInt(50)))
	s.Equal([]domain.NotificationKind{
		domain.NotificationBookingModified,
		domain.NotificationBookingModified,
	}, s.notifier.Kinds())
	s.store.BookingRepo.AssertExpectations(s.T())
	s.store.NotificationRepo.AssertExpectations(s.T())
}

func (s *ManagerTestSuite) TestUpdateErrors() {
	tests := []struct {
		name     string
		status   domain.BookingStatus
		owner    int
		blocking []domain.Booking
		start    time.Time
		end      time.Time
		wantErr  error
	}{
		{
			name:    "other user's booking",
			status:  domain.BookingStatusActive,
			owner:   5,
			start:   day(1, 9),
			end:     day(1, 12),
			wantErr: domain.ErrRecordNotFound,
		},
		{
			name:    "cancelled booking",
			status:  domain.BookingStatusCancelled,
			owner:   1,
			start:   day(1, 9),
			end:     day(1, 12),
			wantErr: domain.ErrBookingNotActive,
		},
		{
			name:   "overlaps another booking",
			status: domain.BookingStatusActive,
			owner:  1,
			blocking: []domain.Booking{
				{ID: 43, Start: day(1, 12), End: day(1, 13), Status: domain.BookingStatusActive},
			},
			start:   day(1, 9),
			end:     day(1, 13),
			wantErr: domain.ErrBookingConflict,
		},
		{
			name:    "inverted range",
			status:  domain.BookingStatusActive,
			owner:   1,
			start:   day(1, 12),
			end:     day(1, 9),
			wantErr: domain.ErrInvalidTimeRange,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			existing := &domain.Booking{
				ID: 42, UserID: tt.owner, ListingID: 7, Start: day(1, 9), End: day(1, 11),
				TotalPrice: decimal.NewFromInt(20), Status: tt.status,
			}
			s.store.BookingRepo.On("GetById", mock.Anything, 42).Return(existing, nil)
			s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
			s.store.BookingRepo.On("GetByIdForUpdate", mock.Anything, 42, 1).Return(existing, nil)
			s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, mock.Anything, mock.Anything).
				Return(tt.blocking, nil)

			_, err := s.manager.Update(context.Background(), 42, 1, tt.start, tt.end)

			s.ErrorIs(err, tt.wantErr)
			s.store.BookingRepo.AssertNotCalled(s.T(), "UpdateSlot", mock.Anything, mock.Anything)
			s.Empty(s.notifier.Sent())
		})
	}
}

func (s *ManagerTestSuite) TestCancel() {
	tests := []struct {
		name      string
		status    domain.BookingStatus
		setupMock func()
		wantErr   error
	}{
		{
			name:   "cancels active booking",
			status: domain.BookingStatusActive,
			setupMock: func() {
				s.store.BookingRepo.On("MarkCancelled", mock.Anything, 42, now, decimal.Zero).Return(nil)
				s.store.NotificationRepo.On("CancelForBooking", mock.Anything, 42).Return(nil)
				s.store.ListingRepo.On("GetById", mock.Anything, 7).Return(s.listing, nil)
			},
		},
		{
			name:      "already cancelled",
			status:    domain.BookingStatusCancelled,
			setupMock: func() {},
			wantErr:   domain.ErrAlreadyCancelled,
		},
		{
			name:      "cancellation in progress",
			status:    domain.BookingStatusPendingCancellation,
			setupMock: func() {},
			wantErr:   domain.ErrAlreadyInProgress,
		},
		{
			name:      "completed booking",
			status:    domain.BookingStatusCompleted,
			setupMock: func() {},
			wantErr:   domain.ErrBookingNotActive,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			existing := &domain.Booking{
				ID: 42, UserID: 1, ListingID: 7, Start: day(1, 9), End: day(1, 11),
				TotalPrice: decimal.NewFromInt(20), Status: tt.status,
			}
			s.store.BookingRepo.On("GetByIdForUpdate", mock.Anything, 42, 1).Return(existing, nil)
			tt.setupMock()

			got, err := s.manager.Cancel(context.Background(), 42, 1)

			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
				s.Equal(1, s.store.Rollbacks)
				return
			}

			s.Require().NoError(err)
			s.Equal(domain.BookingStatusCancelled, got.Status)
			s.Equal(now, *got.CancelledAt)
			s.Equal([]domain.NotificationKind{
				domain.NotificationBookingCancelled,
				domain.NotificationBookingCancelled,
			}, s.notifier.Kinds())
			s.store.NotificationRepo.AssertExpectations(s.T())
		})
	}
}

func (s *ManagerTestSuite) TestGetByID() {
	existing := &domain.Booking{ID: 42, UserID: 1, ListingID: 7}
	s.store.BookingRepo.On("GetById", mock.Anything, 42).Return(existing, nil)
	s.store.ListingRepo.On("GetById", mock.Anything, 7).Return(s.listing, nil)

	got, err := s.manager.GetByID(context.Background(), 42, 1)
	s.NoError(err)
	s.Equal(existing, got)

	got, err = s.manager.GetByID(context.Background(), 42, 2)
	s.NoError(err)
	s.Equal(existing, got)

	_, err = s.manager.GetByID(context.Background(), 42, 9)
	s.ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *ManagerTestSuite) TestGetForUserCompletesElapsedFirst() {
	pagination := domain.Pagination{Page: 1, PageSize: 10}
	bookings := []domain.Booking{{ID: 1}, {ID: 2}}
	metadata := domain.NewMetadata(2, 1, 10)

	s.store.BookingRepo.On("CompleteElapsed", mock.Anything, 1, now).Return(int64(1), nil).Once()
	s.store.BookingRepo.On("GetByUserId", mock.Anything, 1, pagination).Return(bookings, metadata, nil).Once()

	got, gotMetadata, err := s.manager.GetForUser(context.Background(), 1, pagination)

	s.NoError(err)
	s.Equal(bookings, got)
	s.Equal(metadata, gotMetadata)
	s.store.BookingRepo.AssertExpectations(s.T())
}

func (s *ManagerTestSuite) TestGetForListingRequiresOwner() {
	s.store.ListingRepo.On("GetById", mock.Anything, 7).Return(s.listing, nil)
	s.store.BookingRepo.On("GetByListingId", mock.Anything, 7).Return([]domain.Booking{{ID: 1}}, nil)

	_, err := s.manager.GetForListing(context.Background(), 7, 1)
	s.ErrorIs(err, domain.ErrRecordNotFound)

	got, err := s.manager.GetForListing(context.Background(), 7, 2)
	s.NoError(err)
	s.Len(got, 1)
}

func (s *ManagerTestSuite) TestPrepareUpdate() {
	tests := []struct {
		name       string
		additional string
		wantErr    error
	}{
		{name: "holds booking until charge settles", additional: "30"},
		{name: "additional amount differs", additional: "25", wantErr: domain.ErrPriceMismatch},
		{name: "non positive additional amount", additional: "0", wantErr: domain.ErrInvalidAmount},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			existing := &domain.Booking{
				ID: 42, UserID: 1, ListingID: 7, Start: day(1, 9), End: day(1, 11),
				TotalPrice: decimal.NewFromInt(20), Status: domain.BookingStatusActive,
			}
			s.store.BookingRepo.On("GetById", mock.Anything, 42).Return(existing, nil)
			s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
			s.store.BookingRepo.On("GetByIdForUpdate", mock.Anything, 42, 1).Return(existing, nil)
			s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, mock.Anything, mock.Anything).
				Return([]domain.Booking{}, nil)
			s.store.BookingRepo.On("UpdateStatus", mock.Anything, 42,
				[]domain.BookingStatus{domain.BookingStatusActive}, domain.BookingStatusPendingUpdate).Return(nil)

			slot := booking.SlotRequest{StartDate: "2030-06-01", StartTime: "09:00", EndTime: "14:00"}

			pending, err := s.manager.PrepareUpdate(context.Background(), 42, 1, slot,
				decimal.RequireFromString(tt.additional))

			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
				return
			}

			s.Require().NoError(err)
			s.True(pending.NewTotal.Equal(decimal.NewFromInt(50)))
			s.Equal(domain.BookingStatusPendingUpdate, pending.Booking.Status)
			s.store.BookingRepo.AssertExpectations(s.T())
		})
	}
}

func (s *ManagerTestSuite) TestReleaseUpdateHoldIgnoresSettledBooking() {
	s.store.BookingRepo.On("UpdateStatus", mock.Anything, 42,
		[]domain.BookingStatus{domain.BookingStatusPendingUpdate}, domain.BookingStatusActive).
		Return(domain.ErrEditConflict)

	s.NoError(s.manager.ReleaseUpdateHold(context.Background(), 42))
}

func (s *ManagerTestSuite) TestQuote() {
	s.store.ListingRepo.On("GetById", mock.Anything, 7).Return(s.listing, nil)
	s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, day(1, 9), day(1, 11)).
		Return([]domain.Booking{}, nil)

	quote, err := s.manager.Quote(context.Background(), 1, 7, domain.PriceUnitHour, day(1, 9), day(1, 11))

	s.Require().NoError(err)
	s.True(quote.Amount.Equal(decimal.NewFromInt(20)))

	_, err = s.manager.Quote(context.Background(), 2, 7, domain.PriceUnitHour, day(1, 9), day(1, 11))
	s.ErrorIs(err, domain.ErrOwnListing)
}

func (s *ManagerTestSuite) TestCompleteElapsedSweepsAllUsers() {
	s.store.BookingRepo.On("CompleteElapsed", mock.Anything, 0, now).Return(int64(3), nil)

	n, err := s.manager.CompleteElapsed(context.Background())

	s.NoError(err)
	s.Equal(int64(3), n)
}

func (s *ManagerTestSuite) TestReleaseStaleHolds() {
	s.store.BookingRepo.On("ReleaseUpdateHolds", mock.Anything, now.Add(-booking.UpdateHoldTTL)).Return(int64(2), nil).Once()

	n, err := s.manager.ReleaseStaleHolds(context.Background())

	s.NoError(err)
	s.Equal(int64(2), n)
	s.store.BookingRepo.AssertExpectations(s.T())
}
