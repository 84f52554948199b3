package checkout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/booking"
	"github.com/spacehub/rental-api/internal/checkout"
	"github.com/spacehub/rental-api/internal/domain"
	"github.com/spacehub/rental-api/internal/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ServiceTestSuite struct {
	suite.Suite
	store   *mocks.MockStore
	gateway *mocks.MockGateway
	service *checkout.Service
	listing *domain.Listing
}

func (s *ServiceTestSuite) SetupTest() {
	s.store = mocks.NewMockStore()
	s.gateway = new(mocks.MockGateway)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := booking.NewManager(s.store, new(mocks.MockNotifier), logger)
	s.service = checkout.NewService(s.store, manager, s.gateway, "usd", logger)

	s.listing = &domain.Listing{
		ID:        7,
		OwnerID:   2,
		Title:     "Loft studio",
		Price:     decimal.NewFromInt(40),
		PriceUnit: domain.PriceUnitDay,
	}
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) TestStartBooking() {
	tests := []struct {
		name      string
		amount    string
		setupMock func()
		wantErr   error
	}{
		{
			name:   "opens intent for the quoted price",
			amount: "120",
			setupMock: func() {
				s.gateway.On("CreateIntent", mock.Anything,
					mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(120)) }),
					"usd",
					map[string]string{
						domain.MetaPaymentPurpose: domain.PurposeInitialBooking,
						domain.MetaUserID:         "1",
						domain.MetaListingID:      "7",
						domain.MetaPriceType:      "day",
						domain.MetaStartDate:      "2030-06-01",
						domain.MetaEndDate:        "2030-06-03",
					}).Return(&domain.Intent{ID: "pi_1", ClientSecret: "secret"}, nil)
			},
		},
		{
			name:      "client total differs",
			amount:    "80",
			setupMock: func() {},
			wantErr:   domain.ErrPriceMismatch,
		},
		{
			name:   "gateway failure",
			amount: "0",
			setupMock: func() {
				s.gateway.On("CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("stripe down"))
			},
			wantErr: errors.New("stripe down"),
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.store.ListingRepo.On("GetById", mock.Anything, 7).Return(s.listing, nil)
			s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, mock.Anything, mock.Anything).
				Return([]domain.Booking{}, nil)
			tt.setupMock()

			intent, err := s.service.StartBooking(context.Background(), checkout.BookingIntentInput{
				UserID:    1,
				ListingID: 7,
				PriceUnit: domain.PriceUnitDay,
				Slot:      booking.SlotRequest{StartDate: "2030-06-01", EndDate: "2030-06-03"},
				Amount:    decimal.RequireFromString(tt.amount),
			})

			if tt.wantErr != nil {
				s.ErrorContains(err, tt.wantErr.Error())
				return
			}

			s.Require().NoError(err)
			s.Equal("secret", intent.ClientSecret)
			s.gateway.AssertExpectations(s.T())
		})
	}
}

func (s *ServiceTestSuite) TestStartUpdateReleasesHoldOnGatewayFailure() {
	existing := &domain.Booking{
		ID:         42,
		UserID:     1,
		ListingID:  7,
		Start:      time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2030, 6, 1, 23, 59, 59, 0, time.UTC),
		TotalPrice: decimal.NewFromInt(40),
		Status:     domain.BookingStatusActive,
	}

	s.store.BookingRepo.On("GetById", mock.Anything, 42).Return(existing, nil)
	s.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
	s.store.BookingRepo.On("GetByIdForUpdate", mock.Anything, 42, 1).Return(existing, nil)
	s.store.BookingRepo.On("GetBlocking", mock.Anything, 7, mock.Anything, mock.Anything).
		Return([]domain.Booking{}, nil)
	s.store.BookingRepo.On("UpdateStatus", mock.Anything, 42,
		[]domain.BookingStatus{domain.BookingStatusActive}, domain.BookingStatusPendingUpdate).Return(nil)
	s.gateway.On("CreateIntent", mock.Anything, mock.Anything, "usd", mock.MatchedBy(func(m map[string]string) bool {
		return m[domain.MetaPaymentPurpose] == domain.PurposeUpdateAdditional && m[domain.MetaBookingID] == "42"
	})).Return(nil, errors.New("stripe down"))
	s.store.BookingRepo.On("UpdateStatus", mock.Anything, 42,
		[]domain.BookingStatus{domain.BookingStatusPendingUpdate}, domain.BookingStatusActive).Return(nil)

	_, err := s.service.StartUpdate(context.Background(), checkout.UpdateIntentInput{
		BookingID:  42,
		UserID:     1,
		Slot:       booking.SlotRequest{StartDate: "2030-06-01", EndDate: "2030-06-02"},
		Additional: decimal.NewFromInt(40),
	})

	s.EqualError(err, "stripe down")
	s.store.BookingRepo.AssertExpectations(s.T())
}

func (s *ServiceTestSuite) TestHistoryIsRenterOnly() {
	s.store.BookingRepo.On("GetById", mock.Anything, 42).Return(&domain.Booking{ID: 42, UserID: 1}, nil)
	s.store.PaymentRepo.On("GetByBookingId", mock.Anything, 42).Return([]domain.Payment{{ID: 10}}, nil)

	_, err := s.service.History(context.Background(), 42, 2)
	s.ErrorIs(err, domain.ErrRecordNotFound)

	payments, err := s.service.History(context.Background(), 42, 1)
	s.NoError(err)
	s.Len(payments, 1)
}
