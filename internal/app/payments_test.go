package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/api"
	"github.com/spacehub/rental-api/internal/domain"
	"github.com/spacehub/rental-api/internal/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

func amountOf(v int64) any {
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(v))
	})
}

type PaymentsTestSuite struct {
	suite.Suite
	app     *Application
	deps    *testDeps
	listing *domain.Listing
}

func (s *PaymentsTestSuite) SetupTest() {
	s.app, s.deps = newTestApplication()

	open := domain.TimeOfDay(8 * time.Hour)
	closing := domain.TimeOfDay(20 * time.Hour)
	s.listing = &domain.Listing{
		ID:                 7,
		OwnerID:            2,
		Title:              "Loft studio",
		Price:              decimal.NewFromInt(10),
		PriceUnit:          domain.PriceUnitHour,
		AvailableStartTime: &open,
		AvailableEndTime:   &closing,
	}
}

func TestPaymentsSuite(t *testing.T) {
	suite.Run(t, new(PaymentsTestSuite))
}

func (s *PaymentsTestSuite) booking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:            5,
		UserID:        1,
		ListingID:     7,
		Start:         slot(1, 9),
		End:           slot(1, 11),
		TotalPrice:    decimal.NewFromInt(20),
		Status:        status,
		PaymentStatus: domain.BookingPaymentPaid,
	}
}

func (s *PaymentsTestSuite) paidPayment() domain.RefundablePayment {
	return domain.RefundablePayment{
		Payment: domain.Payment{
			ID:              11,
			UserID:          1,
			BookingID:       5,
			StripePaymentId: "pi_1",
			Amount:          decimal.NewFromInt(20),
			Currency:        "usd",
			Status:          domain.PaymentStatusSucceeded,
			Type:            domain.PaymentTypePayment,
		},
		Refunded: decimal.Zero,
	}
}

func (s *PaymentsTestSuite) TestCreatePaymentIntent() {
	body := func(amount int) map[string]any {
		return map[string]any{
			"amount":     amount,
			"listing_id": 7,
			"priceType":  "hour",
			"startDate":  "2030-06-01",
			"startTime":  "09:00",
			"endTime":    "11:00",
		}
	}

	tests := []struct {
		name         string
		body         map[string]any
		setupMock    func()
		wantStatus   int
		wantContains string
	}{
		{
			name:         "zero amount rejected by the schema",
			body:         body(0),
			wantStatus:   http.StatusBadRequest,
			wantContains: "amount",
		},
		{
			name: "amount differs from the quote",
			body: body(25),
			setupMock: func() {
				s.deps.store.ListingRepo.On("GetById", mock.Anything, 7).Return(s.listing, nil)
				s.deps.store.BookingRepo.On("GetBlocking", mock.Anything, 7, slot(1, 9), slot(1, 11)).
					Return([]domain.Booking{}, nil)
			},
			wantStatus:   http.StatusBadRequest,
			wantContains: "expected 20.00",
		},
		{
			name: "slot already taken",
			body: body(20),
			setupMock: func() {
				s.deps.store.ListingRepo.On("GetById", mock.Anything, 7).Return(s.listing, nil)
				s.deps.store.BookingRepo.On("GetBlocking", mock.Anything, 7, slot(1, 9), slot(1, 11)).
					Return([]domain.Booking{*s.booking(domain.BookingStatusActive)}, nil)
			},
			wantStatus:   http.StatusConflict,
			wantContains: domain.ErrBookingConflict.Error(),
		},
		{
			name: "opens an intent for the quoted amount",
			body: body(20),
			setupMock: func() {
				s.deps.store.ListingRepo.On("GetById", mock.Anything, 7).Return(s.listing, nil)
				s.deps.store.BookingRepo.On("GetBlocking", mock.Anything, 7, slot(1, 9), slot(1, 11)).
					Return([]domain.Booking{}, nil)
				s.deps.gateway.On("CreateIntent", mock.Anything, amountOf(20), "usd",
					mock.MatchedBy(func(meta map[string]string) bool {
						return meta[domain.MetaPaymentPurpose] == domain.PurposeInitialBooking &&
							meta[domain.MetaUserID] == "1" &&
							meta[domain.MetaListingID] == "7"
					})).
					Return(&domain.Intent{
						ID:           "pi_1",
						ClientSecret: "pi_1_secret",
						Amount:       decimal.NewFromInt(20),
						Currency:     "usd",
					}, nil)
			},
			wantStatus:   http.StatusOK,
			wantContains: `"clientSecret":"pi_1_secret"`,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			if tt.setupMock != nil {
				tt.setupMock()
			}

			w := executeRequest(s.T(), s.app, http.MethodPost, "/payments/create-payment-intent", 1, tt.body)

			s.Equal(tt.wantStatus, w.Code, w.Body.String())
			s.Contains(w.Body.String(), tt.wantContains)
			s.Equal([]string{"1"}, s.deps.limiter.calls)
		})
	}
}

func (s *PaymentsTestSuite) TestPaymentRoutesAreRateLimited() {
	s.deps.limiter.denied = true
	s.deps.limiter.retryAfter = 30 * time.Second

	w := executeRequest(s.T(), s.app, http.MethodPost, "/payments/refund/5", 1, nil)

	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("30", w.Header().Get("Retry-After"))
	checkErrorResponse(s.T(), w, http.StatusTooManyRequests, ErrRateLimitExceeded)
}

func (s *PaymentsTestSuite) TestRateLimiterFailureLetsRequestsThrough() {
	s.deps.limiter.err = errors.New("redis down")

	w := executeRequest(s.T(), s.app, http.MethodPost, "/payments/create-payment-intent", 1, map[string]any{})

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *PaymentsTestSuite) TestUpdatePaymentIntent() {
	tests := []struct {
		name         string
		additional   int
		status       domain.BookingStatus
		wantStatus   int
		wantContains string
		wantIntent   bool
	}{
		{
			name:         "booking not active",
			additional:   10,
			status:       domain.BookingStatusCancelled,
			wantStatus:   http.StatusNotFound,
			wantContains: domain.ErrBookingNotActive.Error(),
		},
		{
			name:         "wrong additional amount",
			additional:   5,
			status:       domain.BookingStatusActive,
			wantStatus:   http.StatusBadRequest,
			wantContains: "expected additional amount 10.00",
		},
		{
			name:       "holds the booking and opens an intent",
			additional: 10,
			status:     domain.BookingStatusActive,
			wantStatus: http.StatusOK,
			wantIntent: true,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			b := s.booking(tt.status)
			s.deps.store.BookingRepo.On("GetById", mock.Anything, 5).Return(b, nil)
			s.deps.store.ListingRepo.On("GetByIdForUpdate", mock.Anything, 7).Return(s.listing, nil)
			s.deps.store.BookingRepo.On("GetByIdForUpdate", mock.Anything, 5, 1).Return(b, nil)
			s.deps.store.BookingRepo.On("GetBlocking", mock.Anything, 7, slot(1, 9), slot(1, 12)).
				Return([]domain.Booking{*b}, nil)
			s.deps.store.BookingRepo.On("UpdateStatus", mock.Anything, 5,
				[]domain.BookingStatus{domain.BookingStatusActive}, domain.BookingStatusPendingUpdate).Return(nil)
			s.deps.gateway.On("CreateIntent", mock.Anything, amountOf(10), "usd", mock.Anything).
				Return(&domain.Intent{ID: "pi_2", ClientSecret: "pi_2_secret", Amount: decimal.NewFromInt(10), Currency: "usd"}, nil)

			w := executeRequest(s.T(), s.app, http.MethodPost, "/payments/update-payment-intent", 1, map[string]any{
				"bookingId":        5,
				"additionalAmount": tt.additional,
				"startDate":        "2030-06-01",
				"startTime":        "09:00",
				"endTime":          "12:00",
			})

			s.Equal(tt.wantStatus, w.Code, w.Body.String())

			if !tt.wantIntent {
				s.Contains(w.Body.String(), tt.wantContains)
				s.deps.gateway.AssertNotCalled(s.T(), "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}

			var resp api.PaymentIntentResponse
			s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
			s.Equal("pi_2", resp.PaymentIntentId)
			s.Equal("10.00", resp.Amount)
		})
	}
}

func (s *PaymentsTestSuite) TestHandleStripeWebhook() {
	payload := []byte(`{"id":"evt_1","type":"customer.created"}`)

	tests := []struct {
		name         string
		signature    string
		setupMock    func()
		wantStatus   int
		wantContains string
	}{
		{
			name:         "missing signature header",
			wantStatus:   http.StatusBadRequest,
			wantContains: "stripe-signature",
		},
		{
			name:      "invalid signature",
			signature: "t=1,v1=bad",
			setupMock: func() {
				s.deps.gateway.On("ParseWebhook", payload, "t=1,v1=bad").
					Return(nil, fmt.Errorf("%w: no valid signature", domain.ErrInvalidSignature))
			},
			wantStatus:   http.StatusBadRequest,
			wantContains: "invalid webhook signature",
		},
		{
			name:      "payload without intent",
			signature: "t=1,v1=good",
			setupMock: func() {
				s.deps.gateway.On("ParseWebhook", payload, "t=1,v1=good").
					Return(&domain.GatewayEvent{ID: "evt_1", Type: domain.EventPaymentIntentSucceeded}, nil)
			},
			wantStatus:   http.StatusBadRequest,
			wantContains: domain.ErrInvalidEventPayload.Error(),
		},
		{
			name:      "unhandled event type is acknowledged",
			signature: "t=1,v1=good",
			setupMock: func() {
				s.deps.gateway.On("ParseWebhook", payload, "t=1,v1=good").
					Return(&domain.GatewayEvent{ID: "evt_1", Type: "customer.created"}, nil)
			},
			wantStatus:   http.StatusOK,
			wantContains: `"received":true`,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			if tt.setupMock != nil {
				tt.setupMock()
			}

			r := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(payload))
			if tt.signature != "" {
				r.Header.Set("Stripe-Signature", tt.signature)
			}
			w := httptest.NewRecorder()

			s.app.Routes().ServeHTTP(w, r)

			s.Equal(tt.wantStatus, w.Code, w.Body.String())
			s.Contains(w.Body.String(), tt.wantContains)
			s.Empty(s.deps.limiter.calls)
		})
	}
}

func (s *PaymentsTestSuite) TestRefundBooking() {
	tests := []struct {
		name         string
		status       domain.BookingStatus
		refundStatus domain.PaymentStatus
		wantStatus   int
		wantMessage  string
		wantBooking  string
	}{
		{
			name:        "already cancelled",
			status:      domain.BookingStatusCancelled,
			wantStatus:  http.StatusConflict,
			wantMessage: domain.ErrAlreadyCancelled.Error(),
		},
		{
			name:        "cancellation already running",
			status:      domain.BookingStatusPendingCancellation,
			wantStatus:  http.StatusConflict,
			wantMessage: domain.ErrAlreadyInProgress.Error(),
		},
		{
			name:         "settled refund cancels the booking",
			status:       domain.BookingStatusActive,
			refundStatus: domain.PaymentStatusSucceeded,
			wantStatus:   http.StatusOK,
			wantBooking:  string(domain.BookingStatusCancelled),
		},
		{
			name:         "pending refund leaves the cancellation open",
			status:       domain.BookingStatusActive,
			refundStatus: domain.PaymentStatusPending,
			wantStatus:   http.StatusOK,
			wantBooking:  string(domain.BookingStatusPendingCancellation),
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			s.deps.store.BookingRepo.On("GetByIdForUpdate", mock.Anything, 5, 1).Return(s.booking(tt.status), nil)
			s.deps.store.PaymentRepo.On("GetRefundable", mock.Anything, 5).
				Return([]domain.RefundablePayment{s.paidPayment()}, nil)
			s.deps.store.BookingRepo.On("UpdateStatus", mock.Anything, 5,
				[]domain.BookingStatus{domain.BookingStatusActive}, domain.BookingStatusPendingCancellation).Return(nil)
			s.deps.gateway.On("GetRefundableAmount", mock.Anything, "pi_1").
				Return(&domain.RefundableAmount{AmountRefundable: decimal.NewFromInt(20)}, nil)
			s.deps.gateway.On("CreateRefund", mock.Anything, "pi_1", amountOf(20), mock.Anything).
				Return(&domain.Refund{ID: "re_1", PaymentIntentID: "pi_1", Status: tt.refundStatus}, nil)
			s.deps.store.PaymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Payment")).Return(nil)
			s.deps.store.NotificationRepo.On("CancelForBooking", mock.Anything, 5).Return(nil)
			s.deps.store.BookingRepo.On("MarkCancelled", mock.Anything, 5, mock.Anything, amountOf(20)).Return(nil)

			w := executeRequest(s.T(), s.app, http.MethodPost, "/payments/refund/5", 1, nil)

			if tt.wantBooking == "" {
				checkErrorResponse(s.T(), w, tt.wantStatus, tt.wantMessage)
				return
			}

			s.Equal(tt.wantStatus, w.Code, w.Body.String())

			var resp api.FullRefundResponse
			s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
			s.Equal("20.00", resp.TotalRefundAmount)
			s.Equal([]string{"re_1"}, resp.RefundIds)
			s.Equal(tt.wantBooking, resp.Status)
			s.Equal([]domain.NotificationKind{domain.NotificationRefundProcessed}, s.deps.notifier.Kinds())
		})
	}
}

func (s *PaymentsTestSuite) TestPartialRefund() {
	tests := []struct {
		name         string
		body         map[string]any
		setupMock    func()
		wantStatus   int
		wantMessage  string
		wantRefunded string
	}{
		{
			name: "new end date without new start date",
			body: map[string]any{
				"bookingId": 5, "refundAmount": 5, "newEndDate": slot(1, 10).Format(time.RFC3339),
			},
			wantStatus:  http.StatusBadRequest,
			wantMessage: fmt.Sprintf(validator.ErrRequiredWith, "NewEndDate"),
		},
		{
			name: "more than the payment allows",
			body: map[string]any{"bookingId": 5, "refundAmount": 25},
			setupMock: func() {
				payment := s.paidPayment()
				s.deps.store.BookingRepo.On("GetByIdForUpdate", mock.Anything, 5, 1).
					Return(s.booking(domain.BookingStatusActive), nil)
				s.deps.store.PaymentRepo.On("GetLatestUnrefunded", mock.Anything, 5).Return(&payment, nil)
				s.deps.gateway.On("GetRefundableAmount", mock.Anything, "pi_1").
					Return(&domain.RefundableAmount{AmountRefundable: decimal.NewFromInt(20)}, nil)
			},
			wantStatus:  http.StatusBadRequest,
			wantMessage: domain.ErrExceedsRefundable.Error() + ": at most 20.00 can be refunded",
		},
		{
			name: "refunds part of the latest payment",
			body: map[string]any{"bookingId": 5, "refundAmount": 5},
			setupMock: func() {
				payment := s.paidPayment()
				s.deps.store.BookingRepo.On("GetByIdForUpdate", mock.Anything, 5, 1).
					Return(s.booking(domain.BookingStatusActive), nil)
				s.deps.store.PaymentRepo.On("GetLatestUnrefunded", mock.Anything, 5).Return(&payment, nil)
				s.deps.gateway.On("GetRefundableAmount", mock.Anything, "pi_1").
					Return(&domain.RefundableAmount{AmountRefundable: decimal.NewFromInt(20)}, nil)
				s.deps.gateway.On("CreateRefund", mock.Anything, "pi_1", amountOf(5), mock.Anything).
					Return(&domain.Refund{ID: "re_2", PaymentIntentID: "pi_1", Status: domain.PaymentStatusSucceeded}, nil)
				s.deps.store.PaymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Payment")).Return(nil)
				s.deps.store.BookingRepo.On("AddRefundAmount", mock.Anything, 5, amountOf(5)).Return(nil)
			},
			wantStatus:   http.StatusOK,
			wantRefunded: "5.00",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			if tt.setupMock != nil {
				tt.setupMock()
			}

			w := executeRequest(s.T(), s.app, http.MethodPost, "/payments/partial-refund", 1, tt.body)

			if tt.wantRefunded == "" {
				checkErrorResponse(s.T(), w, tt.wantStatus, tt.wantMessage)
				return
			}

			s.Equal(tt.wantStatus, w.Code, w.Body.String())

			var resp api.PartialRefundResponse
			s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
			s.Equal("re_2", resp.RefundId)
			s.Equal(tt.wantRefunded, resp.RefundAmount)
			s.Require().NotNil(resp.Booking.RefundAmount)
			s.Equal(tt.wantRefunded, *resp.Booking.RefundAmount)
		})
	}
}

func (s *PaymentsTestSuite) TestGetBookingPayments() {
	b := s.booking(domain.BookingStatusActive)
	s.deps.store.BookingRepo.On("GetById", mock.Anything, 5).Return(b, nil)
	s.deps.store.PaymentRepo.On("GetByBookingId", mock.Anything, 5).
		Return([]domain.Payment{s.paidPayment().Payment}, nil)

	w := executeRequest(s.T(), s.app, http.MethodGet, "/payments/booking/5", 1, nil)
	s.Equal(http.StatusOK, w.Code)

	var resp api.PaymentHistoryResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Require().Len(resp.Payments, 1)
	s.Equal("20.00", resp.Payments[0].Amount)
	s.Equal(string(domain.PaymentTypePayment), resp.Payments[0].PaymentType)

	w = executeRequest(s.T(), s.app, http.MethodGet, "/payments/booking/5", 3, nil)
	s.Equal(http.StatusNotFound, w.Code)
}
