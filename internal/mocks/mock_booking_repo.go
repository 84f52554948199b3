package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
	domain.BookingRepository
}

func (m *MockBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepo) GetById(ctx context.Context, id int) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetByIdForUpdate(ctx context.Context, id, userId int) (*domain.Booking, error) {
	args := m.Called(ctx, id, userId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetByUserId(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error) {

	args := m.Called(ctx, userId, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.Booking), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockBookingRepo) GetByListingId(ctx context.Context, listingId int) ([]domain.Booking, error) {
	args := m.Called(ctx, listingId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetBlocking(
	ctx context.Context,
	listingId int,
	start, end time.Time) ([]domain.Booking, error) {

	args := m.Called(ctx, listingId, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) UpdateSlot(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepo) UpdateStatus(
	ctx context.Context,
	id int,
	from []domain.BookingStatus,
	to domain.BookingStatus) error {

	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockBookingRepo) UpdatePaymentStatus(ctx context.Context, id int, status domain.BookingPaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockBookingRepo) MarkCancelled(
	ctx context.Context,
	id int,
	cancelledAt time.Time,
	refunded decimal.Decimal) error {

	args := m.Called(ctx, id, cancelledAt, refunded)
	return args.Error(0)
}

func (m *MockBookingRepo) AddRefundAmount(ctx context.Context, id int, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockBookingRepo) CompleteElapsed(ctx context.Context, userId int, now time.Time) (int64, error) {
	args := m.Called(ctx, userId, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepo) ReleaseUpdateHolds(ctx context.Context, heldBefore time.Time) (int64, error) {
	args := m.Called(ctx, heldBefore)
	return args.Get(0).(int64), args.Error(1)
}
