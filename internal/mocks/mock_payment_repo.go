package mocks

import (
	"context"

	"github.com/spacehub/rental-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetByBookingId(ctx context.Context, bookingId int) ([]domain.Payment, error) {
	args := m.Called(ctx, bookingId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetByExternalId(
	ctx context.Context,
	externalId string,
	types ...domain.PaymentType) (*domain.Payment, error) {

	args := m.Called(ctx, externalId, types)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) SettleRefund(
	ctx context.Context,
	refundId string,
	status domain.PaymentStatus) (bool, error) {

	args := m.Called(ctx, refundId, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) GetRefundable(ctx context.Context, bookingId int) ([]domain.RefundablePayment, error) {
	args := m.Called(ctx, bookingId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RefundablePayment), args.Error(1)
}

func (m *MockPaymentRepo) GetLatestUnrefunded(ctx context.Context, bookingId int) (*domain.RefundablePayment, error) {
	args := m.Called(ctx, bookingId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefundablePayment), args.Error(1)
}
