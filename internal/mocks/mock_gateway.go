package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
	domain.PaymentGateway
}

func (m *MockGateway) CreateIntent(
	ctx context.Context,
	amount decimal.Decimal,
	currency string,
	metadata map[string]string) (*domain.Intent, error) {

	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Intent), args.Error(1)
}

func (m *MockGateway) RetrieveIntent(ctx context.Context, id string) (*domain.Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Intent), args.Error(1)
}

func (m *MockGateway) CreateRefund(
	ctx context.Context,
	intentId string,
	amount decimal.Decimal,
	metadata map[string]string) (*domain.Refund, error) {

	args := m.Called(ctx, intentId, amount, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Refund), args.Error(1)
}

func (m *MockGateway) GetRefundableAmount(ctx context.Context, intentId string) (*domain.RefundableAmount, error) {
	args := m.Called(ctx, intentId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefundableAmount), args.Error(1)
}

func (m *MockGateway) LatestRefund(ctx context.Context, intentId string) (*domain.Refund, error) {
	args := m.Called(ctx, intentId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Refund), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*domain.GatewayEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GatewayEvent), args.Error(1)
}
