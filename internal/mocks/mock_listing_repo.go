package mocks

import (
	"context"

	"github.com/spacehub/rental-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockListingRepo struct {
	mock.Mock
	domain.ListingRepository
}

func (m *MockListingRepo) GetById(ctx context.Context, id int) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockListingRepo) GetByIdForUpdate(ctx context.Context, id int) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
