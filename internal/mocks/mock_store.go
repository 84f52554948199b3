package mocks

import (
	"context"

	"github.com/spacehub/rental-api/internal/domain"
)

// MockStore hands out the mock repositories both outside and inside RunInTx, and counts how the
// transactions ended.
type MockStore struct {
	BookingRepo      *MockBookingRepo
	PaymentRepo      *MockPaymentRepo
	ListingRepo      *MockListingRepo
	UserRepo         *MockUserRepo
	NotificationRepo *MockNotificationRepo

	TxErr     error
	Commits   int
	Rollbacks int
}

func NewMockStore() *MockStore {
	return &MockStore{
		BookingRepo:      new(MockBookingRepo),
		PaymentRepo:      new(MockPaymentRepo),
		ListingRepo:      new(MockListingRepo),
		UserRepo:         new(MockUserRepo),
		NotificationRepo: new(MockNotificationRepo),
	}
}

func (m *MockStore) Bookings() domain.BookingRepository {
	return m.BookingRepo
}

func (m *MockStore) Payments() domain.PaymentRepository {
	return m.PaymentRepo
}

func (m *MockStore) Listings() domain.ListingRepository {
	return m.ListingRepo
}

func (m *MockStore) Users() domain.UserRepository {
	return m.UserRepo
}

func (m *MockStore) Notifications() domain.NotificationRepository {
	return m.NotificationRepo
}

func (m *MockStore) RunInTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	if m.TxErr != nil {
		return m.TxErr
	}

	err := fn(m)
	if err != nil {
		m.Rollbacks++
		return err
	}

	m.Commits++
	return nil
}
