package mocks

import (
	"context"
	"time"

	"github.com/spacehub/rental-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockNotificationRepo struct {
	mock.Mock
	domain.NotificationRepository
}

func (m *MockNotificationRepo) Create(ctx context.Context, notification *domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepo) Schedule(ctx context.Context, notifications []domain.ScheduledNotification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

func (m *MockNotificationRepo) ClaimDue(
	ctx context.Context,
	limit int,
	staleAfter time.Duration) ([]domain.ScheduledNotification, error) {

	args := m.Called(ctx, limit, staleAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScheduledNotification), args.Error(1)
}

func (m *MockNotificationRepo) MarkSent(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationRepo) MarkFailed(ctx context.Context, id int64, retryAfter time.Duration, reason string) error {
	args := m.Called(ctx, id, retryAfter, reason)
	return args.Error(0)
}

func (m *MockNotificationRepo) MarkAbandoned(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockNotificationRepo) CancelForBooking(ctx context.Context, bookingId int) error {
	args := m.Called(ctx, bookingId)
	return args.Error(0)
}
