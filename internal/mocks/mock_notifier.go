package mocks

import (
	"context"
	"sync"

	"github.com/spacehub/rental-api/internal/domain"
)

// MockNotifier records every notification it is asked to send.
type MockNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (m *MockNotifier) Notify(_ context.Context, notification domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, notification)
}

func (m *MockNotifier) Sent() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	sent := make([]domain.Notification, len(m.sent))
	copy(sent, m.sent)
	return sent
}

func (m *MockNotifier) Kinds() []domain.NotificationKind {
	m.mu.Lock()
	defer m.mu.Unlock()

	kinds := make([]domain.NotificationKind, len(m.sent))
	for i, n := range m.sent {
		kinds[i] = n.Kind
	}
	return kinds
}
