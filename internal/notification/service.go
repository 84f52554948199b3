package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacehub/rental-api/internal/domain"
)

// Service stores in-app notifications and fans them out to the configured channels. It never
// reports failures to the flow that triggered the notification.
type Service struct {
	notifications domain.NotificationRepository
	users         domain.UserRepository
	channels      []Channel
	logger        *slog.Logger
}

func NewService(
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	logger *slog.Logger,
	channels ...Channel) *Service {

	return &Service{
		notifications: notifications,
		users:         users,
		channels:      channels,
		logger:        logger,
	}
}

func (s *Service) Notify(ctx context.Context, n domain.Notification) {
	err := s.notifications.Create(ctx, &n)
	if err != nil {
		s.logger.Error("failed to store notification", "user_id", n.UserID, "kind", n.Kind, "error", err)
	}

	err = s.Deliver(ctx, n)
	if err != nil {
		s.logger.Error("failed to deliver notification", "user_id", n.UserID, "kind", n.Kind, "error", err)
	}
}

// Deliver sends n through every channel and joins their errors.
func (s *Service) Deliver(ctx context.Context, n domain.Notification) error {
	if len(s.channels) == 0 {
		return nil
	}

	recipient, err := s.users.GetById(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("load recipient %d: %w", n.UserID, err)
	}

	var errs []error

	for _, ch := range s.channels {
		if err := ch.Deliver(ctx, recipient, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}

	return errors.Join(errs...)
}
