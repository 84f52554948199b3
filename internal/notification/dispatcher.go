package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/spacehub/rental-api/internal/domain"
)

const (
	DefaultBatchSize   = 50
	DefaultStaleAfter  = 2 * time.Minute
	DefaultMaxAttempts = 8
)

// Dispatcher delivers due outbox rows. Rows are claimed with SKIP LOCKED so several instances
// can run side by side.
type Dispatcher struct {
	repo        domain.NotificationRepository
	service     *Service
	logger      *slog.Logger
	batchSize   int
	staleAfter  time.Duration
	maxAttempts int
}

func NewDispatcher(repo domain.NotificationRepository, service *Service, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		service:     service,
		logger:      logger,
		batchSize:   DefaultBatchSize,
		staleAfter:  DefaultStaleAfter,
		maxAttempts: DefaultMaxAttempts,
	}
}

// DispatchDue claims one batch of due reminders and delivers it. It returns how many rows were
// delivered.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	due, err := d.repo.ClaimDue(ctx, d.batchSize, d.staleAfter)
	if err != nil {
		return 0, err
	}

	sent := 0

	for _, scheduled := range due {
		bookingId := scheduled.BookingID
		n := domain.Notification{
			UserID:    scheduled.UserID,
			BookingID: &bookingId,
			Kind:      scheduled.Kind,
			Title:     scheduled.Title,
			Message:   scheduled.Message,
		}

		if err := d.service.Deliver(ctx, n); err != nil {
			d.fail(ctx, scheduled, err)
			continue
		}

		if err := d.repo.Create(ctx, &n); err != nil {
			d.logger.Error("failed to store reminder", "scheduled_id", scheduled.ID, "error", err)
		}

		if err := d.repo.MarkSent(ctx, scheduled.ID); err != nil {
			d.logger.Error("failed to mark reminder sent", "scheduled_id", scheduled.ID, "error", err)
			continue
		}

		sent++
	}

	return sent, nil
}

func (d *Dispatcher) fail(ctx context.Context, scheduled domain.ScheduledNotification, cause error) {
	logger := d.logger.With("scheduled_id", scheduled.ID, "attempts", scheduled.Attempts, "error", cause)

	if scheduled.Attempts >= d.maxAttempts {
		logger.Error("giving up on reminder")

		if err := d.repo.MarkAbandoned(ctx, scheduled.ID, cause.Error()); err != nil {
			d.logger.Error("failed to abandon reminder", "scheduled_id", scheduled.ID, "error", err)
		}
		return
	}

	retryAfter := RetryDelay(scheduled.Attempts)
	logger.Warn("reminder delivery failed", "retry_after", retryAfter)

	if err := d.repo.MarkFailed(ctx, scheduled.ID, retryAfter, cause.Error()); err != nil {
		d.logger.Error("failed to reschedule reminder", "scheduled_id", scheduled.ID, "error", err)
	}
}

// RetryDelay doubles per attempt and is capped at five minutes.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		return time.Second
	}

	delay := time.Duration(1<<min(attempt, 8)) * time.Second
	if delay > 300*time.Second {
		return 300 * time.Second
	}

	return delay
}
