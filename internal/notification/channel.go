package notification

import (
	"context"
	"time"

	"github.com/spacehub/rental-api/internal/domain"
	"github.com/spacehub/rental-api/internal/mailer"
	"github.com/spacehub/rental-api/internal/mq"
)

const notificationTemplate = "notification.tmpl"

// Channel delivers a notification outside the application.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, recipient *domain.User, n domain.Notification) error
}

type EmailChannel struct {
	mailer mailer.Mailer
}

func NewEmailChannel(m mailer.Mailer) *EmailChannel {
	return &EmailChannel{mailer: m}
}

func (c *EmailChannel) Name() string {
	return "email"
}

func (c *EmailChannel) Deliver(_ context.Context, recipient *domain.User, n domain.Notification) error {
	data := map[string]string{
		"Name":    recipient.Name,
		"Title":   n.Title,
		"Message": n.Message,
	}

	return c.mailer.Send(recipient.Email, notificationTemplate, data)
}

// Event is the message published for every delivered notification.
type Event struct {
	UserID     int                     `json:"user_id"`
	BookingID  *int                    `json:"booking_id,omitempty"`
	Kind       domain.NotificationKind `json:"kind"`
	Title      string                  `json:"title"`
	Message    string                  `json:"message"`
	OccurredAt time.Time               `json:"occurred_at"`
}

type EventChannel struct {
	publisher mq.Publisher
	now       func() time.Time
}

func NewEventChannel(publisher mq.Publisher) *EventChannel {
	return &EventChannel{
		publisher: publisher,
		now:       time.Now,
	}
}

func (c *EventChannel) Name() string {
	return "event"
}

func (c *EventChannel) Deliver(ctx context.Context, recipient *domain.User, n domain.Notification) error {
	event := Event{
		UserID:     recipient.ID,
		BookingID:  n.BookingID,
		Kind:       n.Kind,
		Title:      n.Title,
		Message:    n.Message,
		OccurredAt: c.now().UTC(),
	}

	return c.publisher.Publish(ctx, "notification."+string(n.Kind), event)
}
