package domain

import (
	"context"
	"fmt"
	"time"
)

type NotificationKind string

const (
	NotificationBookingConfirmed  NotificationKind = "booking_confirmed"
	NotificationBookingNewForHost NotificationKind = "booking_new_for_host"
	NotificationBookingModified   NotificationKind = "booking_modified"
	NotificationBookingCancelled  NotificationKind = "booking_cancelled"
	NotificationPaymentSucceeded  NotificationKind = "payment_succeeded"
	NotificationRefundProcessed   NotificationKind = "refund_processed"
	NotificationRefundFailed      NotificationKind = "refund_failed"
	NotificationReminder24h       NotificationKind = "booking_reminder_24h"
	NotificationReminder7d        NotificationKind = "booking_reminder_7d"
)

type Notification struct {
	ID        int
	UserID    int
	BookingID *int
	Kind      NotificationKind
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// ScheduledNotification is an outbox row delivered by the dispatcher once FireAt has passed.
type ScheduledNotification struct {
	ID        int64
	UserID    int
	BookingID int
	Kind      NotificationKind
	Title     string
	Message   string
	FireAt    time.Time
	Attempts  int
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	Schedule(ctx context.Context, notifications []ScheduledNotification) error
	// ClaimDue marks up to limit due rows as processing, reclaiming rows stuck in processing for
	// longer than staleAfter.
	ClaimDue(ctx context.Context, limit int, staleAfter time.Duration) ([]ScheduledNotification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, retryAfter time.Duration, reason string) error
	// MarkAbandoned parks a row that exhausted its attempts.
	MarkAbandoned(ctx context.Context, id int64, reason string) error
	CancelForBooking(ctx context.Context, bookingId int) error
}

// Notifier is the triggering contract used by the booking and payment flows. Delivery failures
// never surface to callers.
type Notifier interface {
	Notify(ctx context.Context, notification Notification)
}

var reminderOffsets = []struct {
	kind   NotificationKind
	before time.Duration
	label  string
}{
	{NotificationReminder7d, 7 * 24 * time.Hour, "in one week"},
	{NotificationReminder24h, 24 * time.Hour, "tomorrow"},
}

// BookingReminders builds the outbox rows announcing an upcoming booking. Reminders whose fire
// time is not after now are left out.
func BookingReminders(booking *Booking, listingTitle string, now time.Time) []ScheduledNotification {
	reminders := make([]ScheduledNotification, 0, len(reminderOffsets))

	for _, r := range reminderOffsets {
		fireAt := booking.Start.Add(-r.before)
		if !fireAt.After(now) {
			continue
		}

		message := fmt.Sprintf("Your booking for %s starts %s, on %s.",
			listingTitle, r.label, booking.Start.UTC().Format("Mon, 02 Jan 2006 15:04 MST"))

		reminders = append(reminders, ScheduledNotification{
			UserID:    booking.UserID,
			BookingID: booking.ID,
			Kind:      r.kind,
			Title:     "Upcoming booking",
			Message:   message,
			FireAt:    fireAt,
		})
	}

	return reminders
}
