package booking

import (
	"context"
	"time"

	"github.com/spacehub/rental-api/internal/domain"
)

// Overlaps is the half-open interval test: [aStart, aEnd) and [bStart, bEnd) share an instant.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Conflicts returns the slot-holding bookings that overlap [start, end). excludeID drops the
// booking being edited from the set; zero excludes nothing.
func Conflicts(existing []domain.Booking, start, end time.Time, excludeID int) []domain.Booking {
	conflicts := make([]domain.Booking, 0)

	for _, b := range existing {
		if excludeID != 0 && b.ID == excludeID {
			continue
		}

		if !b.Status.Blocking() {
			continue
		}

		if Overlaps(b.Start, b.End, start, end) {
			conflicts = append(conflicts, b)
		}
	}

	return conflicts
}

// HasConflict must run on the same transaction as the write it guards, after the listing row
// was locked.
func HasConflict(
	ctx context.Context,
	bookings domain.BookingRepository,
	listingId int,
	start, end time.Time,
	excludeBookingId int) (bool, error) {

	existing, err := bookings.GetBlocking(ctx, listingId, start, end)
	if err != nil {
		return false, err
	}

	return len(Conflicts(existing, start, end, excludeBookingId)) > 0, nil
}
