package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/spacehub/rental-api/internal/domain"
)

const (
	dateLayout = "2006-01-02"
	endOfDay   = 24*time.Hour - time.Second
)

var timeLayouts = []string{"15:04:05", "15:04"}

// SlotRequest carries the date and time strings a booking is requested with.
type SlotRequest struct {
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
}

// ResolveSlot turns a request into absolute UTC instants. Hourly slots need a start date plus
// start and end times of day; daily slots span whole days from StartDate through EndDate.
func ResolveSlot(unit domain.PriceUnit, req SlotRequest) (time.Time, time.Time, error) {
	startDay, err := parseDate(req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate %v", domain.ErrInvalidInput, err)
	}

	endDay := startDay
	if strings.TrimSpace(req.EndDate) != "" {
		endDay, err = parseDate(req.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate %v", domain.ErrInvalidInput, err)
		}
	}

	var start, end time.Time

	switch unit {
	case domain.PriceUnitHour:
		if req.StartTime == "" || req.EndTime == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: hourly bookings need startTime and endTime", domain.ErrInvalidInput)
		}

		startOffset, err := ParseTimeOfDay(req.StartTime)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: startTime %v", domain.ErrInvalidInput, err)
		}

		endOffset, err := ParseTimeOfDay(req.EndTime)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: endTime %v", domain.ErrInvalidInput, err)
		}

		start = startOffset.On(startDay)
		end = endOffset.On(endDay)

	case domain.PriceUnitDay:
		start = startDay
		end = endDay.Add(endOfDay)

	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown price unit %q", domain.ErrInvalidInput, unit)
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, domain.ErrInvalidTimeRange
	}

	return start, end, nil
}

func ParseTimeOfDay(s string) (domain.TimeOfDay, error) {
	s = strings.TrimSpace(s)

	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second
			return domain.TimeOfDay(d), nil
		}
	}

	return 0, fmt.Errorf("invalid time of day %q", s)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("is required")
	}

	// full timestamps are accepted and truncated to their UTC day
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}

	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// SlotFor renders a resolved slot back into the request that ResolveSlot maps onto it.
func SlotFor(unit domain.PriceUnit, start, end time.Time) SlotRequest {
	start, end = start.UTC(), end.UTC()

	slot := SlotRequest{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
	}

	if unit == domain.PriceUnitHour {
		slot.StartTime = start.Format(timeLayouts[0])
		slot.EndTime = end.Format(timeLayouts[0])
	}

	return slot
}
