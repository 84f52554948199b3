package domain

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type PriceUnit string

const (
	PriceUnitHour PriceUnit = "hour"
	PriceUnitDay  PriceUnit = "day"
)

func (u PriceUnit) Valid() bool {
	return u == PriceUnitHour || u == PriceUnitDay
}

func (u PriceUnit) Duration() time.Duration {
	if u == PriceUnitDay {
		return 24 * time.Hour
	}

	return time.Hour
}

// TimeOfDay is an offset from midnight.
type TimeOfDay time.Duration

func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).Add(time.Duration(t))
}

type Listing struct {
	ID                 int
	OwnerID            int
	Title              string
	Price              decimal.Decimal
	PriceUnit          PriceUnit
	AvailableFrom      *time.Time
	AvailableUntil     *time.Time
	AvailableStartTime *TimeOfDay
	AvailableEndTime   *TimeOfDay
}

// PriceFor bills every started unit of the listing's price unit.
func (l *Listing) PriceFor(start, end time.Time) decimal.Decimal {
	units := BillableUnits(start, end, l.PriceUnit)
	return l.Price.Mul(decimal.NewFromInt(units))
}

func BillableUnits(start, end time.Time, unit PriceUnit) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}

	return int64(math.Ceil(float64(d) / float64(unit.Duration())))
}

// Covers reports whether [start, end) fits inside the listing's availability window. Dates are
// compared by UTC calendar day and the time-of-day window only applies to hourly listings. The
// window is read in UTC whatever offset the caller's times carry.
func (l *Listing) Covers(start, end time.Time) bool {
	start, end = start.UTC(), end.UTC()

	if l.AvailableFrom != nil && dayOf(start).Before(dayOf(*l.AvailableFrom)) {
		return false
	}

	if l.AvailableUntil != nil && dayOf(end.Add(-time.Nanosecond)).After(dayOf(*l.AvailableUntil)) {
		return false
	}

	if l.PriceUnit != PriceUnitHour {
		return true
	}

	if l.AvailableStartTime != nil && start.Before(l.AvailableStartTime.On(start)) {
		return false
	}

	if l.AvailableEndTime != nil && end.After(l.AvailableEndTime.On(start)) {
		return false
	}

	return true
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type ListingRepository interface {
	GetById(ctx context.Context, id int) (*Listing, error)
	// GetByIdForUpdate locks the listing row; bookings of the listing are serialized behind it.
	GetByIdForUpdate(ctx context.Context, id int) (*Listing, error)
}
