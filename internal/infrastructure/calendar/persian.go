// Package calendar implements the period-key resolver on top of the Solar
// Hijri calendar. The day key stays Gregorian in the operating timezone; week
// and month keys come from the Persian conversion of the same instant.
package calendar

import (
	"fmt"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
)

// PersianResolver resolves instants into period keys using the Persian
// calendar for weeks and months. Weeks run Saturday through Friday; week 1 is
// the week containing 4 Farvardin, so the leading days of a year can belong
// to the previous year's final week (the ISO-8601 rule transposed onto the
// Persian calendar).
type PersianResolver struct {
	loc *time.Location
}

// NewPersianResolver creates a resolver pinned to the operating timezone.
func NewPersianResolver(loc *time.Location) *PersianResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &PersianResolver{loc: loc}
}

// Resolve implements calendar.Resolver.
func (r *PersianResolver) Resolve(t time.Time) (calendar.PeriodKeys, error) {
	if t.IsZero() {
		return calendar.PeriodKeys{}, shared.ErrZeroInstant
	}

	local := t.In(r.loc)
	pt := ptime.New(local)

	weekYear, week := r.weekOf(local, pt)

	return calendar.PeriodKeys{
		Day:   local.Format(calendar.DayKeyLayout),
		Week:  fmt.Sprintf("%04d-W%02d", weekYear, week),
		Month: fmt.Sprintf("%04d-%02d", pt.Year(), int(pt.Month())),
	}, nil
}

// weekOf computes the Saturday-start week number of an instant.
//
// A date belongs to the same week as the fourth day of its week (the
// Seshanbeh of a Saturday-start week), and that day always falls inside the
// week's owning year. Shifting to it sidesteps the year-boundary cases: the
// anchor's ordinal day directly yields the week number.
func (r *PersianResolver) weekOf(local time.Time, pt ptime.Time) (year, week int) {
	// ptime weekdays: Shanbeh (Saturday) = 0 .. Jomeh (Friday) = 6.
	weekday := int(pt.Weekday()) + 1 // 1..7, Saturday = 1

	anchor := ptime.New(local.AddDate(0, 0, 4-weekday))
	return anchor.Year(), (anchor.YearDay() + 6) / 7
}
