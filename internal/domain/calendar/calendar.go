// Package calendar defines the period-key model used to bucket committed study
// time. The day key follows the Gregorian civil date in the operating timezone;
// the week and month keys follow the Solar Hijri (Persian) calendar. The
// concrete conversion lives in infrastructure; the domain only fixes the key
// formats and the resolver contract.
package calendar

import (
	"time"
)

// Key formats. Keys are plain strings so they can double as storage keys and
// cache keys without conversion.
//
//	Day:   "2006-01-02" (Gregorian, operating timezone)
//	Week:  "1403-W07"   (Solar Hijri year, Saturday-start week number)
//	Month: "1403-05"    (Solar Hijri year and month)
const (
	DayKeyLayout = "2006-01-02"
)

// PeriodKeys holds the three bucket keys a single instant resolves to.
type PeriodKeys struct {
	Day   string
	Week  string
	Month string
}

// IsZero reports whether the keys are unset.
func (k PeriodKeys) IsZero() bool {
	return k.Day == "" && k.Week == "" && k.Month == ""
}

// Resolver maps an instant to its period keys.
// Implementations must be pure: the same instant always yields the same keys,
// and Resolve performs no I/O. A zero instant is rejected.
type Resolver interface {
	Resolve(t time.Time) (PeriodKeys, error)
}
