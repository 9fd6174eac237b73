// Package timeutil provides timezone utilities for the Tehran timezone (UTC+3:30).
// This is essential for Study Tracker Hub as all study groups operate on Tehran
// civil time: daily buckets, session expiry, and report schedules all follow it.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// TehranTZ is the Tehran timezone (UTC+3:30, no DST).
// Iran abolished DST in 2022, so this is constant year-round.
var TehranTZ = time.FixedZone("Asia/Tehran", 3*60*60+30*60)

// Now returns the current time in Tehran timezone.
func Now() time.Time {
	return time.Now().In(TehranTZ)
}

// ToTehran converts a time to Tehran timezone.
func ToTehran(t time.Time) time.Time {
	return t.In(TehranTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in Tehran timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, TehranTZ)
}

// DateTime creates a time in Tehran timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, TehranTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Tehran timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToTehran(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, TehranTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in Tehran timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToTehran(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, TehranTZ)
}

// IsSameDay checks if two times are on the same civil day in Tehran timezone.
func IsSameDay(t1, t2 time.Time) bool {
	a, b := ToTehran(t1), ToTehran(t2)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// IsToday checks if the given time is today in Tehran timezone.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// IsYesterday checks if the given time is yesterday in Tehran timezone.
func IsYesterday(t time.Time) bool {
	return IsSameDay(t, Now().AddDate(0, 0, -1))
}

// DaysBetween calculates the number of civil days between two times.
func DaysBetween(t1, t2 time.Time) int {
	a := StartOfDay(t1)
	b := StartOfDay(t2)
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// FormatTehran formats a time in Tehran timezone with the given layout.
func FormatTehran(t time.Time, layout string) string {
	return ToTehran(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in Tehran timezone.
func FormatDateStr(t time.Time) string {
	return FormatTehran(t, FormatDate)
}

// FormatTimeStr formats a time as a time string (HH:MM) in Tehran timezone.
func FormatTimeStr(t time.Time) string {
	return FormatTehran(t, FormatTime)
}

// FormatSeconds renders a second count as a compact "2h 05m" style string.
// Values under a minute render as "0m"; sessions shorter than that are
// rejected upstream anyway.
func FormatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", hours, minutes)
}

// ParseTehran parses a time string in Tehran timezone.
func ParseTehran(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, TehranTZ)
}

// ParseDateTehran parses a date string (YYYY-MM-DD) in Tehran timezone.
func ParseDateTehran(value string) (time.Time, error) {
	return ParseTehran(FormatDate, value)
}
