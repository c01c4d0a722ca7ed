// Package timeutil provides timezone utilities for journal time (UTC+3).
// The MyStat journal reports lesson times as Moscow wall-clock time, so all
// schedule arithmetic uses this fixed offset regardless of the host timezone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// MoscowTZ is the journal timezone (UTC+3, no DST).
// Russia abolished DST in 2014, so this is constant year-round.
var MoscowTZ = time.FixedZone("Europe/Moscow", 3*60*60)

// DateLayout is the wire format for schedule dates (date_filter query).
const DateLayout = "2006-01-02"

// ClockLayout is the wire format for lesson start/end times.
const ClockLayout = "15:04"

// Now returns the current time in journal timezone.
func Now() time.Time {
	return time.Now().In(MoscowTZ)
}

// ToMoscow converts a time to journal timezone.
func ToMoscow(t time.Time) time.Time {
	return t.In(MoscowTZ)
}

// Date creates a time in journal timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, MoscowTZ)
}

// DateTime creates a time in journal timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, MoscowTZ)
}

// StartOfDay returns the start of the day (00:00:00) in journal timezone.
func StartOfDay(t time.Time) time.Time {
	m := ToMoscow(t)
	return time.Date(m.Year(), m.Month(), m.Day(), 0, 0, 0, 0, MoscowTZ)
}

// EndOfDay returns the end of the day (23:59:59) in journal timezone.
// This is the cutoff after which every reminder for the day is stale.
func EndOfDay(t time.Time) time.Time {
	m := ToMoscow(t)
	return time.Date(m.Year(), m.Month(), m.Day(), 23, 59, 59, 0, MoscowTZ)
}

// FormatDate formats a time as a YYYY-MM-DD journal date.
func FormatDate(t time.Time) string {
	return ToMoscow(t).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a journal-timezone midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, MoscowTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseClock parses an HH:MM string into hour and minute components.
func ParseClock(s string) (hour, min int, err error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// CombineDateClock builds the instant for an HH:MM clock reading on the given
// YYYY-MM-DD date, in journal timezone.
func CombineDateClock(date, clock string) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, min, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, MoscowTZ), nil
}

// TodayString returns today's date in journal timezone as YYYY-MM-DD,
// shifted by offsetDays (0 = today, 1 = tomorrow).
func TodayString(offsetDays int) string {
	return FormatDate(Now().AddDate(0, 0, offsetDays))
}
