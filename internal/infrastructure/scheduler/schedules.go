package scheduler

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE IMPLEMENTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule runs a job at fixed intervals.
type IntervalSchedule struct {
	Interval time.Duration
}

// Next returns the next run time after t.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns a human-readable representation.
func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}

// DailyAtSchedule runs a job once per day at the given wall-clock time
// in the given location.
type DailyAtSchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Next returns the next occurrence of Hour:Minute after t.
func (s DailyAtSchedule) Next(t time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}

	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// String returns a human-readable representation.
func (s DailyAtSchedule) String() string {
	return fmt.Sprintf("@daily %02d:%02d", s.Hour, s.Minute)
}
