// Package schedule contains the lesson value type consumed from journal
// schedule fetches. Lessons are ephemeral: validated once at the portal client
// boundary, used to render a reply and register reminders, then discarded.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/mystat-hub/mystat-reminder-bot/pkg/timeutil"
)

// ErrInvalidLesson indicates a portal payload that does not describe a lesson.
var ErrInvalidLesson = errors.New("schedule: invalid lesson")

// ReminderLead is how long before a lesson starts its alert fires.
const ReminderLead = 5 * time.Minute

// Lesson is one class occurrence on one date.
type Lesson struct {
	// Ordinal is the lesson's position in the day (1-based journal numbering).
	Ordinal int

	// StartsAt and EndsAt are journal wall-clock readings, "HH:MM".
	StartsAt string
	EndsAt   string

	Subject string
	Teacher string
	Room    string
}

// Validate checks the fields a lesson must carry to be scheduled.
func (l Lesson) Validate() error {
	if l.Ordinal <= 0 {
		return fmt.Errorf("%w: ordinal %d", ErrInvalidLesson, l.Ordinal)
	}
	if _, _, err := timeutil.ParseClock(l.StartsAt); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLesson, err)
	}
	if l.EndsAt != "" {
		if _, _, err := timeutil.ParseClock(l.EndsAt); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidLesson, err)
		}
	}
	if l.Subject == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidLesson)
	}
	return nil
}

// StartInstant returns the lesson start on the given YYYY-MM-DD date as an
// instant in journal time.
func (l Lesson) StartInstant(date string) (time.Time, error) {
	return timeutil.CombineDateClock(date, l.StartsAt)
}

// ReminderInstant returns the instant the pre-lesson alert should fire:
// exactly ReminderLead before the start, in journal time.
func (l Lesson) ReminderInstant(date string) (time.Time, error) {
	start, err := l.StartInstant(date)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(-ReminderLead), nil
}
