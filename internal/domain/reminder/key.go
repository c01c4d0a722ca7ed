// Package reminder contains the identity and lifetime rules for scheduled
// lesson alerts. The registry that owns the timers lives in infrastructure;
// this package defines what makes two reminders the same reminder.
package reminder

import (
	"fmt"
	"time"

	"github.com/mystat-hub/mystat-reminder-bot/pkg/timeutil"
)

// Key is the dedup identity of one reminder: one lesson occurrence on one
// date for one chat. Keying on (chat, date, ordinal, start time) rather than
// lesson identity alone tolerates verbatim re-fetches of the same day while
// still distinguishing different lessons occupying the same ordinal slot on
// different days.
type Key struct {
	ChatID  int64
	Date    string // YYYY-MM-DD
	Ordinal int
	StartAt string // HH:MM
}

// String renders the key for logs.
func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%d/%s", k.ChatID, k.Date, k.Ordinal, k.StartAt)
}

// DayCutoff returns the instant after which a reminder for this key's date is
// stale: 23:59:59 of that date in journal time. The cleanup sweep removes
// every handle whose cutoff has passed.
func (k Key) DayCutoff() (time.Time, error) {
	day, err := timeutil.ParseDate(k.Date)
	if err != nil {
		return time.Time{}, err
	}
	return timeutil.EndOfDay(day), nil
}
