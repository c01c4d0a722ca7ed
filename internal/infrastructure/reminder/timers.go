package reminder

import (
	"sync"
	"time"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/reminder"
)

// oneShotTimers schedules callbacks at absolute instants, at most one live
// timer per key. It is the bare timer layer; the dedup and cleanup policy
// live in Registry on top of it.
type oneShotTimers struct {
	mu     sync.Mutex
	timers map[reminder.Key]*time.Timer
	now    func() time.Time
}

func newOneShotTimers(now func() time.Time) *oneShotTimers {
	return &oneShotTimers{
		timers: make(map[reminder.Key]*time.Timer),
		now:    now,
	}
}

// ScheduleOnce arms a timer that calls fn at fireAt. A previous timer for the
// same key is replaced. The delay is computed relative to the injected clock
// so the past/future decision and the armed duration agree.
func (t *oneShotTimers) ScheduleOnce(key reminder.Key, fireAt time.Time, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.timers[key]; ok {
		old.Stop()
	}

	delay := fireAt.Sub(t.now())
	if delay < 0 {
		delay = 0
	}

	t.timers[key] = time.AfterFunc(delay, func() {
		t.forget(key)
		fn()
	})
}

// Cancel stops and removes the timer for key, if any.
func (t *oneShotTimers) Cancel(key reminder.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
}

// CancelAll stops every live timer.
func (t *oneShotTimers) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}

func (t *oneShotTimers) forget(key reminder.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.timers, key)
}
