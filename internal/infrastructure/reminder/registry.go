// Package reminder implements the in-memory registry of scheduled lesson
// alerts: one-shot per-lesson timers, identity-based deduplication, and the
// periodic cleanup sweep that reclaims handles for elapsed days.
//
// The registry is an explicitly owned instance constructed at process start
// and passed to the orchestrator and the sweep job; there is no ambient
// singleton. It does not survive a process restart: reminders are rebuilt the
// next time a chat fetches its schedule.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/reminder"
	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/schedule"
	"github.com/mystat-hub/mystat-reminder-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Notifier delivers a formatted alert to a chat.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Config contains configuration for the Registry.
type Config struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Now returns the current time. Defaults to journal time; injectable
	// for tests.
	Now func() time.Time

	// NotifyTimeout bounds the outbound send when a timer fires.
	NotifyTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Now:           timeutil.Now,
		NotifyTimeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// handle is one live scheduled alert.
type handle struct {
	key    reminder.Key
	fireAt time.Time
	lesson schedule.Lesson
}

// Registry owns the table of scheduled alerts. All mutation is serialized by
// a single mutex: insert, fire-removal, and the cleanup iteration never
// overlap, so concurrent fetches of the same chat/date cannot double-schedule.
type Registry struct {
	mu      sync.Mutex
	handles map[reminder.Key]*handle

	timers   *oneShotTimers
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	timeout  time.Duration
}

// NewRegistry creates a Registry delivering alerts through notifier.
func NewRegistry(notifier Notifier, config Config) *Registry {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = timeutil.Now
	}
	if config.NotifyTimeout <= 0 {
		config.NotifyTimeout = 30 * time.Second
	}

	return &Registry{
		handles:  make(map[reminder.Key]*handle),
		timers:   newOneShotTimers(config.Now),
		notifier: notifier,
		logger:   config.Logger,
		now:      config.Now,
		timeout:  config.NotifyTimeout,
	}
}

// Schedule registers a pre-lesson alert for every lesson of the given date.
// Already-registered lessons are skipped, so re-fetching the same day is
// idempotent. Lessons whose fire instant has already passed are skipped with
// a diagnostic and without error.
func (r *Registry) Schedule(chatID int64, date string, lessons []schedule.Lesson) {
	now := r.now()

	for _, lesson := range lessons {
		key := reminder.Key{
			ChatID:  chatID,
			Date:    date,
			Ordinal: lesson.Ordinal,
			StartAt: lesson.StartsAt,
		}

		fireAt, err := lesson.ReminderInstant(date)
		if err != nil {
			// Lessons are validated at the client boundary; reaching this
			// means the date string itself is broken.
			r.logger.Error("reminder not scheduled", "key", key.String(), "error", err)
			continue
		}

		if !fireAt.After(now) {
			r.logger.Info("reminder already in the past, skipped",
				"key", key.String(),
				"fire_at", fireAt.Format(time.RFC3339),
			)
			continue
		}

		r.mu.Lock()
		if _, exists := r.handles[key]; exists {
			r.mu.Unlock()
			continue
		}
		h := &handle{key: key, fireAt: fireAt, lesson: lesson}
		r.handles[key] = h
		r.mu.Unlock()

		r.timers.ScheduleOnce(key, fireAt, func() { r.fire(h) })

		r.logger.Info("reminder scheduled",
			"key", key.String(),
			"fire_at", fireAt.Format(time.RFC3339),
		)
	}
}

// fire delivers the alert and removes the handle. Removal happens regardless
// of delivery outcome; a failed send is logged, not retried.
func (r *Registry) fire(h *handle) {
	r.mu.Lock()
	if _, live := r.handles[h.key]; !live {
		// Swept between arming and firing.
		r.mu.Unlock()
		return
	}
	delete(r.handles, h.key)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	text := formatAlert(h.lesson)
	if err := r.notifier.SendText(ctx, h.key.ChatID, text); err != nil {
		r.logger.Error("reminder delivery failed", "key", h.key.String(), "error", err)
		return
	}

	r.logger.Info("reminder delivered", "key", h.key.String())
}

// CleanupSweep cancels and removes every handle whose date has fully elapsed:
// its 23:59:59 journal-time cutoff is before now. Handles for today and
// future dates are untouched. Returns the number of handles removed.
func (r *Registry) CleanupSweep() int {
	now := r.now()

	r.mu.Lock()
	stale := make([]reminder.Key, 0)
	for key := range r.handles {
		cutoff, err := key.DayCutoff()
		if err != nil {
			r.logger.Error("unparseable reminder date, removing", "key", key.String(), "error", err)
			stale = append(stale, key)
			continue
		}
		if cutoff.Before(now) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		delete(r.handles, key)
	}
	r.mu.Unlock()

	for _, key := range stale {
		r.timers.Cancel(key)
	}

	if len(stale) > 0 {
		r.logger.Info("cleanup sweep removed stale reminders", "count", len(stale))
	}

	return len(stale)
}

// Shutdown cancels every live timer. Handles are not delivered.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.handles = make(map[reminder.Key]*handle)
	r.mu.Unlock()
	r.timers.CancelAll()
}

// Count returns the number of live handles.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Contains reports whether a handle is live for the key.
func (r *Registry) Contains(key reminder.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[key]
	return ok
}

// formatAlert renders the pre-lesson alert text.
func formatAlert(lesson schedule.Lesson) string {
	return fmt.Sprintf(
		"⏰ Через 5 минут начнется пара!\n\n📖 %s\n👨‍🏫 %s\n🏫 %s",
		lesson.Subject, lesson.Teacher, lesson.Room,
	)
}
