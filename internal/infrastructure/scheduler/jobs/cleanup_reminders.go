// Package jobs contains the background jobs executed by the scheduler.
package jobs

import (
	"context"
	"log/slog"
)

// ReminderRegistry is the subset of the reminder registry the cleanup
// job needs.
type ReminderRegistry interface {
	// CleanupSweep removes handles whose lesson date has fully elapsed
	// and returns the number of removed handles.
	CleanupSweep() int

	// Count returns the number of live handles.
	Count() int
}

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP REMINDERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// CleanupRemindersJob sweeps the reminder registry, removing handles
// for dates that have fully elapsed. Reminders that already fired
// remove themselves, so the sweep mostly reclaims handles for lessons
// whose alerts were never delivered (bot offline, send failure).
type CleanupRemindersJob struct {
	registry ReminderRegistry
	logger   *slog.Logger
}

// NewCleanupRemindersJob creates a new cleanup job.
func NewCleanupRemindersJob(registry ReminderRegistry, logger *slog.Logger) *CleanupRemindersJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupRemindersJob{
		registry: registry,
		logger:   logger,
	}
}

// Name returns the unique job name.
func (j *CleanupRemindersJob) Name() string {
	return "cleanup_reminders"
}

// Description returns a human-readable description.
func (j *CleanupRemindersJob) Description() string {
	return "Removes reminder handles for lesson dates that have fully elapsed"
}

// Run executes the cleanup sweep.
func (j *CleanupRemindersJob) Run(_ context.Context) error {
	removed := j.registry.CleanupSweep()

	j.logger.Info("reminder cleanup completed",
		"removed", removed,
		"remaining", j.registry.Count(),
	)

	return nil
}
