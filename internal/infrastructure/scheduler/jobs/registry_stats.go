package jobs

import (
	"context"
	"log/slog"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY STATS JOB
// ══════════════════════════════════════════════════════════════════════════════

// RegistryStatsJob periodically logs the number of live reminder
// handles. Useful for spotting leaks in long-running deployments.
type RegistryStatsJob struct {
	registry ReminderRegistry
	logger   *slog.Logger
}

// NewRegistryStatsJob creates a new stats job.
func NewRegistryStatsJob(registry ReminderRegistry, logger *slog.Logger) *RegistryStatsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryStatsJob{
		registry: registry,
		logger:   logger,
	}
}

// Name returns the unique job name.
func (j *RegistryStatsJob) Name() string {
	return "registry_stats"
}

// Description returns a human-readable description.
func (j *RegistryStatsJob) Description() string {
	return "Logs the number of live reminder handles"
}

// Run logs the current handle count.
func (j *RegistryStatsJob) Run(_ context.Context) error {
	j.logger.Info("reminder registry stats",
		"live_handles", j.registry.Count(),
	)
	return nil
}
