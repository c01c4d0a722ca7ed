package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystat-hub/mystat-reminder-bot/pkg/timeutil"
)

type countingJob struct {
	name string
	runs atomic.Int64
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts its own runs" }
func (j *countingJob) Run(_ context.Context) error {
	j.runs.Add(1)
	return nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s := New(Config{})

	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register(job, IntervalSchedule{Interval: time.Hour}))

	err := s.Register(job, IntervalSchedule{Interval: time.Hour})
	assert.ErrorIs(t, err, ErrJobAlreadyExists)
}

func TestRegisterRejectsNilJob(t *testing.T) {
	s := New(Config{})

	assert.ErrorIs(t, s.Register(nil, IntervalSchedule{Interval: time.Hour}), ErrNilJob)

	job := &countingJob{name: "sweep"}
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
}

func TestStartStopLifecycle(t *testing.T) {
	s := New(Config{})

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
}

func TestDueJobRuns(t *testing.T) {
	s := New(Config{})

	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register(job, IntervalSchedule{Interval: 500 * time.Millisecond}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 1
	}, 5*time.Second, 100*time.Millisecond)
}

func TestIntervalScheduleNext(t *testing.T) {
	sched := IntervalSchedule{Interval: 24 * time.Hour}

	base := time.Date(2025, 3, 10, 0, 10, 0, 0, timeutil.MoscowTZ)
	assert.Equal(t, base.Add(24*time.Hour), sched.Next(base))
	assert.Equal(t, "@every 24h0m0s", sched.String())
}

func TestDailyAtScheduleNext(t *testing.T) {
	sched := DailyAtSchedule{Hour: 0, Minute: 10, Location: timeutil.MoscowTZ}

	t.Run("before cutoff runs same day", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 0, 5, 0, 0, timeutil.MoscowTZ)
		next := sched.Next(now)
		assert.Equal(t, time.Date(2025, 3, 10, 0, 10, 0, 0, timeutil.MoscowTZ), next)
	})

	t.Run("after cutoff rolls to next day", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 12, 0, 0, 0, timeutil.MoscowTZ)
		next := sched.Next(now)
		assert.Equal(t, time.Date(2025, 3, 11, 0, 10, 0, 0, timeutil.MoscowTZ), next)
	})

	t.Run("exact cutoff rolls to next day", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 0, 10, 0, 0, timeutil.MoscowTZ)
		next := sched.Next(now)
		assert.Equal(t, time.Date(2025, 3, 11, 0, 10, 0, 0, timeutil.MoscowTZ), next)
	})

	t.Run("converts from other zones", func(t *testing.T) {
		// 22:30 UTC is 01:30 next day in Moscow
		now := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)
		next := sched.Next(now)
		assert.Equal(t, time.Date(2025, 3, 12, 0, 10, 0, 0, timeutil.MoscowTZ), next)
	})
}
