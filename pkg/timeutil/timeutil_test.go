package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineDateClock(t *testing.T) {
	got, err := CombineDateClock("2025-03-10", "09:00")
	require.NoError(t, err)

	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 10, got.Day())
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 0, got.Minute())

	_, offset := got.Zone()
	assert.Equal(t, 3*60*60, offset)
}

func TestCombineDateClock_Invalid(t *testing.T) {
	_, err := CombineDateClock("10.03.2025", "09:00")
	assert.Error(t, err)

	_, err = CombineDateClock("2025-03-10", "9 am")
	assert.Error(t, err)
}

func TestEndOfDay_IndependentOfHostZone(t *testing.T) {
	// 2025-03-10 22:30 UTC is already 2025-03-11 01:30 in journal time,
	// so the cutoff must be for the 11th.
	utc := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)

	cutoff := EndOfDay(utc)
	assert.Equal(t, 11, cutoff.Day())
	assert.Equal(t, 23, cutoff.Hour())
	assert.Equal(t, 59, cutoff.Minute())
	assert.Equal(t, 59, cutoff.Second())
}

func TestParseDateFormatDate_RoundTrip(t *testing.T) {
	day, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", FormatDate(day))
}

func TestEndOfDay_AfterEveryLesson(t *testing.T) {
	lesson, err := CombineDateClock("2025-03-10", "23:59")
	require.NoError(t, err)
	assert.True(t, EndOfDay(lesson).After(lesson) || EndOfDay(lesson).Equal(lesson))
}
