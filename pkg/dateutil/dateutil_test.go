package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthAndDayKeys(t *testing.T) {
	ts := time.Date(2025, 8, 25, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2025-08", MonthKey(ts))
	assert.Equal(t, "2025-08-25", DayKey(ts))
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2025, 8, 25, 14, 30, 0, 0, time.UTC)
	start, end := DayBounds(ts)

	assert.Equal(t, time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC), end)
}

func TestMonthsInRange(t *testing.T) {
	start := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, []string{"2025-11", "2025-12", "2026-01", "2026-02"}, MonthsInRange(start, end))
}

func TestMonthsInRangeSingleMonth(t *testing.T) {
	ts := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2025-08"}, MonthsInRange(ts, ts))
}

func TestMonthsInRangeReversed(t *testing.T) {
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, MonthsInRange(start, end))
}

func TestDaysInRange(t *testing.T) {
	start := time.Date(2025, 8, 30, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 9, 1, 5, 0, 0, 0, time.UTC)

	days := DaysInRange(start, end)
	require.Len(t, days, 3)
	assert.Equal(t, "2025-08-30", DayKey(days[0]))
	assert.Equal(t, "2025-08-31", DayKey(days[1]))
	assert.Equal(t, "2025-09-01", DayKey(days[2]))
}

func TestHourLabel(t *testing.T) {
	assert.Equal(t, "12 AM", HourLabel(0))
	assert.Equal(t, "9 AM", HourLabel(9))
	assert.Equal(t, "12 PM", HourLabel(12))
	assert.Equal(t, "2 PM", HourLabel(14))
	assert.Equal(t, "11 PM", HourLabel(23))
}
