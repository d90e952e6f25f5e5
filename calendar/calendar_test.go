package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meenmo/ccrfast/calendar"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestTargetClosingDays(t *testing.T) {
	t.Parallel()

	// Easter 2025 is April 20.
	assert.False(t, calendar.IsBusinessDay(calendar.TARGET, d(2025, 4, 18)))
	assert.False(t, calendar.IsBusinessDay(calendar.TARGET, d(2025, 4, 21)))
	assert.False(t, calendar.IsBusinessDay(calendar.TARGET, d(2025, 12, 25)))
	assert.True(t, calendar.IsBusinessDay(calendar.TARGET, d(2025, 4, 22)))
	assert.True(t, calendar.IsBusinessDay(calendar.None, d(2025, 4, 18)))
}

func TestAdjustModifiedFollowing(t *testing.T) {
	t.Parallel()

	// Saturday 2025-05-31 rolls back into May.
	assert.Equal(t, d(2025, 5, 30), calendar.Adjust(calendar.None, d(2025, 5, 31)))
	// Saturday 2025-03-15 rolls forward.
	assert.Equal(t, d(2025, 3, 17), calendar.Adjust(calendar.None, d(2025, 3, 15)))
	assert.Equal(t, d(2025, 6, 2), calendar.AdjustFollowing(calendar.None, d(2025, 5, 31)))
}

func TestRegisterHolidays(t *testing.T) {
	t.Parallel()

	calendar.RegisterHolidays(calendar.JPN, d(2025, 7, 21))
	assert.False(t, calendar.IsBusinessDay(calendar.JPN, d(2025, 7, 21)))
	assert.Equal(t, d(2025, 7, 22), calendar.AddBusinessDays(calendar.JPN, d(2025, 7, 18), 1))
	assert.Equal(t, d(2025, 7, 18), calendar.AddBusinessDays(calendar.JPN, d(2025, 7, 22), -1))
}

func TestLastBusinessDayOfMonth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, d(2025, 8, 29), calendar.LastBusinessDayOfMonth(calendar.None, d(2025, 8, 5)))
}
