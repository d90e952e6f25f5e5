package utils_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/ccrfast/utils"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestUniqueDates(t *testing.T) {
	t.Parallel()

	in := []time.Time{d(2025, 3, 1), d(2025, 1, 1), d(2025, 3, 1), d(2025, 2, 1), d(2025, 1, 1)}
	out := utils.UniqueDates(in)
	require.Len(t, out, 3)
	assert.Equal(t, d(2025, 1, 1), out[0])
	assert.Equal(t, d(2025, 2, 1), out[1])
	assert.Equal(t, d(2025, 3, 1), out[2])

	assert.Empty(t, utils.UniqueDates(nil))
}

func TestAddMonth_EndOfMonth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, d(2025, 2, 28), utils.AddMonth(d(2025, 1, 31), 1))
	assert.Equal(t, d(2024, 2, 29), utils.AddMonth(d(2024, 1, 31), 1))
	assert.Equal(t, d(2025, 4, 15), utils.AddMonth(d(2025, 1, 15), 3))
	assert.Equal(t, d(2025, 2, 28), utils.AddMonth(d(2025, 3, 31), -1))
}

func TestMonthlyGrid(t *testing.T) {
	t.Parallel()

	grid := utils.MonthlyGrid(d(2025, 1, 15), d(2025, 4, 1), 1)
	require.Equal(t, []time.Time{d(2025, 1, 15), d(2025, 2, 15), d(2025, 3, 15), d(2025, 4, 1)}, grid)

	single := utils.MonthlyGrid(d(2025, 1, 15), d(2025, 1, 15), 1)
	require.Equal(t, []time.Time{d(2025, 1, 15)}, single)
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	start, end := d(2025, 1, 1), d(2026, 1, 1)
	cases := []struct {
		dc   string
		want float64
	}{
		{"ACT/360", 365.0 / 360.0},
		{"ACT/365F", 1.0},
		{"30/360", 1.0},
		{"ACT/ACT", 1.0},
	}
	for _, c := range cases {
		got := utils.YearFraction(start, end, c.dc)
		if math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("%s mismatch: got %.12f want %.12f", c.dc, got, c.want)
		}
	}

	// 2024 is a leap year: half of the span sits in each year.
	got := utils.YearFraction(d(2024, 7, 1), d(2025, 7, 1), "ACT/ACT")
	want := 184.0/366.0 + 181.0/365.0
	assert.InDelta(t, want, got, 1e-12)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := utils.ParseDate("2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, d(2025, 6, 30), got)

	_, err = utils.ParseDate("30/06/2025")
	require.Error(t, err)
}
