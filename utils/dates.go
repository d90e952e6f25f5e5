package utils

import (
	"fmt"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// SortDates sorts a slice of time.Time in ascending order.
func SortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

// UniqueDates sorts dates in place and drops duplicates, returning the shortened slice.
func UniqueDates(dates []time.Time) []time.Time {
	if len(dates) == 0 {
		return dates
	}
	SortDates(dates)
	out := dates[:1]
	for _, d := range dates[1:] {
		if !d.Equal(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return out
}

// PrevDay returns the calendar day before t.
func PrevDay(t time.Time) time.Time {
	return t.AddDate(0, 0, -1)
}

// MinDate returns the earlier of a and b.
func MinDate(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// MaxDate returns the later of a and b.
func MaxDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// AdjacentDates returns the two dates from a sorted date slice that bracket target.
//
// It assumes dates is sorted in ascending order and has at least two elements.
// If target is outside the provided range, it returns the nearest boundary pair.
func AdjacentDates(target time.Time, dates []time.Time) (time.Time, time.Time) {
	if len(dates) < 2 {
		panic("AdjacentDates: need at least 2 dates")
	}

	i := sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(target)
	})

	if i <= 0 {
		return dates[0], dates[1]
	}
	if i >= len(dates) {
		return dates[len(dates)-2], dates[len(dates)-1]
	}
	return dates[i-1], dates[i]
}

// ParseDate converts YYYY-MM-DD to a UTC time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %w", err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Days returns the number of calendar days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// AddMonth behaves like Excel's EDATE, avoiding Go's month normalization surprises.
func AddMonth(t time.Time, months int) time.Time {
	target := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	if target.Month() == t.AddDate(0, months, 0).Month() {
		return t.AddDate(0, months, 0)
	}

	d := t.AddDate(0, months, 0)
	orig := d.Month()
	for d.Month() == orig {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// MonthlyGrid returns from, from+step, ... up to and including to. The last element is
// always to, even when it does not fall on a step.
func MonthlyGrid(from, to time.Time, stepMonths int) []time.Time {
	if stepMonths <= 0 {
		stepMonths = 1
	}
	out := []time.Time{from}
	for i := 1; ; i++ {
		d := AddMonth(from, i*stepMonths)
		if !d.Before(to) {
			break
		}
		out = append(out, d)
	}
	if to.After(from) {
		out = append(out, to)
	}
	return out
}
