package curve

import (
	"sort"
	"time"
)

// findBracketOrBoundary finds two adjacent dates that bracket the target.
// If the target is outside the range, returns the nearest boundary pair.
func findBracketOrBoundary(dates []time.Time, target time.Time) (d1, d2 time.Time) {
	if len(dates) < 2 {
		panic("findBracketOrBoundary: need at least 2 dates")
	}

	idx := binarySearchDate(dates, target)

	if idx <= 0 {
		return dates[0], dates[1]
	}
	if idx >= len(dates) {
		return dates[len(dates)-2], dates[len(dates)-1]
	}
	// dates[idx-1] < target <= dates[idx]
	return dates[idx-1], dates[idx]
}

// binarySearchDate finds the index of the first date >= target.
// Returns len(dates) if all dates are before target.
func binarySearchDate(dates []time.Time, target time.Time) int {
	return sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(target)
	})
}

// segmentIndex returns i such that dates[i-1] < target <= dates[i], clamped to
// [0, len(dates)-1]. Used by piecewise-constant structures keyed on the right node.
func segmentIndex(dates []time.Time, target time.Time) int {
	idx := binarySearchDate(dates, target)
	if idx >= len(dates) {
		return len(dates) - 1
	}
	return idx
}
