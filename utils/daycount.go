package utils

import (
	"time"
)

// YearFraction computes year fraction between two dates using the specified day count convention.
// Supported conventions: ACT/360, ACT/365F, ACT/365, ACT/ACT, 30E/360, 30/360.
// Unknown conventions fall back to ACT/365F.
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case "ACT/360":
		return Days(start, end) / 360.0
	case "ACT/365F", "ACT/365":
		return Days(start, end) / 365.0
	case "ACT/ACT":
		return actAct(start, end)
	case "30E/360", "30/360":
		// 30E/360 ISDA (Eurobond basis); D1 and D2 are capped at 30.
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}

// actAct is ACT/ACT ISDA: days in each calendar year divided by that year's length.
func actAct(start, end time.Time) float64 {
	if end.Before(start) {
		return -actAct(end, start)
	}
	yf := 0.0
	for cur := start; cur.Before(end); {
		next := time.Date(cur.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
		if next.After(end) {
			next = end
		}
		yearLen := Days(time.Date(cur.Year(), 1, 1, 0, 0, 0, 0, time.UTC), time.Date(cur.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC))
		yf += Days(cur, next) / yearLen
		cur = next
	}
	return yf
}
