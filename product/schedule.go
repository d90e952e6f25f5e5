package product

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/calendar"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/utils"
)

// Period is one business-day adjusted accrual period.
type Period struct {
	StartDate time.Time
	EndDate   time.Time
	PayDate   time.Time
}

// GeneratePeriods builds the accrual periods of a leg.
//
// With ScheduleBackward, periods roll from maturity backward and the first period becomes a
// front stub when needed; otherwise they roll forward from the effective date with a
// back stub.
func GeneratePeriods(effective, maturity time.Time, leg market.LegConvention) ([]Period, error) {
	if !maturity.After(effective) {
		return nil, fmt.Errorf("GeneratePeriods: maturity %s not after effective %s", utils.FormatDate(maturity), utils.FormatDate(effective))
	}
	if leg.PayFrequency <= 0 {
		return nil, fmt.Errorf("GeneratePeriods: unsupported pay frequency %d", leg.PayFrequency)
	}

	var unadjusted []time.Time
	if leg.ScheduleDirection == market.ScheduleBackward {
		unadjusted = rollBackward(effective, maturity, leg)
	} else {
		unadjusted = rollForward(effective, maturity, leg)
	}

	periods := make([]Period, 0, len(unadjusted)-1)
	for i := 0; i < len(unadjusted)-1; i++ {
		start := calendar.Adjust(leg.Calendar, unadjusted[i])
		end := calendar.Adjust(leg.Calendar, unadjusted[i+1])
		periods = append(periods, Period{
			StartDate: start,
			EndDate:   end,
			PayDate:   calendar.AddBusinessDays(leg.Calendar, end, leg.PayDelayDays),
		})
	}
	return periods, nil
}

func step(t time.Time, months int, leg market.LegConvention) time.Time {
	if leg.RollConvention == market.BackwardEOM {
		return utils.AddMonth(t, months)
	}
	return t.AddDate(0, months, 0)
}

// rollForward always uses the unadjusted date for the next step to avoid drift.
func rollForward(effective, maturity time.Time, leg market.LegConvention) []time.Time {
	months := int(leg.PayFrequency)
	dates := []time.Time{effective}
	for i := 1; ; i++ {
		next := step(effective, i*months, leg)
		// A remainder shorter than a week is folded into the last period.
		if !next.Before(maturity.AddDate(0, 0, -7)) {
			break
		}
		dates = append(dates, next)
	}
	return append(dates, maturity)
}

// rollBackward skips a first rolled date within 7 days of effective to avoid a tiny stub.
func rollBackward(effective, maturity time.Time, leg market.LegConvention) []time.Time {
	months := int(leg.PayFrequency)
	var dates []time.Time
	for i := 0; ; i++ {
		cur := step(maturity, -i*months, leg)
		if !cur.After(effective) {
			break
		}
		dates = append([]time.Time{cur}, dates...)
	}
	if len(dates) > 1 && utils.Days(effective, dates[0]) <= 7 {
		dates = dates[1:]
	}
	return append([]time.Time{effective}, dates...)
}
