package ccr

import (
	"time"

	"github.com/meenmo/ccrfast/utils"
)

// reconcileDates merges externally requested dates with an instrument's critical dates.
//
// The result starts at start and is bounded by bound. When external dates stop short of
// bound, the first external date beyond it closes the tail and becomes the bound. Every
// critical date within the bound is added together with the day before it, so that the
// drop of a paid cash flow is sampled on both sides. nested dates (fee sub-pricers) are
// merged within the same bound. The result is ascending and unique.
func reconcileDates(start time.Time, external, critical []time.Time, bound time.Time, nested []time.Time) []time.Time {
	out := []time.Time{start}

	if len(external) > 0 {
		ext := append([]time.Time(nil), external...)
		utils.SortDates(ext)
		var last time.Time
		for _, d := range ext {
			if d.Before(start) || d.After(bound) {
				continue
			}
			out = append(out, d)
			last = d
		}
		if last.IsZero() || last.Before(bound) {
			for _, d := range ext {
				if d.After(bound) {
					out = append(out, d)
					bound = d
					break
				}
			}
		}
	}

	for _, d := range critical {
		if !d.After(start) || d.After(bound) {
			continue
		}
		out = append(out, d)
		if prev := utils.PrevDay(d); prev.After(start) {
			out = append(out, prev)
		}
	}

	for _, d := range nested {
		if !d.Before(start) && !d.After(bound) {
			out = append(out, d)
		}
	}

	utils.SortDates(out)
	return utils.UniqueDates(out)
}
