package curve

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/ccrfast/utils"
)

// Survival is the survival-probability contract consumed by credit pricers.
type Survival interface {
	SurvivalProbability(t time.Time) float64
}

// HazardCurve is a piecewise-constant hazard rate curve. The hazard of segment i applies on
// (dates[i-1], dates[i]]; the last hazard is extended flat.
type HazardCurve struct {
	asOf    time.Time
	dates   []time.Time
	hazards []float64
	cumul   []float64 // integrated hazard at dates[i]
}

// NewHazardCurve builds a curve from ascending node dates and per-segment hazard rates.
func NewHazardCurve(asOf time.Time, dates []time.Time, hazards []float64) (*HazardCurve, error) {
	if len(dates) == 0 || len(dates) != len(hazards) {
		return nil, fmt.Errorf("NewHazardCurve: %d dates vs %d hazards", len(dates), len(hazards))
	}
	c := &HazardCurve{
		asOf:    asOf,
		dates:   append([]time.Time(nil), dates...),
		hazards: append([]float64(nil), hazards...),
		cumul:   make([]float64, len(dates)),
	}
	prev := asOf
	acc := 0.0
	for i, d := range c.dates {
		if !d.After(prev) {
			return nil, fmt.Errorf("NewHazardCurve: node %s not after %s", utils.FormatDate(d), utils.FormatDate(prev))
		}
		if hazards[i] < 0 {
			return nil, fmt.Errorf("NewHazardCurve: negative hazard %g", hazards[i])
		}
		acc += hazards[i] * utils.YearFraction(prev, d, curveDayCount)
		c.cumul[i] = acc
		prev = d
	}
	return c, nil
}

// NewFlatHazard returns a curve with a single constant hazard rate.
func NewFlatHazard(asOf time.Time, hazard float64) *HazardCurve {
	c, _ := NewHazardCurve(asOf, []time.Time{asOf.AddDate(100, 0, 0)}, []float64{hazard})
	return c
}

// SurvivalProbability returns Q(tau > t) seen from the curve's as-of date.
func (c *HazardCurve) SurvivalProbability(t time.Time) float64 {
	if !t.After(c.asOf) {
		return 1
	}
	i := segmentIndex(c.dates, t)
	left, base := c.asOf, 0.0
	if i > 0 {
		left, base = c.dates[i-1], c.cumul[i-1]
	}
	return math.Exp(-(base + c.hazards[i]*utils.YearFraction(left, t, curveDayCount)))
}

// HazardAt returns the hazard rate in force at t.
func (c *HazardCurve) HazardAt(t time.Time) float64 {
	return c.hazards[segmentIndex(c.dates, t)]
}
