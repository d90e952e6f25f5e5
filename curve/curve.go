package curve

import (
	"errors"
	"math"
	"time"

	"github.com/meenmo/ccrfast/utils"
)

// ErrNoPillars is returned when a curve is requested without any node.
var ErrNoPillars = errors.New("curve: no pillars")

// Discount is the discount-factor contract consumed by pricers.
type Discount interface {
	DF(t time.Time) float64
}

// DFBetween returns the forward discount factor DF(t2)/DF(t1).
func DFBetween(c Discount, t1, t2 time.Time) float64 {
	return c.DF(t2) / c.DF(t1)
}

// curveDayCount is the time axis for interpolation and zero rates regardless of currency.
// Leg accrual day counts are applied separately.
const curveDayCount = "ACT/365F"

// Curve is a discount curve interpolated log-linearly between discount-factor pillars.
// Beyond the last pillar the last forward rate is extrapolated.
type Curve struct {
	settlement time.Time
	dates      []time.Time
	dfs        map[time.Time]float64
}

// NewCurveFromDFs creates a curve from explicitly provided discount factors. A pillar of
// 1.0 at settlement is added when absent.
func NewCurveFromDFs(settlement time.Time, dfs map[time.Time]float64) (*Curve, error) {
	if len(dfs) == 0 {
		return nil, ErrNoPillars
	}
	c := &Curve{
		settlement: settlement,
		dfs:        make(map[time.Time]float64, len(dfs)+1),
	}
	for t, df := range dfs {
		c.dfs[t] = df
		c.dates = append(c.dates, t)
	}
	if _, ok := c.dfs[settlement]; !ok {
		c.dfs[settlement] = 1.0
		c.dates = append(c.dates, settlement)
	}
	utils.SortDates(c.dates)
	return c, nil
}

// NewCurveFromZeros builds a curve from continuously-compounded zero rates in percent keyed
// by tenor ("6M", "1Y", "10Y").
func NewCurveFromZeros(settlement time.Time, zerosPct map[string]float64) (*Curve, error) {
	if len(zerosPct) == 0 {
		return nil, ErrNoPillars
	}
	dfs := make(map[time.Time]float64, len(zerosPct))
	for tenor, z := range zerosPct {
		d, err := TenorDate(settlement, tenor)
		if err != nil {
			return nil, err
		}
		yf := utils.YearFraction(settlement, d, curveDayCount)
		dfs[d] = math.Exp(-z / 100 * yf)
	}
	return NewCurveFromDFs(settlement, dfs)
}

// NewFlatCurve returns a curve with a constant continuously-compounded rate (decimal).
func NewFlatCurve(settlement time.Time, rate float64) *Curve {
	end := settlement.AddDate(100, 0, 0)
	c, _ := NewCurveFromDFs(settlement, map[time.Time]float64{
		end: math.Exp(-rate * utils.YearFraction(settlement, end, curveDayCount)),
	})
	return c
}

// DF returns the discount factor from settlement to t.
func (c *Curve) DF(t time.Time) float64 {
	if df, ok := c.dfs[t]; ok {
		return df
	}
	if len(c.dates) < 2 {
		return c.dfs[c.dates[0]]
	}
	d1, d2 := findBracketOrBoundary(c.dates, t)
	df1 := c.dfs[d1]
	df2 := c.dfs[d2]

	t1 := utils.YearFraction(c.settlement, d1, curveDayCount)
	t2 := utils.YearFraction(c.settlement, d2, curveDayCount)
	tTarget := utils.YearFraction(c.settlement, t, curveDayCount)

	if t2 == t1 {
		return df1
	}
	forwardRate := math.Log(df1/df2) / (t2 - t1)
	return df1 * math.Exp(-forwardRate*(tTarget-t1))
}

// ZeroRateAt returns the continuously-compounded zero rate in percent.
func (c *Curve) ZeroRateAt(t time.Time) float64 {
	yf := utils.YearFraction(c.settlement, t, curveDayCount)
	if yf == 0 {
		return 0
	}
	return -math.Log(c.DF(t)) / yf * 100
}

// Settlement returns the curve's settlement date.
func (c *Curve) Settlement() time.Time {
	return c.settlement
}

// Shifted applies a parallel short-rate shock x to a base curve from an anchor date, using
// the Hull-White loading B(anchor, t) = (1 - exp(-a*tau)) / a.
type Shifted struct {
	base          Discount
	anchor        time.Time
	shift         float64
	meanReversion float64
}

// NewShifted wraps base with shock x and mean reversion a (a == 0 gives a parallel shift).
func NewShifted(base Discount, anchor time.Time, x, a float64) *Shifted {
	return &Shifted{base: base, anchor: anchor, shift: x, meanReversion: a}
}

// DF returns the shocked discount factor.
func (s *Shifted) DF(t time.Time) float64 {
	tau := utils.YearFraction(s.anchor, t, curveDayCount)
	b := tau
	if s.meanReversion != 0 {
		b = (1 - math.Exp(-s.meanReversion*tau)) / s.meanReversion
	}
	return s.base.DF(t) * math.Exp(-s.shift*b)
}
