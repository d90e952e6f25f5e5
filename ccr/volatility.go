package ccr

import (
	"math"
	"sort"
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/utils"
)

// ForwardVolatility gives the volatility that applies from a future date to a fixed expiry.
type ForwardVolatility interface {
	At(settle time.Time) float64
}

// flatVolatility is the as-of volatility to expiry, used at every date.
type flatVolatility float64

func (v flatVolatility) At(time.Time) float64 { return float64(v) }

// forwardVolCurve holds forward volatilities to expiry on a monthly grid, piecewise constant
// between grid dates.
type forwardVolCurve struct {
	dates []time.Time
	vols  []float64
	flat  float64
}

// newForwardVolatility builds the forward volatility to expiry seen from asOf. With
// termStructure the curve is sampled monthly from the surface's total variance:
// sigma_f(t)^2 = (sigma_T^2 T - sigma_t^2 t) / (T - t), floored at zero.
func newForwardVolatility(surface curve.Vol, asOf, expiry time.Time, strike float64, termStructure bool) ForwardVolatility {
	flat := surface.Interpolate(expiry, strike)
	if !termStructure || !expiry.After(asOf) {
		return flatVolatility(flat)
	}
	T := yearFraction(asOf, expiry)
	varT := flat * flat * T
	c := &forwardVolCurve{flat: flat}
	for _, d := range utils.MonthlyGrid(asOf, expiry, 1) {
		t := yearFraction(asOf, d)
		if T-t <= 0 {
			break
		}
		s := flat
		if t > 0 {
			st := surface.Interpolate(d, strike)
			s = math.Sqrt(math.Max((varT-st*st*t)/(T-t), 0))
		}
		c.dates = append(c.dates, d)
		c.vols = append(c.vols, s)
	}
	return c
}

func (c *forwardVolCurve) At(settle time.Time) float64 {
	i := sort.Search(len(c.dates), func(i int) bool { return c.dates[i].After(settle) }) - 1
	if i < 0 {
		return c.flat
	}
	return c.vols[i]
}

func yearFraction(start, end time.Time) float64 {
	return utils.YearFraction(start, end, string(market.Act365F))
}
