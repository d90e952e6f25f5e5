package curve

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/ccrfast/utils"
)

// Vol is the volatility surface contract consumed by option pricers.
type Vol interface {
	Interpolate(expiry time.Time, strike float64) float64
}

// FlatVol is a constant volatility.
type FlatVol float64

// Interpolate returns the constant volatility.
func (v FlatVol) Interpolate(time.Time, float64) float64 {
	return float64(v)
}

// TermVol is a strike-independent surface interpolated linearly in total variance across
// expiries and held flat outside the quoted range.
type TermVol struct {
	asOf     time.Time
	expiries []time.Time
	vols     []float64
	variance []float64
}

// NewTermVol builds a surface from ascending expiries and implied volatilities.
func NewTermVol(asOf time.Time, expiries []time.Time, vols []float64) (*TermVol, error) {
	if len(expiries) == 0 || len(expiries) != len(vols) {
		return nil, fmt.Errorf("NewTermVol: %d expiries vs %d vols", len(expiries), len(vols))
	}
	s := &TermVol{
		asOf:     asOf,
		expiries: append([]time.Time(nil), expiries...),
		vols:     append([]float64(nil), vols...),
		variance: make([]float64, len(vols)),
	}
	for i, e := range s.expiries {
		if i > 0 && !e.After(s.expiries[i-1]) {
			return nil, fmt.Errorf("NewTermVol: expiries not ascending at %s", utils.FormatDate(e))
		}
		s.variance[i] = vols[i] * vols[i] * utils.YearFraction(asOf, e, curveDayCount)
	}
	return s, nil
}

// Interpolate returns the implied volatility to expiry. Strike is ignored.
func (s *TermVol) Interpolate(expiry time.Time, _ float64) float64 {
	n := len(s.expiries)
	if n == 1 || !expiry.After(s.expiries[0]) {
		return s.vols[0]
	}
	if !expiry.Before(s.expiries[n-1]) {
		return s.vols[n-1]
	}
	d1, d2 := findBracketOrBoundary(s.expiries, expiry)
	i2 := binarySearchDate(s.expiries, d2)
	i1 := i2 - 1
	t1 := utils.YearFraction(s.asOf, d1, curveDayCount)
	t2 := utils.YearFraction(s.asOf, d2, curveDayCount)
	t := utils.YearFraction(s.asOf, expiry, curveDayCount)
	w := s.variance[i1] + (s.variance[i2]-s.variance[i1])*(t-t1)/(t2-t1)
	if t <= 0 || w <= 0 {
		return s.vols[i1]
	}
	return math.Sqrt(w / t)
}
