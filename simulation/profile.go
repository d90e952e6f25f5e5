package simulation

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/utils"
)

// Profile is the exposure profile of a netting set.
type Profile struct {
	Dates []time.Time
	// EE is the expected positive exposure per date.
	EE []float64
	// ENE is the expected negative exposure per date.
	ENE []float64
	// PFE is the Quantile of the simulated values per date.
	PFE []float64
	// EPE is the time average of EE over the profile horizon.
	EPE      float64
	Quantile float64
	Paths    int
}

// NewProfile summarises values[path][date].
func NewProfile(dates []time.Time, values [][]float64, quantile float64) *Profile {
	p := &Profile{
		Dates:    dates,
		EE:       make([]float64, len(dates)),
		ENE:      make([]float64, len(dates)),
		PFE:      make([]float64, len(dates)),
		Quantile: quantile,
		Paths:    len(values),
	}
	if len(values) == 0 {
		return p
	}
	col := make([]float64, len(values))
	pos := make([]float64, len(values))
	neg := make([]float64, len(values))
	for j := range dates {
		for i, row := range values {
			col[i] = row[j]
			pos[i] = math.Max(row[j], 0)
			neg[i] = math.Min(row[j], 0)
		}
		p.EE[j] = stat.Mean(pos, nil)
		p.ENE[j] = stat.Mean(neg, nil)
		sort.Float64s(col)
		p.PFE[j] = stat.Quantile(quantile, stat.Empirical, col, nil)
	}
	p.EPE = timeAverage(dates, p.EE)
	return p
}

// timeAverage weights each value by the time to the next date.
func timeAverage(dates []time.Time, v []float64) float64 {
	if len(dates) < 2 {
		if len(v) == 1 {
			return v[0]
		}
		return 0
	}
	w := make([]float64, len(dates)-1)
	for j := range w {
		w[j] = utils.YearFraction(dates[j], dates[j+1], string(market.Act365F))
	}
	total := floats.Sum(w)
	if total == 0 {
		return 0
	}
	return floats.Dot(w, v[:len(w)]) / total
}
