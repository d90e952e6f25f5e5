// Package simulation drives fast pricers over Monte Carlo market scenarios and turns the
// simulated values into exposure profiles.
package simulation

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/utils"
)

// Model is the scenario dynamics: a one-factor Hull-White shock applied to every discount
// and projection curve, and geometric Brownian spots.
type Model struct {
	// RateVol is the short-rate volatility (absolute, per year).
	RateVol float64
	// MeanReversion is the Hull-White mean reversion speed.
	MeanReversion float64
	// SpotVol is the lognormal volatility of every simulated spot.
	SpotVol float64
	// Currency is the curve whose short rate drifts the spots.
	Currency string
	// Assets are the simulated spots.
	Assets []string
}

// Scenario is one simulated market state.
type Scenario struct {
	base  market.Market
	date  time.Time
	shift float64
	a     float64
	spots map[string]float64
}

var _ market.Market = (*Scenario)(nil)

// NewScenario returns base seen at date under short-rate shock x with mean reversion a.
// spots override the base spots.
func NewScenario(base market.Market, date time.Time, x, a float64, spots map[string]float64) *Scenario {
	return &Scenario{base: base, date: date, shift: x, a: a, spots: spots}
}

func (s *Scenario) AsOf() time.Time { return s.date }

// Shift is the short-rate shock of the scenario.
func (s *Scenario) Shift() float64 { return s.shift }

func (s *Scenario) DiscountCurve(ccy string) (curve.Discount, bool) {
	c, ok := s.base.DiscountCurve(ccy)
	if !ok {
		return nil, false
	}
	return curve.NewShifted(c, s.date, s.shift, s.a), true
}

func (s *Scenario) ProjectionCurve(index market.ReferenceIndex) (curve.Discount, bool) {
	c, ok := s.base.ProjectionCurve(index)
	if !ok {
		return nil, false
	}
	return curve.NewShifted(c, s.date, s.shift, s.a), true
}

func (s *Scenario) FixingCurve(index market.ReferenceIndex) (curve.Discount, bool) {
	return s.base.FixingCurve(index)
}

func (s *Scenario) SurvivalCurve(name string) (curve.Survival, bool) {
	return s.base.SurvivalCurve(name)
}

func (s *Scenario) VolSurface(asset string) (curve.Vol, bool) {
	return s.base.VolSurface(asset)
}

func (s *Scenario) Spot(asset string) (float64, bool) {
	if v, ok := s.spots[asset]; ok {
		return v, true
	}
	return s.base.Spot(asset)
}

func (s *Scenario) DividendYield(asset string) float64 {
	return s.base.DividendYield(asset)
}

// Generator produces scenario paths. Path i always uses the same random stream, so results
// do not depend on how paths are scheduled.
type Generator struct {
	model Model
	seed  uint64
}

// NewGenerator returns a generator with the given dynamics and seed.
func NewGenerator(m Model, seed uint64) *Generator {
	return &Generator{model: m, seed: seed}
}

// Path simulates path i on dates, which must be ascending and not before base.AsOf().
func (g *Generator) Path(i int, base market.Market, dates []time.Time) []*Scenario {
	z := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(g.seed + uint64(i)*0x9E3779B97F4A7C15)}
	m := g.model
	disc, hasDisc := base.DiscountCurve(m.Currency)

	spots := make(map[string]float64, len(m.Assets))
	for _, a := range m.Assets {
		if s, ok := base.Spot(a); ok {
			spots[a] = s
		}
	}

	out := make([]*Scenario, len(dates))
	prev := base.AsOf()
	x := 0.0
	for k, d := range dates {
		dt := utils.YearFraction(prev, d, string(market.Act365F))
		if dt > 0 {
			// Short-rate drift over the step from the base curve plus the current shock.
			drift := x * dt
			if hasDisc {
				drift += math.Log(disc.DF(prev) / disc.DF(d))
			}
			x = ouStep(x, m.MeanReversion, m.RateVol, dt, z.Rand())
			next := make(map[string]float64, len(spots))
			for a, s := range spots {
				q := base.DividendYield(a)
				next[a] = s * math.Exp(drift-(q+0.5*m.SpotVol*m.SpotVol)*dt+m.SpotVol*math.Sqrt(dt)*z.Rand())
			}
			spots = next
		}
		out[k] = NewScenario(base, d, x, m.MeanReversion, spots)
		prev = d
	}
	return out
}

// ouStep is the exact Ornstein-Uhlenbeck transition over dt.
func ouStep(x, a, sigma, dt, z float64) float64 {
	if a == 0 {
		return x + sigma*math.Sqrt(dt)*z
	}
	e := math.Exp(-a * dt)
	return x*e + sigma*math.Sqrt((1-e*e)/(2*a))*z
}
