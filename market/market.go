package market

import (
	"time"

	"github.com/meenmo/ccrfast/curve"
)

// Market is the read-only market-data view a pricer values against.
type Market interface {
	AsOf() time.Time
	DiscountCurve(ccy string) (curve.Discount, bool)
	ProjectionCurve(index ReferenceIndex) (curve.Discount, bool)
	// FixingCurve projects coupons whose rate is already set at the market date. Scenario
	// markets return the unshocked curve here so a past reset does not move with the path.
	FixingCurve(index ReferenceIndex) (curve.Discount, bool)
	SurvivalCurve(name string) (curve.Survival, bool)
	VolSurface(asset string) (curve.Vol, bool)
	Spot(asset string) (float64, bool)
	DividendYield(asset string) float64
}

// Snapshot is an in-memory Market. The zero value is not usable; call NewSnapshot.
type Snapshot struct {
	asOf       time.Time
	discount   map[string]curve.Discount
	projection map[ReferenceIndex]curve.Discount
	survival   map[string]curve.Survival
	vols       map[string]curve.Vol
	spots      map[string]float64
	dividends  map[string]float64
}

// NewSnapshot returns an empty snapshot dated asOf.
func NewSnapshot(asOf time.Time) *Snapshot {
	return &Snapshot{
		asOf:       asOf,
		discount:   map[string]curve.Discount{},
		projection: map[ReferenceIndex]curve.Discount{},
		survival:   map[string]curve.Survival{},
		vols:       map[string]curve.Vol{},
		spots:      map[string]float64{},
		dividends:  map[string]float64{},
	}
}

func (s *Snapshot) AsOf() time.Time { return s.asOf }

// DiscountCurve returns the discount curve for a currency.
func (s *Snapshot) DiscountCurve(ccy string) (curve.Discount, bool) {
	c, ok := s.discount[ccy]
	return c, ok
}

// ProjectionCurve returns the projection curve of an index, falling back to none.
func (s *Snapshot) ProjectionCurve(index ReferenceIndex) (curve.Discount, bool) {
	c, ok := s.projection[index]
	return c, ok
}

// FixingCurve is the projection curve: a snapshot has no shock to undo.
func (s *Snapshot) FixingCurve(index ReferenceIndex) (curve.Discount, bool) {
	return s.ProjectionCurve(index)
}

func (s *Snapshot) SurvivalCurve(name string) (curve.Survival, bool) {
	c, ok := s.survival[name]
	return c, ok
}

func (s *Snapshot) VolSurface(asset string) (curve.Vol, bool) {
	v, ok := s.vols[asset]
	return v, ok
}

func (s *Snapshot) Spot(asset string) (float64, bool) {
	v, ok := s.spots[asset]
	return v, ok
}

func (s *Snapshot) DividendYield(asset string) float64 {
	return s.dividends[asset]
}

// SetDiscount registers the discount curve for ccy and returns s for chaining.
func (s *Snapshot) SetDiscount(ccy string, c curve.Discount) *Snapshot {
	s.discount[ccy] = c
	return s
}

func (s *Snapshot) SetProjection(index ReferenceIndex, c curve.Discount) *Snapshot {
	s.projection[index] = c
	return s
}

func (s *Snapshot) SetSurvival(name string, c curve.Survival) *Snapshot {
	s.survival[name] = c
	return s
}

func (s *Snapshot) SetVol(asset string, v curve.Vol) *Snapshot {
	s.vols[asset] = v
	return s
}

// SetSpot registers a spot level and a continuous dividend (or foreign rate) yield.
func (s *Snapshot) SetSpot(asset string, spot, dividendYield float64) *Snapshot {
	s.spots[asset] = spot
	s.dividends[asset] = dividendYield
	return s
}

// Clone returns a shallow copy with its own maps, dated asOf.
func (s *Snapshot) Clone(asOf time.Time) *Snapshot {
	out := NewSnapshot(asOf)
	for k, v := range s.discount {
		out.discount[k] = v
	}
	for k, v := range s.projection {
		out.projection[k] = v
	}
	for k, v := range s.survival {
		out.survival[k] = v
	}
	for k, v := range s.vols {
		out.vols[k] = v
	}
	for k, v := range s.spots {
		out.spots[k] = v
	}
	for k, v := range s.dividends {
		out.dividends[k] = v
	}
	return out
}
