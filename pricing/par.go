package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/product"
)

// SolverConfig holds the par solver parameters.
type SolverConfig struct {
	// MaxIterations bounds the Newton iterations.
	MaxIterations int
	// PVToleranceMultiplier scales the fixed leg notional to the PV tolerance:
	// tolerance = PVToleranceMultiplier * max(1, |notional|).
	PVToleranceMultiplier float64
	// DerivativeThreshold is the smallest annuity accepted as a Newton slope.
	DerivativeThreshold float64
}

// DefaultSolverConfig is used when ParRate is given a zero config.
var DefaultSolverConfig = SolverConfig{
	MaxIterations:         10,
	PVToleranceMultiplier: 1e-10,
	DerivativeThreshold:   1e-15,
}

// ErrNoFixedLeg is returned by ParRate for swaps without a fixed leg.
var ErrNoFixedLeg = errors.New("pricing: swap has no fixed leg")

// ParRate solves the coupon of the swap's fixed leg such that the swap is worth zero at
// mkt.AsOf(). The swap itself is left untouched.
func ParRate(s *product.Swap, mkt market.Market, settings Settings, cfg SolverConfig) (float64, error) {
	if cfg.MaxIterations == 0 {
		cfg = DefaultSolverConfig
	}
	fixed, receive := s.Receive, true
	if fixed.Convention.LegType != market.LegFixed {
		fixed, receive = s.Pay, false
	}
	if fixed.Convention.LegType != market.LegFixed {
		return 0, fmt.Errorf("ParRate: %s: %w", s.Description(), ErrNoFixedLeg)
	}

	// The swap is linear in the coupon; the slope is the signed fixed leg annuity.
	unit := fixed.WithCoupon(1)
	unit.Convention.IncludeInitialPrincipal = false
	unit.Convention.IncludeFinalPrincipal = false
	slope, err := NewCashflowPricer(unit, mkt, settings).Pv()
	if err != nil {
		return 0, fmt.Errorf("ParRate: %w", err)
	}
	if math.Abs(slope) < cfg.DerivativeThreshold {
		return 0, fmt.Errorf("ParRate: annuity is zero for %s", s.Description())
	}

	rate := fixed.FixedRate
	tol := cfg.PVToleranceMultiplier * math.Max(1.0, math.Abs(fixed.Face))
	var pv float64
	for i := 0; i < cfg.MaxIterations; i++ {
		trial := *s
		if receive {
			trial.Receive = fixed.WithCoupon(rate)
		} else {
			trial.Pay = fixed.WithCoupon(rate)
		}
		pricer, err := New(&trial, mkt, settings)
		if err != nil {
			return 0, err
		}
		pv, err = pricer.Pv()
		if err != nil {
			return 0, fmt.Errorf("ParRate: %w", err)
		}
		if math.Abs(pv) <= tol {
			return rate, nil
		}
		rate -= pv / slope
	}
	return rate, fmt.Errorf("ParRate: did not converge (rate=%.12f, npv=%.6g)", rate, pv)
}
