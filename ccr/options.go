// Package ccr is the fast revaluation engine used inside exposure simulations.
//
// Build classifies a full pricer once and returns an immutable FastPricer whose payment
// schedules, exposure dates, volatility curves and calibrated baskets are shared read-only
// across paths. Per-path memory (exercise decisions, barrier knocks, the last sampled level)
// lives in a PathState that each path obtains from NewPathState and passes to every Pv call.
// Within one path Pv must be called with non-decreasing settle dates: a call on or before
// the last seen date restarts the path.
package ccr

import (
	"errors"

	"go.uber.org/zap"

	"github.com/meenmo/ccrfast/pricing"
)

var (
	// ErrUnsupported is returned by Build when a product has no fast valuation strategy.
	ErrUnsupported = errors.New("ccr: product/pricer combination unsupported")
	// ErrNilPricer is returned by Build for a nil pricer.
	ErrNilPricer = errors.New("ccr: nil pricer")
	// ErrNilState is returned by Pv when called without a path state.
	ErrNilState = errors.New("ccr: nil path state")
)

// Options are the valuation switches recognised by the engine.
type Options struct {
	// DiscountAccrued discounts the accrued part of the current coupon with the rest of it.
	// When false the accrued part is taken undiscounted.
	DiscountAccrued bool
	// IncludeSettlePayments keeps payments falling exactly on the settle date.
	IncludeSettlePayments bool
	// FixConvexityVolatility uses the as-of volatility in the Brownian bridge instead of
	// the forward volatility seen from the last sample.
	FixConvexityVolatility bool
	// ForwardVolatilityTermStructure builds a forward volatility curve to expiry instead of
	// using the flat as-of volatility.
	ForwardVolatilityTermStructure bool
	// ExposureDatesFromSettle starts exposure date sets at the pricer's settle date.
	ExposureDatesFromSettle bool
	// CleanPv subtracts accrued interest from cash-flow values.
	CleanPv bool
	// BasketTolerance is the relative PV mismatch above which a compressed tranche falls
	// back to the exact pool model.
	BasketTolerance float64
	// ProtectionGridMonths is the sampling step of protection legs.
	ProtectionGridMonths int
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		BasketTolerance:      1e-4,
		ProtectionGridMonths: 1,
	}
}

// Settings returns the full pricer settings matching these options, so that reference
// pricers and fast pricers agree.
func (o Options) Settings(notional float64) pricing.Settings {
	return pricing.Settings{
		Notional:              notional,
		DiscountAccrued:       o.DiscountAccrued,
		IncludeSettlePayments: o.IncludeSettlePayments,
		ProtectionGridMonths:  o.ProtectionGridMonths,
	}
}

func (o Options) gridMonths() int {
	if o.ProtectionGridMonths <= 0 {
		return 1
	}
	return o.ProtectionGridMonths
}

// BuildOption customises Build.
type BuildOption func(*builder)

// WithLogger sets the logger used during classification and calibration.
func WithLogger(l *zap.Logger) BuildOption {
	return func(b *builder) {
		if l != nil {
			b.log = l
		}
	}
}

type builder struct {
	opts Options
	log  *zap.Logger
}

func newBuilder(opts Options, extra []BuildOption) *builder {
	b := &builder{opts: opts, log: zap.NewNop()}
	for _, o := range extra {
		o(b)
	}
	return b
}
