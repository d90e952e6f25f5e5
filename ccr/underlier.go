package ccr

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
)

// Underlier is the risk factor of an option.
type Underlier interface {
	// Value returns the level at settle and the numeraire turning a per-unit payoff on
	// the level into value at settle.
	Value(mkt market.Market, settle time.Time) (level, numeraire float64, err error)
	// Volatility is the forward volatility from settle to expiry.
	Volatility(settle time.Time) float64
	// Dates are the underlying's own critical dates.
	Dates() []time.Time
}

// forwardUnderlier is an equity, FX or commodity forward.
type forwardUnderlier struct {
	u   product.ForwardUnderlying
	ccy string
	vol ForwardVolatility
}

func (f *forwardUnderlier) Value(mkt market.Market, settle time.Time) (float64, float64, error) {
	return pricing.ForwardLevel(f.u, f.ccy, settle, mkt)
}

func (f *forwardUnderlier) Volatility(settle time.Time) float64 { return f.vol.At(settle) }

func (f *forwardUnderlier) Dates() []time.Time { return []time.Time{f.u.Delivery} }

// swapRateUnderlier is a forward swap rate valued from two cached unit legs: the floating
// leg and a unit-coupon fixed leg whose value is the annuity.
type swapRateUnderlier struct {
	floating *paymentCache
	annuity  *paymentCache
	include  bool
	vol      ForwardVolatility
}

func (s *swapRateUnderlier) Value(mkt market.Market, settle time.Time) (float64, float64, error) {
	fv, err := s.floating.fastPv(mkt, settle, s.include, false, nil)
	if err != nil {
		return 0, 0, err
	}
	ann, err := s.annuity.fastPv(mkt, settle, s.include, false, nil)
	if err != nil {
		return 0, 0, err
	}
	if ann == 0 {
		return 0, 0, nil
	}
	return fv / ann, ann, nil
}

func (s *swapRateUnderlier) Volatility(settle time.Time) float64 { return s.vol.At(settle) }

func (s *swapRateUnderlier) Dates() []time.Time {
	return append(s.floating.dates(), s.annuity.dates()...)
}

// newUnderlier builds the underlier of o from the market the pricer was built against.
func newUnderlier(o *product.Option, p pricing.Pricer, opts Options) (Underlier, error) {
	switch o.Underlying.(type) {
	case product.ForwardUnderlying, product.SwapRateUnderlying:
	default:
		return nil, fmt.Errorf("underlying %T: %w", o.Underlying, ErrUnsupported)
	}
	surface, err := pricing.Volatility(o, p.Market())
	if err != nil {
		return nil, err
	}
	vol := newForwardVolatility(surface, p.AsOf(), o.Expiry, o.Strike, opts.ForwardVolatilityTermStructure)

	switch u := o.Underlying.(type) {
	case product.ForwardUnderlying:
		return &forwardUnderlier{u: u, ccy: o.Ccy, vol: vol}, nil
	case product.SwapRateUnderlying:
		if u.Fixed == nil || u.Floating == nil {
			return nil, fmt.Errorf("swap rate underlying without legs: %w", ErrUnsupported)
		}
		floating, fixed := pricing.SwapRateLegs(u)
		s := &swapRateUnderlier{
			floating: newPaymentCache(floating, p.Settle(), 1, opts),
			annuity:  newPaymentCache(fixed, p.Settle(), 1, opts),
			include:  opts.IncludeSettlePayments,
			vol:      vol,
		}
		if err := s.floating.load(); err != nil {
			return nil, err
		}
		if err := s.annuity.load(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("underlying %T: %w", o.Underlying, ErrUnsupported)
	}
}
