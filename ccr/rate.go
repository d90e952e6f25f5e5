package ccr

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
)

// ratePricer values a scheduled cash-flow product (a leg, a bond, a fee stream) from its
// cached payment events.
type ratePricer struct {
	core
	cache *paymentCache
}

func newRatePricer(p pricing.Pricer, prod product.Scheduled, b *builder) (*ratePricer, error) {
	r := &ratePricer{core: newCore(p, b)}
	r.cache = newPaymentCache(prod, p.Settle(), r.scale(), b.opts)
	if err := r.cache.load(); err != nil {
		return nil, err
	}
	r.critical = r.cache.dates()
	return r, nil
}

func (r *ratePricer) Pv(state *PathState, settle time.Time, mkt market.Market) (float64, error) {
	if state == nil {
		return 0, ErrNilState
	}
	state.advance(settle)
	if r.after(settle) {
		return 0, nil
	}
	v, err := r.cache.fastPv(mkt, settle, r.opts.IncludeSettlePayments, r.opts.CleanPv, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", r.pricer.Product().Description(), err)
	}
	return v, nil
}

// fullPricer re-runs the full pricer at every date. It is the fallback for products that
// cannot list their payments.
type fullPricer struct {
	core
}

func newFullPricer(p pricing.Pricer, b *builder) *fullPricer {
	f := &fullPricer{core: newCore(p, b)}
	f.critical = []time.Time{f.bound}
	return f
}

func (f *fullPricer) Pv(state *PathState, settle time.Time, mkt market.Market) (float64, error) {
	if state == nil {
		return 0, ErrNilState
	}
	state.advance(settle)
	if f.after(settle) {
		return 0, nil
	}
	return f.pricer.At(settle, mkt).Pv()
}
