package ccr

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
)

// cdsPricer values a single-name CDS: the cached premium schedule weighted by survival
// plus a protection leg on a grid fixed at build time.
type cdsPricer struct {
	core
	cds   *product.CDS
	cache *paymentCache
	grid  []time.Time
}

func newCDSPricer(p pricing.Pricer, cds *product.CDS, b *builder) (*cdsPricer, error) {
	c := &cdsPricer{core: newCore(p, b), cds: cds}
	c.cache = newPaymentCache(cds, p.Settle(), 1, b.opts)
	if err := c.cache.load(); err != nil {
		return nil, err
	}
	c.grid = cds.ProtectionGrid(b.opts.gridMonths())
	c.critical = c.cache.dates()
	if cds.Defaulted() {
		c.critical = append(c.critical, cds.DefaultSettlement)
	}
	return c, nil
}

func (c *cdsPricer) Pv(state *PathState, settle time.Time, mkt market.Market) (float64, error) {
	if state == nil {
		return 0, ErrNilState
	}
	state.advance(settle)
	if c.after(settle) {
		return 0, nil
	}
	if c.cds.Defaulted() {
		return c.pricer.At(settle, mkt).Pv()
	}
	surv, ok := mkt.SurvivalCurve(c.cds.Name)
	if !ok {
		return 0, nil
	}
	v, err := creditValue(c.cache, c.grid, c.cds.Ccy, c.cds.Recovery, c.cds.ProtectionSign(), c.scale(), surv, settle, mkt, c.opts)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", c.cds.Description(), err)
	}
	return v, nil
}

// creditValue is fee plus protection for one name from a per-unit premium cache, times scale.
// Both legs carry the survival probability to their own dates, which includes survival to
// settle.
func creditValue(cache *paymentCache, grid []time.Time, ccy string, recovery, sign, scale float64, surv curve.Survival, settle time.Time, mkt market.Market, opts Options) (float64, error) {
	fee, err := cache.fastPv(mkt, settle, opts.IncludeSettlePayments, opts.CleanPv, surv.SurvivalProbability)
	if err != nil {
		return 0, err
	}
	disc, err := discountTo(mkt, ccy)
	if err != nil {
		return 0, err
	}
	prot := pricing.ProtectionLeg(remaining(grid, settle), settle, disc, surv)
	return (fee + sign*(1-recovery)*prot) * scale, nil
}

// remaining drops grid points on or before settle.
func remaining(grid []time.Time, settle time.Time) []time.Time {
	for i, t := range grid {
		if t.After(settle) {
			return grid[i:]
		}
	}
	return nil
}
