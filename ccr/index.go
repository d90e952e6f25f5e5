package ccr

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
)

// indexPricer values a credit index from one per-unit premium schedule and protection grid
// shared by every constituent. Defaulted names are valued by the full single-name pricer.
type indexPricer struct {
	core
	index    *product.CreditIndex
	cache    *paymentCache
	grid     []time.Time
	resolver pricing.NameResolver
}

func newIndexPricer(p pricing.Pricer, x *product.CreditIndex, b *builder) (*indexPricer, error) {
	ip := &indexPricer{core: newCore(p, b), index: x}
	ip.cache = newPaymentCache(x, p.Settle(), 1, b.opts)
	if err := ip.cache.load(); err != nil {
		return nil, err
	}
	ip.grid = x.ProtectionGrid(b.opts.gridMonths())
	ip.critical = ip.cache.dates()
	resolver, _ := p.(pricing.NameResolver)
	for _, n := range x.Names {
		if n.DefaultSettlement.IsZero() {
			continue
		}
		if resolver == nil {
			return nil, fmt.Errorf("%s: defaulted name %s without a name pricer: %w", x.Description(), n.Name, ErrUnsupported)
		}
		ip.critical = append(ip.critical, n.DefaultSettlement)
	}
	ip.resolver = resolver
	return ip, nil
}

func (ip *indexPricer) Pv(state *PathState, settle time.Time, mkt market.Market) (float64, error) {
	if state == nil {
		return 0, ErrNilState
	}
	state.advance(settle)
	if ip.after(settle) {
		return 0, nil
	}
	x := ip.index
	sign := x.ProtectionSign()
	total := 0.0
	for i, n := range x.Names {
		if !n.DefaultSettlement.IsZero() {
			v, err := ip.resolver.NamePricer(i).At(settle, mkt).Pv()
			if err != nil {
				return 0, err
			}
			total += v
			continue
		}
		surv, ok := mkt.SurvivalCurve(n.Name)
		if !ok {
			continue
		}
		scale := x.Face * n.Weight * ip.pricer.Notional()
		v, err := creditValue(ip.cache, ip.grid, x.Ccy, n.Recovery, sign, scale, surv, settle, mkt, ip.opts)
		if err != nil {
			return 0, fmt.Errorf("%s: %s: %w", x.Description(), n.Name, err)
		}
		total += v
	}
	return total, nil
}
