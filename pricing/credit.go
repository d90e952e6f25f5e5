package pricing

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/product"
)

// CDSPricer values a single-name CDS, weighting both legs by the probability of survival
// seen from the curve's as-of date. A missing survival curve values the trade at zero.
type CDSPricer struct {
	base
	cds *product.CDS
}

// NewCDSPricer prices a single-name CDS.
func NewCDSPricer(cds *product.CDS, mkt market.Market, settings Settings) *CDSPricer {
	return &CDSPricer{base: newBase(mkt, settings), cds: cds}
}

func (p *CDSPricer) Product() product.Product { return p.cds }

func (p *CDSPricer) At(settle time.Time, mkt market.Market) Pricer {
	return &CDSPricer{base: p.moved(settle, mkt), cds: p.cds}
}

func (p *CDSPricer) Pv() (float64, error) {
	c := p.cds
	if p.settle.After(c.Maturity()) {
		return 0, nil
	}
	scale := c.Face * p.Notional()
	if c.Defaulted() {
		v, err := defaultedValue(c, p.settle, p.mkt, p.settings)
		return v * scale, err
	}
	surv, ok := p.mkt.SurvivalCurve(c.Name)
	if !ok {
		return 0, nil
	}
	unit, err := cdsUnitValue(c, surv, p.settle, p.mkt, p.settings)
	if err != nil {
		return 0, fmt.Errorf("CDSPricer: %s: %w", c.Description(), err)
	}
	return unit * scale, nil
}

// cdsUnitValue is fee leg plus protection leg per unit notional.
func cdsUnitValue(c *product.CDS, surv curve.Survival, settle time.Time, mkt market.Market, s Settings) (float64, error) {
	sched, err := c.PaymentSchedule(settle)
	if err != nil {
		return 0, err
	}
	fee, err := discountSchedule(sched, c.Ccy, settle, mkt, s, surv.SurvivalProbability)
	if err != nil {
		return 0, err
	}
	disc, err := discountCurve(mkt, c.Ccy)
	if err != nil {
		return 0, err
	}
	prot := ProtectionLeg(c.ProtectionGrid(s.GridMonths()), settle, disc, surv)
	return fee + c.ProtectionSign()*(1-c.Recovery)*prot, nil
}

// ProtectionLeg returns the expected discounted default indicator over grid after settle:
// sum DF(t_i)/DF(s) * (S(max(t_{i-1}, s)) - S(t_i)). Survival to settle is not conditioned
// on, so a name likely to default before settle carries little protection value.
func ProtectionLeg(grid []time.Time, settle time.Time, disc curve.Discount, surv curve.Survival) float64 {
	dfSettle := disc.DF(settle)
	total := 0.0
	prev := settle
	for _, t := range grid {
		if !t.After(settle) {
			continue
		}
		total += disc.DF(t) / dfSettle * (surv.SurvivalProbability(prev) - surv.SurvivalProbability(t))
		prev = t
	}
	return total
}

// defaultedValue is the outstanding recovery settlement of a defaulted name per unit notional.
func defaultedValue(c *product.CDS, settle time.Time, mkt market.Market, s Settings) (float64, error) {
	pay := c.DefaultSettlement
	if pay.Before(settle) || (pay.Equal(settle) && !s.IncludeSettlePayments) {
		return 0, nil
	}
	disc, err := discountCurve(mkt, c.Ccy)
	if err != nil {
		return 0, err
	}
	return c.ProtectionSign() * (1 - c.Recovery) * disc.DF(pay) / disc.DF(settle), nil
}

// IndexPricer values a credit index as the weighted sum of its constituents.
type IndexPricer struct {
	base
	index *product.CreditIndex
}

func (p *IndexPricer) Product() product.Product { return p.index }

func (p *IndexPricer) At(settle time.Time, mkt market.Market) Pricer {
	return &IndexPricer{base: p.moved(settle, mkt), index: p.index}
}

// NamePricer returns the full single-name pricer of constituent i.
func (p *IndexPricer) NamePricer(i int) Pricer {
	return &CDSPricer{base: p.base, cds: p.index.Constituent(i)}
}

func (p *IndexPricer) Pv() (float64, error) {
	if p.settle.After(p.index.Maturity()) {
		return 0, nil
	}
	total := 0.0
	for i := range p.index.Names {
		v, err := p.NamePricer(i).Pv()
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}
