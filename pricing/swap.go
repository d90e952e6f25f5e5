package pricing

import (
	"time"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/product"
)

// SwapPricer values a swap as the sum of its legs, zero after a break date.
type SwapPricer struct {
	base
	swap *product.Swap
	legs []Pricer
	fee  Pricer
}

func newSwapPricer(s *product.Swap, b base) *SwapPricer {
	p := &SwapPricer{base: b, swap: s, fee: feePricer(s.Fees, b)}
	for _, leg := range s.Legs() {
		p.legs = append(p.legs, &CashflowPricer{base: b, prod: leg})
	}
	return p
}

func (p *SwapPricer) Product() product.Product { return p.swap }

func (p *SwapPricer) At(settle time.Time, mkt market.Market) Pricer {
	return newSwapPricer(p.swap, p.moved(settle, mkt))
}

// Components returns the pay and receive leg pricers.
func (p *SwapPricer) Components() []Pricer { return p.legs }

func (p *SwapPricer) FeePricer() Pricer { return p.fee }

func (p *SwapPricer) Pv() (float64, error) {
	fee, err := feePv(p.fee)
	if err != nil {
		return 0, err
	}
	if !p.swap.BreakDate.IsZero() && p.settle.After(p.swap.BreakDate) {
		return fee, nil
	}
	total := fee
	for _, leg := range p.legs {
		v, err := leg.Pv()
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}
