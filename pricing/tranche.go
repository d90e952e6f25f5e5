package pricing

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/model"
	"github.com/meenmo/ccrfast/product"
)

// TranchePricer values a CDO tranche with the heterogeneous one-factor Gaussian copula.
// Any missing survival curve values the tranche at zero.
type TranchePricer struct {
	base
	tranche *product.Tranche
}

func (p *TranchePricer) Product() product.Product { return p.tranche }

func (p *TranchePricer) At(settle time.Time, mkt market.Market) Pricer {
	return &TranchePricer{base: p.moved(settle, mkt), tranche: p.tranche}
}

func (p *TranchePricer) Pv() (float64, error) {
	tr := p.tranche
	if p.settle.After(tr.Maturity()) {
		return 0, nil
	}
	curves, ok := PoolCurves(tr, p.mkt)
	if !ok {
		return 0, nil
	}
	settle := p.settle
	loss := func(t time.Time) float64 {
		return model.ExpectedTrancheLoss(PoolAt(tr, curves, settle, t), tr.Attach, tr.Detach)
	}
	v, err := TrancheUnitValue(tr, settle, p.mkt, p.settings, loss)
	if err != nil {
		return 0, fmt.Errorf("TranchePricer: %s: %w", tr.Description(), err)
	}
	return v * tr.Face * p.Notional(), nil
}

// PoolCurves looks up the survival curve of every pool name.
func PoolCurves(tr *product.Tranche, mkt market.Market) ([]curve.Survival, bool) {
	if len(tr.Names) == 0 {
		return nil, false
	}
	out := make([]curve.Survival, len(tr.Names))
	for i, n := range tr.Names {
		c, ok := mkt.SurvivalCurve(n.Name)
		if !ok {
			return nil, false
		}
		out[i] = c
	}
	return out, true
}

// PoolAt returns the pool with default probabilities from settle to t.
func PoolAt(tr *product.Tranche, curves []curve.Survival, settle, t time.Time) []model.Obligor {
	pool := make([]model.Obligor, len(tr.Names))
	for i, n := range tr.Names {
		s0 := curves[i].SurvivalProbability(settle)
		pd := 1.0
		if s0 > 0 {
			pd = 1 - curves[i].SurvivalProbability(t)/s0
		}
		pool[i] = model.Obligor{PD: pd, Weight: n.Weight, Recovery: n.Recovery, Beta: n.Beta}
	}
	return pool
}

// TrancheUnitValue assembles premium and protection legs per unit tranche notional from an
// expected tranche loss function EL(t) seen from settle.
func TrancheUnitValue(tr *product.Tranche, settle time.Time, mkt market.Market, s Settings, loss func(time.Time) float64) (float64, error) {
	sched, err := tr.PaymentSchedule(settle)
	if err != nil {
		return 0, err
	}
	premium, err := discountSchedule(sched, tr.Ccy, settle, mkt, s, func(t time.Time) float64 {
		return 1 - loss(t)
	})
	if err != nil {
		return 0, err
	}
	disc, err := discountCurve(mkt, tr.Ccy)
	if err != nil {
		return 0, err
	}
	return premium + tr.ProtectionSign()*TrancheProtection(tr.ProtectionGrid(s.GridMonths()), settle, disc, loss), nil
}

// TrancheProtection discounts expected tranche loss increments over the grid after settle.
func TrancheProtection(grid []time.Time, settle time.Time, disc curve.Discount, loss func(time.Time) float64) float64 {
	dfSettle := disc.DF(settle)
	total, prevLoss := 0.0, 0.0
	for _, t := range grid {
		if !t.After(settle) {
			continue
		}
		l := loss(t)
		total += disc.DF(t) / dfSettle * (l - prevLoss)
		prevLoss = l
	}
	return total
}

// PoolAverages returns the weight-averaged default probability and recovery of a pool.
func PoolAverages(pool []model.Obligor) (pd, recovery float64) {
	w := 0.0
	for _, o := range pool {
		pd += o.Weight * o.PD
		recovery += o.Weight * o.Recovery
		w += o.Weight
	}
	if w == 0 {
		return 0, 0
	}
	return pd / w, recovery / w
}
