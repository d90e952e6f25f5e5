package ccr

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/model"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
)

// Approximation is implemented by fast pricers that may replace the full model by a
// calibrated compression. Approximate is false when the exact model is in use.
type Approximation interface {
	Approximate() bool
}

// initialCorrelation seeds the base correlation search.
const initialCorrelation = 0.3

// tranchePricer values a CDO tranche either from two homogeneous large pools with
// calibrated base correlations or, when that compression misses the exact value at as-of,
// from the exact heterogeneous pool.
type tranchePricer struct {
	core
	tranche     *product.Tranche
	cache       *paymentCache
	grid        []time.Time
	approximate bool
	rhoAttach   float64
	rhoDetach   float64
}

func newTranchePricer(p pricing.Pricer, tr *product.Tranche, b *builder) (*tranchePricer, error) {
	tp := &tranchePricer{core: newCore(p, b), tranche: tr}
	tp.cache = newPaymentCache(tr, p.Settle(), 1, b.opts)
	if err := tp.cache.load(); err != nil {
		return nil, err
	}
	tp.grid = tr.ProtectionGrid(b.opts.gridMonths())
	tp.critical = tp.cache.dates()

	log := b.log.With(zap.String("product", tr.Description()))
	curves, ok := pricing.PoolCurves(tr, p.Market())
	if !ok {
		log.Warn("tranche pool incomplete, using exact model")
		return tp, nil
	}
	if err := tp.calibrate(curves, p.Settle()); err != nil {
		log.Warn("base correlation calibration failed, using exact model", zap.Error(err))
		return tp, nil
	}

	exact, err := p.Pv()
	if err != nil {
		return nil, err
	}
	tp.approximate = true
	approx, err := tp.Pv(tp.NewPathState(), p.Settle(), p.Market())
	if err != nil {
		return nil, err
	}
	diff := math.Abs(approx - exact)
	if diff > b.opts.BasketTolerance*math.Max(1, math.Abs(exact)) {
		tp.approximate = false
		log.Warn("compressed tranche misses exact value, using exact model",
			zap.Float64("exact", exact),
			zap.Float64("approx", approx),
			zap.Float64("tolerance", b.opts.BasketTolerance),
		)
		return tp, nil
	}
	log.Debug("tranche compressed",
		zap.Float64("rho_attach", tp.rhoAttach),
		zap.Float64("rho_detach", tp.rhoDetach),
		zap.Float64("mismatch", diff),
	)
	return tp, nil
}

// calibrate solves the flat correlations reproducing the exact expected base losses at the
// attachment and detachment points to maturity.
func (tp *tranchePricer) calibrate(curves []curve.Survival, settle time.Time) error {
	tr := tp.tranche
	pool := pricing.PoolAt(tr, curves, settle, tr.End)
	pd, rec := pricing.PoolAverages(pool)
	solve := func(k float64) (float64, error) {
		if k <= 0 {
			return initialCorrelation, nil
		}
		target := model.ExpectedBaseLoss(pool, k)
		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				return math.Pow(model.LHPExpectedBaseLoss(pd, rec, math.Tanh(x[0]), k)-target, 2)
			},
		}
		res, err := optimize.Minimize(problem, []float64{math.Atanh(initialCorrelation)}, nil, &optimize.NelderMead{})
		if res == nil {
			return 0, fmt.Errorf("base correlation at %.4f: %w", k, err)
		}
		return math.Tanh(res.X[0]), nil
	}
	var err error
	if tp.rhoAttach, err = solve(tr.Attach); err != nil {
		return err
	}
	tp.rhoDetach, err = solve(tr.Detach)
	return err
}

// Approximate reports whether the compressed model is in use.
func (tp *tranchePricer) Approximate() bool { return tp.approximate }

func (tp *tranchePricer) Pv(state *PathState, settle time.Time, mkt market.Market) (float64, error) {
	if state == nil {
		return 0, ErrNilState
	}
	state.advance(settle)
	if tp.after(settle) {
		return 0, nil
	}
	tr := tp.tranche
	curves, ok := pricing.PoolCurves(tr, mkt)
	if !ok {
		return 0, nil
	}
	loss := func(t time.Time) float64 {
		pool := pricing.PoolAt(tr, curves, settle, t)
		if !tp.approximate {
			return model.ExpectedTrancheLoss(pool, tr.Attach, tr.Detach)
		}
		pd, rec := pricing.PoolAverages(pool)
		return model.LHPExpectedTrancheLoss(pd, rec, tp.rhoAttach, tp.rhoDetach, tr.Attach, tr.Detach)
	}
	premium, err := tp.cache.fastPv(mkt, settle, tp.opts.IncludeSettlePayments, tp.opts.CleanPv, func(t time.Time) float64 {
		return 1 - loss(t)
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", tr.Description(), err)
	}
	disc, err := discountTo(mkt, tr.Ccy)
	if err != nil {
		return 0, err
	}
	prot := pricing.TrancheProtection(remaining(tp.grid, settle), settle, disc, loss)
	return (premium + tr.ProtectionSign()*prot) * tp.scale(), nil
}
