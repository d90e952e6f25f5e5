package ccr

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/model"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
)

// kernel is the payoff-specific part of the option engine.
type kernel interface {
	// observe updates path memory from the market at settle, on or before expiry.
	observe(state *PathState, mkt market.Market, level float64) (spot float64, err error)
	// live is the undiscounted value before expiry per unit of numeraire.
	live(state *PathState, spot, level, sigma, tau float64) float64
	// exercisable reports whether the payoff is still alive on this path.
	exercisable(state *PathState) bool
}

// vanillaKernel is a European option under Black or Black-normal.
type vanillaKernel struct {
	model  product.VolModel
	phi    float64
	strike float64
}

func (vanillaKernel) observe(_ *PathState, _ market.Market, level float64) (float64, error) {
	return level, nil
}

func (k vanillaKernel) live(_ *PathState, _, level, sigma, tau float64) float64 {
	return pricing.OptionValue(k.model, k.phi, level, k.strike, sigma, tau)
}

func (vanillaKernel) exercisable(*PathState) bool { return true }

// optionPricer runs the exercise state machine shared by vanilla and barrier options.
//
// Before and at expiry the option is valued from the underlier level. At expiry the exercise
// decision is taken from the level. When the first sample after expiry arrives with no
// decision yet, the level at expiry is inferred by a Brownian bridge between the last
// sample before expiry and the current level. This is an approximation of the terminal
// level, not a re-derivation of it.
type optionPricer struct {
	core
	option *product.Option
	under  Underlier
	kernel kernel
	phi    float64
	// asOfVol is the forward volatility seen from as-of, used by the bridge when the
	// convexity volatility is fixed.
	asOfVol float64
}

func newOptionPricer(p pricing.Pricer, o *product.Option, k kernel, b *builder) (*optionPricer, error) {
	under, err := newUnderlier(o, p, b.opts)
	if err != nil {
		return nil, err
	}
	op := &optionPricer{
		core:    newCore(p, b),
		option:  o,
		under:   under,
		kernel:  k,
		phi:     float64(o.Type),
		asOfVol: under.Volatility(p.AsOf()),
	}
	op.critical = append(o.CriticalDates(), under.Dates()...)
	return op, nil
}

func (op *optionPricer) Pv(state *PathState, settle time.Time, mkt market.Market) (float64, error) {
	if state == nil {
		return 0, ErrNilState
	}
	restarted := state.restart(settle)
	fee, err := op.feePv(state, settle, mkt)
	if err != nil {
		return 0, err
	}
	if op.after(settle) {
		state.lastDate = settle
		return fee, nil
	}
	v, err := op.value(state, restarted, settle, mkt)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op.option.Description(), err)
	}
	return fee + v, nil
}

func (op *optionPricer) value(state *PathState, restarted bool, settle time.Time, mkt market.Market) (float64, error) {
	o := op.option
	level, num, err := op.under.Value(mkt, settle)
	if err != nil {
		return 0, err
	}
	scale := op.scale()

	if !settle.After(o.Expiry) {
		spot, err := op.kernel.observe(state, mkt, level)
		if err != nil {
			return 0, err
		}
		sigma := op.under.Volatility(settle)
		state.lastDate, state.lastLevel, state.lastVol = settle, level, sigma
		if settle.Before(o.Expiry) {
			tau := pricing.OptionTime(settle, o.Expiry)
			return scale * num * op.kernel.live(state, spot, level, sigma, tau), nil
		}
		op.resolve(state, level, num, settle, mkt)
		return op.exercised(state, level, num, settle, mkt)
	}

	if state.exercise == ExerciseNone {
		atExpiry := level
		if !restarted {
			atExpiry = op.bridge(state, level, settle)
		}
		op.resolve(state, atExpiry, num, settle, mkt)
	}
	state.lastDate = settle
	return op.exercised(state, level, num, settle, mkt)
}

// bridge infers the level at expiry from the last sample before expiry and the level at
// settle: lastLevel * exp(h ln(level/lastLevel) + h(1-h) v) with h = dt/dT and
// v = sigma^2 dT / 2. Normal-model and non-positive levels are bridged linearly.
func (op *optionPricer) bridge(state *PathState, level float64, settle time.Time) float64 {
	dT := yearFraction(state.lastDate, settle)
	if dT <= 0 {
		return level
	}
	dt := yearFraction(state.lastDate, op.option.Expiry)
	h := dt / dT
	if op.option.Model == product.Normal || level <= 0 || state.lastLevel <= 0 {
		return state.lastLevel + h*(level-state.lastLevel)
	}
	sigma := state.lastVol
	if op.opts.FixConvexityVolatility || sigma == 0 {
		sigma = op.asOfVol
	}
	v := 0.5 * sigma * sigma * dT
	return state.lastLevel * math.Exp(h*math.Log(level/state.lastLevel)+h*(1-h)*v)
}

// resolve takes the exercise decision from the level at expiry. Cash-settled options freeze
// their payout, expressed as an amount paid on the cash settlement date.
func (op *optionPricer) resolve(state *PathState, level, num float64, settle time.Time, mkt market.Market) {
	o := op.option
	if !op.kernel.exercisable(state) || op.phi*(level-o.Strike) <= 0 {
		state.exercise = NotExercised
		return
	}
	state.exercise = Exercised
	if o.Settlement != product.Cash {
		return
	}
	intrinsic := model.Intrinsic(op.phi, level, o.Strike)
	toCash := 1.0
	if disc, err := discountTo(mkt, o.Ccy); err == nil && o.CashDate().After(settle) {
		toCash = disc.DF(o.CashDate()) / disc.DF(settle)
	}
	state.payout = intrinsic * num / toCash
}

// exercised values a resolved option at settle.
func (op *optionPricer) exercised(state *PathState, level, num float64, settle time.Time, mkt market.Market) (float64, error) {
	o := op.option
	if state.exercise != Exercised || !pricing.SettlementDue(o, settle, op.opts.Settings(1)) {
		return 0, nil
	}
	scale := op.scale()
	if o.Settlement == product.Cash {
		disc, err := discountTo(mkt, o.Ccy)
		if err != nil {
			return 0, err
		}
		return scale * state.payout * disc.DF(o.CashDate()) / disc.DF(settle), nil
	}
	return scale * num * op.phi * (level - o.Strike), nil
}
