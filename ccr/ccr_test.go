package ccr_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/meenmo/ccrfast/ccr"
	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/marketdata"
	"github.com/meenmo/ccrfast/model"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
	"github.com/meenmo/ccrfast/utils"
)

var asOf = marketdata.SampleAsOf

func monthly(years int) []time.Time {
	return utils.MonthlyGrid(asOf, asOf.AddDate(years, 0, 0), 1)
}

func build(t *testing.T, prod product.Product, opts ccr.Options, extra ...ccr.BuildOption) (pricing.Pricer, ccr.FastPricer) {
	t.Helper()
	p, err := pricing.New(prod, marketdata.SampleMarket(asOf), opts.Settings(1))
	require.NoError(t, err)
	fp, err := ccr.Build(p, opts, extra...)
	require.NoError(t, err)
	return p, fp
}

func barrierOn(kind product.BarrierType, strike, lower, upper float64, settlement product.SettlementType) *product.BarrierOption {
	return &product.BarrierOption{
		Option:  *marketdata.SampleCall(asOf, strike, settlement),
		Barrier: kind,
		Lower:   lower,
		Upper:   upper,
	}
}

func swapWithBreak() *product.Swap {
	s := marketdata.SampleSwap(asOf, 0.025)
	s.BreakDate = utils.AddMonth(asOf, 27)
	return s
}

// indexWithDefault has its first name defaulted, settling two months after as-of.
func indexWithDefault() *product.CreditIndex {
	x := marketdata.SampleIndex(asOf)
	x.Names[0].DefaultSettlement = asOf.AddDate(0, 2, 0)
	return x
}

func fastPv(t *testing.T, fp ccr.FastPricer, s *ccr.PathState, settle time.Time, mkt market.Market) float64 {
	t.Helper()
	v, err := fp.Pv(s, settle, mkt)
	require.NoError(t, err)
	return v
}

func TestFastMatchesFullPricer(t *testing.T) {
	t.Parallel()

	exact := ccr.DefaultOptions()
	exact.BasketTolerance = 0

	cases := []struct {
		name string
		prod product.Product
		opts ccr.Options
		tol  float64
	}{
		{"swap", marketdata.SampleSwap(asOf, 0.025), ccr.DefaultOptions(), 1e-9},
		{"swap discounting accrued", marketdata.SampleSwap(asOf, 0.025), ccr.Options{DiscountAccrued: true, IncludeSettlePayments: true}, 1e-9},
		{"bond", product.NewBond("EUR", 1e6, asOf, asOf.AddDate(4, 0, 0), 0.03, market.EURFixedAnnual), ccr.DefaultOptions(), 1e-9},
		{"cds", marketdata.SampleCDS(asOf, "GAMMA"), ccr.DefaultOptions(), 1e-9},
		{"index", marketdata.SampleIndex(asOf), ccr.DefaultOptions(), 1e-9},
		{"tranche", marketdata.SampleTranche(asOf), exact, 1e-9},
		{"cash call", marketdata.SampleCall(asOf, 4500, product.Cash), ccr.DefaultOptions(), 1e-9},
		{"physical put", func() product.Product {
			o := marketdata.SampleCall(asOf, 5000, product.Physical)
			o.Type = product.Put
			return o
		}(), ccr.DefaultOptions(), 1e-9},
		{"swaption", marketdata.SampleSwaption(asOf, 0.02), ccr.DefaultOptions(), 1e-9},
		{"barrier", marketdata.SampleBarrier(asOf, 4500, 3000), ccr.DefaultOptions(), 1e-9},
		{"up-and-out", barrierOn(product.UpOut, 4500, 0, 5500, product.Physical), ccr.DefaultOptions(), 1e-9},
		{"double knock-out", barrierOn(product.DoubleOut, 4500, 3000, 6000, product.Cash), ccr.DefaultOptions(), 1e-9},
		{"swap with break", swapWithBreak(), ccr.DefaultOptions(), 1e-9},
		{"index with defaulted name", indexWithDefault(), ccr.DefaultOptions(), 1e-9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, fp := build(t, tc.prod, tc.opts)
			base := marketdata.SampleMarket(asOf)
			state := fp.NewPathState()
			dates := fp.ExposureDates(monthly(7))
			require.NotEmpty(t, dates)
			for _, d := range dates {
				mkt := base.Clone(d)
				fast := fastPv(t, fp, state, d, mkt)
				full, err := p.At(d, mkt).Pv()
				require.NoError(t, err)
				assert.InDelta(t, full, fast, tc.tol*math.Max(1, math.Abs(full)), "settle %s", utils.FormatDate(d))
			}
		})
	}
}

func TestExposureDates(t *testing.T) {
	t.Parallel()

	swap := marketdata.SampleSwap(asOf, 0.025)
	_, fp := build(t, swap, ccr.DefaultOptions())
	external := monthly(10)
	dates := fp.ExposureDates(external)

	require.NotEmpty(t, dates)
	assert.Equal(t, asOf, dates[0])
	for i := 1; i < len(dates); i++ {
		assert.True(t, dates[i].After(dates[i-1]))
	}

	// External dates stop at the first one beyond maturity.
	mat := swap.Maturity()
	var beyond []time.Time
	for _, d := range dates {
		if d.After(mat) {
			beyond = append(beyond, d)
		}
	}
	require.Len(t, beyond, 1)
	for _, d := range external {
		if d.After(mat) {
			assert.Equal(t, d, beyond[0])
			break
		}
	}

	// Every payment date is bracketed by the day before it.
	sched, err := swap.Pay.PaymentSchedule(asOf)
	require.NoError(t, err)
	for _, pay := range sched {
		assert.Contains(t, dates, pay.PayDate)
		assert.Contains(t, dates, utils.PrevDay(pay.PayDate))
	}
}

func TestExposureDatesFromSettle(t *testing.T) {
	t.Parallel()

	opts := ccr.DefaultOptions()
	opts.ExposureDatesFromSettle = true
	p, fp := build(t, marketdata.SampleCDS(asOf, "ACME"), opts)
	dates := fp.ExposureDates(nil)
	require.NotEmpty(t, dates)
	assert.Equal(t, p.Settle(), dates[0])
	assert.False(t, dates[len(dates)-1].After(p.Product().Maturity()))
}

func TestZeroBeyondMaturity(t *testing.T) {
	t.Parallel()

	prods := []product.Product{
		marketdata.SampleSwap(asOf, 0.025),
		marketdata.SampleCDS(asOf, "ACME"),
		marketdata.SampleIndex(asOf),
		marketdata.SampleTranche(asOf),
		marketdata.SampleCall(asOf, 4500, product.Cash),
		marketdata.SampleSwaption(asOf, 0.02),
		marketdata.SampleBarrier(asOf, 4500, 3000),
	}
	for _, prod := range prods {
		_, fp := build(t, prod, ccr.DefaultOptions())
		after := prod.Maturity().AddDate(0, 0, 1)
		v := fastPv(t, fp, fp.NewPathState(), after, marketdata.SampleMarket(asOf).Clone(after))
		assert.Zero(t, v, prod.Description())
	}
}

func TestSwapIsSumOfComponents(t *testing.T) {
	t.Parallel()

	_, fp := build(t, marketdata.SampleSwap(asOf, 0.025), ccr.DefaultOptions())
	comp, ok := fp.(interface{ Components() []ccr.FastPricer })
	require.True(t, ok)
	require.Len(t, comp.Components(), 2)

	state := fp.NewPathState()
	base := marketdata.SampleMarket(asOf)
	for _, d := range monthly(3) {
		mkt := base.Clone(d)
		total := fastPv(t, fp, state, d, mkt)
		sum := 0.0
		for i, part := range comp.Components() {
			sum += fastPv(t, part, state.Child(i), d, mkt)
		}
		assert.InDelta(t, sum, total, 1e-9)
	}
}

// oneYearSwap is the sample swap cut to one year.
func oneYearSwap(rate float64) *product.Swap {
	s := marketdata.SampleSwap(asOf, rate)
	end := s.Receive.Effective.AddDate(1, 0, 0)
	s.Receive.End, s.Pay.End = end, end
	return s
}

func TestParSwapScenario(t *testing.T) {
	t.Parallel()

	opts := ccr.DefaultOptions()
	mkt := marketdata.SampleMarket(asOf)
	rate, err := pricing.ParRate(oneYearSwap(0), mkt, opts.Settings(1), pricing.DefaultSolverConfig)
	require.NoError(t, err)

	atPar := oneYearSwap(rate)
	tol := 1e-8 * atPar.Receive.Face
	_, fp := build(t, atPar, opts)
	assert.InDelta(t, 0, fastPv(t, fp, fp.NewPathState(), asOf, mkt), tol)

	swap := oneYearSwap(rate + 1e-4)
	_, bumped := build(t, swap, opts)
	annuity, err := pricing.NewCashflowPricer(swap.Receive.WithCoupon(1), mkt, opts.Settings(1)).Pv()
	require.NoError(t, err)
	assert.InDelta(t, annuity*1e-4, fastPv(t, bumped, bumped.NewPathState(), asOf, mkt), tol)
}

func TestBlackAtTheMoney(t *testing.T) {
	t.Parallel()

	mkt := marketdata.SampleMarket(asOf)
	call := marketdata.SampleCall(asOf, 0, product.Physical)
	fwd, num, err := pricing.ForwardLevel(call.Underlying.(product.ForwardUnderlying), "EUR", asOf, mkt)
	require.NoError(t, err)
	call.Strike = fwd

	_, fp := build(t, call, ccr.DefaultOptions())
	tau := pricing.OptionTime(asOf, call.Expiry)
	want := call.Face * num * fwd * (2*model.N(0.5*0.2*math.Sqrt(tau)) - 1)
	assert.InDelta(t, want, fastPv(t, fp, fp.NewPathState(), asOf, mkt), 1e-6)
}

func TestExerciseStateIsMonotone(t *testing.T) {
	t.Parallel()

	swaption := marketdata.SampleSwaption(asOf, 0.02)
	_, fp := build(t, swaption, ccr.DefaultOptions())
	base := marketdata.SampleMarket(asOf)
	state := fp.NewPathState()

	seen := ccr.ExerciseNone
	for _, d := range fp.ExposureDates(monthly(7)) {
		fastPv(t, fp, state, d, base.Clone(d))
		switch {
		case d.Before(swaption.Expiry):
			assert.Equal(t, ccr.ExerciseNone, state.Exercise())
		default:
			assert.Equal(t, ccr.Exercised, state.Exercise())
		}
		if seen != ccr.ExerciseNone {
			assert.Equal(t, seen, state.Exercise())
		}
		seen = state.Exercise()
	}
	assert.Equal(t, ccr.Exercised, seen)

	// Going back in time restarts the path.
	fastPv(t, fp, state, asOf, base)
	assert.Equal(t, ccr.ExerciseNone, state.Exercise())
}

func TestBridgeAcrossExpiry(t *testing.T) {
	t.Parallel()

	base := marketdata.SampleMarket(asOf)
	for _, tc := range []struct {
		strike float64
		want   ccr.ExerciseState
	}{
		{3000, ccr.Exercised},
		{7000, ccr.NotExercised},
	} {
		call := marketdata.SampleCall(asOf, tc.strike, product.Cash)
		call.CashSettleDate = call.Expiry.AddDate(0, 2, 0)
		_, fp := build(t, call, ccr.DefaultOptions())
		state := fp.NewPathState()

		before := call.Expiry.AddDate(0, 0, -30)
		after := call.Expiry.AddDate(0, 0, 30)
		fastPv(t, fp, state, before, base.Clone(before))
		v := fastPv(t, fp, state, after, base.Clone(after))
		assert.Equal(t, tc.want, state.Exercise(), "strike %g", tc.strike)
		if tc.want == ccr.Exercised {
			assert.Greater(t, v, 0.0)
		} else {
			assert.Zero(t, v)
		}
	}
}

func TestCashPayoutIsFrozenAtExpiry(t *testing.T) {
	t.Parallel()

	call := marketdata.SampleCall(asOf, 4500, product.Cash)
	call.CashSettleDate = call.Expiry.AddDate(0, 0, 10)
	_, fp := build(t, call, ccr.DefaultOptions())
	base := marketdata.SampleMarket(asOf)
	state := fp.NewPathState()

	atExpiry := fastPv(t, fp, state, call.Expiry, base.Clone(call.Expiry))
	assert.InDelta(t, 300*call.Face, atExpiry, 1e-6)

	// The spot rallies after expiry; the payout does not move with it.
	later := call.Expiry.AddDate(0, 0, 5)
	rallied := base.Clone(later).SetSpot(marketdata.SampleEquity, 6000, 0.02)
	v := fastPv(t, fp, state, later, rallied)
	assert.InDelta(t, atExpiry, v, 1e-3*atExpiry)
	assert.Greater(t, v, atExpiry)
}

func TestDownAndOutStaysDead(t *testing.T) {
	t.Parallel()

	barrier := marketdata.SampleBarrier(asOf, 4500, 4000)
	_, fp := build(t, barrier, ccr.DefaultOptions())
	base := marketdata.SampleMarket(asOf)
	state := fp.NewPathState()

	d1, d2, d3 := asOf.AddDate(0, 1, 0), asOf.AddDate(0, 2, 0), asOf.AddDate(0, 3, 0)
	assert.Greater(t, fastPv(t, fp, state, d1, base.Clone(d1)), 0.0)
	assert.False(t, state.Knocked())

	crash := base.Clone(d2).SetSpot(marketdata.SampleEquity, 3900, 0.02)
	assert.Zero(t, fastPv(t, fp, state, d2, crash))
	assert.True(t, state.Knocked())

	// Recovery of the spot does not revive a knocked-out option.
	assert.Zero(t, fastPv(t, fp, state, d3, base.Clone(d3)))
	assert.True(t, state.Knocked())
	exp := barrier.Expiry
	assert.Zero(t, fastPv(t, fp, state, exp, base.Clone(exp)))
	assert.Equal(t, ccr.NotExercised, state.Exercise())

	// A fresh path is alive again.
	fresh := fp.NewPathState()
	assert.Greater(t, fastPv(t, fp, fresh, d3, base.Clone(d3)), 0.0)
}

func TestKnockInActivates(t *testing.T) {
	t.Parallel()

	barrier := marketdata.SampleBarrier(asOf, 4500, 4000)
	barrier.Barrier = product.DownIn
	vanilla := marketdata.SampleCall(asOf, 4500, product.Physical)
	_, fp := build(t, barrier, ccr.DefaultOptions())
	_, vfp := build(t, vanilla, ccr.DefaultOptions())
	base := marketdata.SampleMarket(asOf)

	state := fp.NewPathState()
	d1, d2 := asOf.AddDate(0, 1, 0), asOf.AddDate(0, 2, 0)
	fastPv(t, fp, state, d1, base.Clone(d1))
	crash := base.Clone(d2).SetSpot(marketdata.SampleEquity, 3900, 0.02)
	got := fastPv(t, fp, state, d2, crash)
	want := fastPv(t, vfp, vfp.NewPathState(), d2, crash)
	assert.True(t, state.Knocked())
	assert.InDelta(t, want, got, 1e-9)
}

func TestTrancheCompression(t *testing.T) {
	t.Parallel()

	loose := ccr.DefaultOptions()
	loose.BasketTolerance = 1e9
	_, fp := build(t, marketdata.SampleTranche(asOf), loose)
	approx, ok := fp.(ccr.Approximation)
	require.True(t, ok)
	assert.True(t, approx.Approximate())
	v := fastPv(t, fp, fp.NewPathState(), asOf.AddDate(1, 0, 0), marketdata.SampleMarket(asOf).Clone(asOf.AddDate(1, 0, 0)))
	assert.False(t, math.IsNaN(v))

	strict := ccr.DefaultOptions()
	strict.BasketTolerance = 0
	core, logs := observer.New(zapcore.WarnLevel)
	_, fp = build(t, marketdata.SampleTranche(asOf), strict, ccr.WithLogger(zap.New(core)))
	assert.False(t, fp.(ccr.Approximation).Approximate())
	assert.Equal(t, 1, logs.FilterMessage("compressed tranche misses exact value, using exact model").Len())
}

func TestMissingCreditCurve(t *testing.T) {
	t.Parallel()

	cds := marketdata.SampleCDS(asOf, "ACME")
	_, fp := build(t, cds, ccr.DefaultOptions())
	d := asOf.AddDate(1, 0, 0)
	mkt := market.NewSnapshot(d)
	disc, _ := marketdata.SampleMarket(asOf).DiscountCurve("EUR")
	mkt.SetDiscount("EUR", disc)
	assert.Zero(t, fastPv(t, fp, fp.NewPathState(), d, mkt))
}

func TestSettleDatePayments(t *testing.T) {
	t.Parallel()

	bond := product.NewBond("EUR", 1e6, asOf, asOf.AddDate(3, 0, 0), 0.03, market.EURFixedAnnual)
	sched, err := bond.PaymentSchedule(asOf)
	require.NoError(t, err)
	first := sched[0]
	mkt := marketdata.SampleMarket(asOf).Clone(first.PayDate)

	with := ccr.DefaultOptions()
	with.IncludeSettlePayments = true
	_, in := build(t, bond, with)
	_, out := build(t, bond, ccr.DefaultOptions())

	vin := fastPv(t, in, in.NewPathState(), first.PayDate, mkt)
	vout := fastPv(t, out, out.NewPathState(), first.PayDate, mkt)
	assert.InDelta(t, first.Amount*bond.Face, vin-vout, 1e-6)
}

func TestCleanPv(t *testing.T) {
	t.Parallel()

	bond := product.NewBond("EUR", 1e6, asOf, asOf.AddDate(3, 0, 0), 0.03, market.EURFixedAnnual)
	clean := ccr.DefaultOptions()
	clean.CleanPv = true
	_, cfp := build(t, bond, clean)
	_, dfp := build(t, bond, ccr.DefaultOptions())

	mid := asOf.AddDate(0, 6, 0)
	mkt := marketdata.SampleMarket(asOf).Clone(mid)
	dirty := fastPv(t, dfp, dfp.NewPathState(), mid, mkt)
	cleanV := fastPv(t, cfp, cfp.NewPathState(), mid, mkt)
	assert.InDelta(t, 0.03*0.5*bond.Face, dirty-cleanV, 0.01*0.03*0.5*bond.Face)
}

type basketUnderlying struct{}

func (basketUnderlying) UnderlyingKind() string { return "BASKET" }

func (basketUnderlying) UnderlyingMaturity() time.Time { return asOf.AddDate(1, 0, 0) }

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	_, err := ccr.Build(nil, ccr.DefaultOptions())
	assert.ErrorIs(t, err, ccr.ErrNilPricer)

	o := marketdata.SampleCall(asOf, 4800, product.Cash)
	o.Underlying = basketUnderlying{}
	o.VolKey = marketdata.SampleEquity
	p, err := pricing.New(o, marketdata.SampleMarket(asOf), pricing.Settings{})
	require.NoError(t, err)
	_, err = ccr.Build(p, ccr.DefaultOptions())
	assert.ErrorIs(t, err, ccr.ErrUnsupported)

	_, fp := build(t, marketdata.SampleSwap(asOf, 0.025), ccr.DefaultOptions())
	_, err = fp.Pv(nil, asOf, marketdata.SampleMarket(asOf))
	assert.ErrorIs(t, err, ccr.ErrNilState)
}

func TestFeeIsCarried(t *testing.T) {
	t.Parallel()

	call := marketdata.SampleCall(asOf, 4500, product.Cash)
	feeDate := asOf.AddDate(0, 0, 5)
	call.Fees = &product.Fee{Ccy: "EUR", Payments: []product.FeePayment{{Date: feeDate, Amount: -10000}}}
	p, fp := build(t, call, ccr.DefaultOptions())

	dates := fp.ExposureDates(nil)
	assert.Contains(t, dates, feeDate)
	assert.Contains(t, dates, utils.PrevDay(feeDate))

	base := marketdata.SampleMarket(asOf)
	state := fp.NewPathState()
	for _, d := range []time.Time{asOf, utils.PrevDay(feeDate), feeDate, asOf.AddDate(0, 1, 0)} {
		mkt := base.Clone(d)
		full, err := p.At(d, mkt).Pv()
		require.NoError(t, err)
		assert.InDelta(t, full, fastPv(t, fp, state, d, mkt), 1e-6*math.Abs(full))
	}
}

func TestBarrierKnockStates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		barrier product.BarrierType
		shock   float64
	}{
		{product.UpOut, 5600},
		{product.UpIn, 5600},
		{product.DownIn, 3900},
		{product.DoubleOut, 3900},
		{product.DoubleOut, 5600},
		{product.DoubleIn, 3900},
		{product.DoubleIn, 5600},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s at %g", tc.barrier, tc.shock), func(t *testing.T) {
			t.Parallel()
			_, fp := build(t, barrierOn(tc.barrier, 4500, 4000, 5500, product.Cash), ccr.DefaultOptions())
			_, vfp := build(t, marketdata.SampleCall(asOf, 4500, product.Cash), ccr.DefaultOptions())
			base := marketdata.SampleMarket(asOf)
			state := fp.NewPathState()
			vanilla := func(d time.Time, mkt market.Market) float64 {
				return fastPv(t, vfp, vfp.NewPathState(), d, mkt)
			}

			d1, d2, d3 := asOf.AddDate(0, 1, 0), asOf.AddDate(0, 2, 0), asOf.AddDate(0, 3, 0)
			assert.Greater(t, fastPv(t, fp, state, d1, base.Clone(d1)), 0.0)
			assert.False(t, state.Knocked())

			shocked := base.Clone(d2).SetSpot(marketdata.SampleEquity, tc.shock, 0.02)
			v := fastPv(t, fp, state, d2, shocked)
			require.True(t, state.Knocked())
			if tc.barrier.KnockIn() {
				want := vanilla(d2, shocked)
				assert.InDelta(t, want, v, 1e-9*want)
			} else {
				assert.Zero(t, v)
			}

			// The knock is remembered after the spot returns inside the barriers.
			recovered := base.Clone(d3)
			v = fastPv(t, fp, state, d3, recovered)
			assert.True(t, state.Knocked())
			if tc.barrier.KnockIn() {
				want := vanilla(d3, recovered)
				assert.InDelta(t, want, v, 1e-9*want)
			} else {
				assert.Zero(t, v)
			}

			exp := asOf.AddDate(1, 0, 0)
			v = fastPv(t, fp, state, exp, base.Clone(exp))
			if tc.barrier.KnockIn() {
				assert.Equal(t, ccr.Exercised, state.Exercise())
				assert.InDelta(t, 300*1000.0, v, 1e-6)
			} else {
				assert.Equal(t, ccr.NotExercised, state.Exercise())
				assert.Zero(t, v)
			}
		})
	}
}

func TestBreakDateStopsSwap(t *testing.T) {
	t.Parallel()

	swap := swapWithBreak()
	p, fp := build(t, swap, ccr.DefaultOptions())
	dates := fp.ExposureDates(monthly(10))
	assert.Contains(t, dates, swap.BreakDate)
	assert.Contains(t, dates, utils.PrevDay(swap.BreakDate))
	beyond := 0
	for _, d := range dates {
		if d.After(swap.BreakDate) {
			beyond++
		}
	}
	assert.Equal(t, 1, beyond)

	base := marketdata.SampleMarket(asOf)
	state := fp.NewPathState()
	at := fastPv(t, fp, state, swap.BreakDate, base.Clone(swap.BreakDate))
	assert.NotZero(t, at)
	after := swap.BreakDate.AddDate(0, 0, 1)
	mkt := base.Clone(after)
	assert.Zero(t, fastPv(t, fp, state, after, mkt))
	full, err := p.At(after, mkt).Pv()
	require.NoError(t, err)
	assert.Zero(t, full)
}

func TestIndexWithDefaultedName(t *testing.T) {
	t.Parallel()

	x := indexWithDefault()
	pay := x.Names[0].DefaultSettlement
	live := marketdata.SampleIndex(asOf)
	live.Names = live.Names[1:]
	_, fp := build(t, x, ccr.DefaultOptions())
	_, lfp := build(t, live, ccr.DefaultOptions())

	dates := fp.ExposureDates(monthly(6))
	assert.Contains(t, dates, pay)
	assert.Contains(t, dates, utils.PrevDay(pay))

	base := marketdata.SampleMarket(asOf)
	disc, ok := base.DiscountCurve("EUR")
	require.True(t, ok)
	recovery := x.Face * x.Names[0].Weight * (1 - x.Names[0].Recovery)
	state := fp.NewPathState()
	for _, d := range []time.Time{asOf, asOf.AddDate(0, 1, 0), utils.PrevDay(pay), pay, pay.AddDate(0, 1, 0)} {
		mkt := base.Clone(d)
		want := fastPv(t, lfp, lfp.NewPathState(), d, mkt)
		if d.Before(pay) {
			want += recovery * disc.DF(pay) / disc.DF(d)
		}
		assert.InDelta(t, want, fastPv(t, fp, state, d, mkt), 1e-9*math.Max(1, math.Abs(want)), utils.FormatDate(d))
	}
}

// termVolCall is a 2Y cash-settled call on a surface rising from 15% at 1Y to 20% at 2Y.
func termVolCall(t *testing.T) (*product.Option, *curve.TermVol, *market.Snapshot) {
	t.Helper()
	call := marketdata.SampleCall(asOf, 4700, product.Cash)
	call.Expiry = asOf.AddDate(2, 0, 0)
	call.Underlying = product.ForwardUnderlying{Asset: marketdata.SampleEquity, Delivery: call.Expiry}
	call.CashSettleDate = call.Expiry.AddDate(0, 2, 0)
	term, err := curve.NewTermVol(asOf, []time.Time{asOf.AddDate(1, 0, 0), call.Expiry}, []float64{0.15, 0.2})
	require.NoError(t, err)
	base := marketdata.SampleMarket(asOf).SetVol(marketdata.SampleEquity, term)
	return call, term, base
}

func buildOn(t *testing.T, prod product.Product, base *market.Snapshot, opts ccr.Options) (pricing.Pricer, ccr.FastPricer) {
	t.Helper()
	p, err := pricing.New(prod, base, opts.Settings(1))
	require.NoError(t, err)
	fp, err := ccr.Build(p, opts)
	require.NoError(t, err)
	return p, fp
}

func TestForwardVolatilityTermStructure(t *testing.T) {
	t.Parallel()

	call, term, base := termVolCall(t)
	settle := utils.AddMonth(asOf, 13)
	mkt := base.Clone(settle)

	p, flat := buildOn(t, call, base, ccr.DefaultOptions())
	full, err := p.At(settle, mkt).Pv()
	require.NoError(t, err)
	assert.InDelta(t, full, fastPv(t, flat, flat.NewPathState(), settle, mkt), 1e-9*full)

	opts := ccr.DefaultOptions()
	opts.ForwardVolatilityTermStructure = true
	_, fwd := buildOn(t, call, base, opts)

	T := utils.YearFraction(asOf, call.Expiry, string(market.Act365F))
	ts := utils.YearFraction(asOf, settle, string(market.Act365F))
	st := term.Interpolate(settle, call.Strike)
	sigma := math.Sqrt((0.04*T - st*st*ts) / (T - ts))
	level, num, err := pricing.ForwardLevel(call.Underlying.(product.ForwardUnderlying), "EUR", settle, mkt)
	require.NoError(t, err)
	want := call.Face * num * model.Black(1, level, call.Strike, sigma, pricing.OptionTime(settle, call.Expiry))
	assert.InDelta(t, want, fastPv(t, fwd, fwd.NewPathState(), settle, mkt), 1e-9*want)
	assert.Greater(t, sigma, 0.2)
	assert.Greater(t, want, full)
}

func TestFixConvexityVolatility(t *testing.T) {
	t.Parallel()

	call, _, base := termVolCall(t)
	before := utils.AddMonth(asOf, 23)
	after := call.Expiry.AddDate(0, 0, 20)

	bridged := func(opts ccr.Options) float64 {
		_, fp := buildOn(t, call, base, opts)
		state := fp.NewPathState()
		fastPv(t, fp, state, before, base.Clone(before))
		v := fastPv(t, fp, state, after, base.Clone(after))
		require.Equal(t, ccr.Exercised, state.Exercise())
		return v
	}

	fwd := ccr.DefaultOptions()
	fwd.ForwardVolatilityTermStructure = true
	fixed := fwd
	fixed.FixConvexityVolatility = true

	last, _, err := pricing.ForwardLevel(call.Underlying.(product.ForwardUnderlying), "EUR", before, base.Clone(before))
	require.NoError(t, err)
	dT := utils.YearFraction(before, after, string(market.Act365F))
	h := utils.YearFraction(before, call.Expiry, string(market.Act365F)) / dT
	atExpiry := func(sigma float64) float64 {
		return last * math.Exp(h*math.Log(4800/last)+h*(1-h)*0.5*sigma*sigma*dT)
	}

	// With the fix the bridge runs on the as-of volatility to expiry.
	got := bridged(fixed)
	assert.InDelta(t, call.Face*(atExpiry(0.2)-call.Strike), got, 1e-6*got)
	// Otherwise on the forward volatility of the last sample, which is higher here.
	assert.Greater(t, bridged(fwd), got)
}

func TestCreditCarriesSurvivalToSettle(t *testing.T) {
	t.Parallel()

	cds := marketdata.SampleCDS(asOf, "ACME")
	p, fp := build(t, cds, ccr.DefaultOptions())
	settle := asOf.AddDate(1, 0, 0)

	var values, survival []float64
	for _, early := range []float64{0.01, 0.05} {
		h, err := curve.NewHazardCurve(asOf, []time.Time{settle, asOf.AddDate(100, 0, 0)}, []float64{early, 0.01})
		require.NoError(t, err)
		mkt := marketdata.SampleMarket(asOf).Clone(settle).SetSurvival("ACME", h)
		fast := fastPv(t, fp, fp.NewPathState(), settle, mkt)
		full, err := p.At(settle, mkt).Pv()
		require.NoError(t, err)
		assert.InDelta(t, full, fast, 1e-9*math.Abs(full))
		values = append(values, fast)
		survival = append(survival, h.SurvivalProbability(settle))
	}

	// The curves agree after settle, so every survival weight moves by the same factor.
	ratio := survival[1] / survival[0]
	require.Less(t, ratio, 0.97)
	require.NotZero(t, values[0])
	assert.InDelta(t, ratio*values[0], values[1], 1e-9*math.Abs(values[0]))
}

func TestFeeStateFromFeePricer(t *testing.T) {
	t.Parallel()

	call := marketdata.SampleCall(asOf, 4500, product.Cash)
	_, fp := build(t, call, ccr.DefaultOptions())
	assert.Nil(t, fp.NewPathState().Fee())

	call.Fees = &product.Fee{Ccy: "EUR", Payments: []product.FeePayment{{Date: asOf.AddDate(0, 0, 5), Amount: -10000}}}
	_, fp = build(t, call, ccr.DefaultOptions())
	assert.NotNil(t, fp.NewPathState().Fee())

	swap := marketdata.SampleSwap(asOf, 0.025)
	swap.Fees = call.Fees
	_, fp = build(t, swap, ccr.DefaultOptions())
	s := fp.NewPathState()
	assert.NotNil(t, s.Fee())
	assert.NotNil(t, s.Child(0))
	assert.Nil(t, s.Child(0).Fee())
}
