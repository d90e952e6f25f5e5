package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/model"
	"github.com/meenmo/ccrfast/product"
	"github.com/meenmo/ccrfast/utils"
)

// OptionPricer values a European option on a forward or a swap rate. After expiry the
// exercise decision is taken from the underlying level at expiry on the current market. A
// cash-settled option then owes a fixed payout on its cash date; an exercised physical
// option is the committed underlying, worth phi*(level-K) and possibly negative.
type OptionPricer struct {
	base
	option *product.Option
}

// NewOptionPricer prices a vanilla option.
func NewOptionPricer(o *product.Option, mkt market.Market, settings Settings) *OptionPricer {
	return &OptionPricer{base: newBase(mkt, settings), option: o}
}

func (p *OptionPricer) Product() product.Product { return p.option }

func (p *OptionPricer) At(settle time.Time, mkt market.Market) Pricer {
	return &OptionPricer{base: p.moved(settle, mkt), option: p.option}
}

func (p *OptionPricer) FeePricer() Pricer { return feePricer(p.option.Fees, p.base) }

func (p *OptionPricer) Pv() (float64, error) {
	fee, err := feePv(p.FeePricer())
	if err != nil {
		return 0, err
	}
	o := p.option
	if p.settle.After(o.Maturity()) {
		return fee, nil
	}
	level, num, err := UnderlierLevel(o, p.settle, p.mkt, p.settings)
	if err != nil {
		return 0, fmt.Errorf("OptionPricer: %s: %w", o.Description(), err)
	}
	scale := o.Face * p.Notional()
	if p.settle.Before(o.Expiry) {
		vol, err := Volatility(o, p.mkt)
		if err != nil {
			return 0, fmt.Errorf("OptionPricer: %s: %w", o.Description(), err)
		}
		tau := OptionTime(p.settle, o.Expiry)
		v := OptionValue(o.Model, float64(o.Type), level, o.Strike, vol.Interpolate(o.Expiry, o.Strike), tau)
		return fee + scale*num*v, nil
	}
	if !SettlementDue(o, p.settle, p.settings) {
		return fee, nil
	}
	phi := float64(o.Type)
	atExpiry, numAtExpiry, err := UnderlierLevel(o, o.Expiry, p.mkt, p.settings)
	if err != nil {
		return 0, fmt.Errorf("OptionPricer: %s: %w", o.Description(), err)
	}
	if phi*(atExpiry-o.Strike) <= 0 {
		return fee, nil
	}
	if o.Settlement != product.Cash {
		return fee + scale*num*phi*(level-o.Strike), nil
	}
	disc, err := discountCurve(p.mkt, o.Ccy)
	if err != nil {
		return 0, fmt.Errorf("OptionPricer: %s: %w", o.Description(), err)
	}
	payout := model.Intrinsic(phi, atExpiry, o.Strike) * numAtExpiry
	if cash := o.CashDate(); cash.After(o.Expiry) {
		payout /= curve.DFBetween(disc, o.Expiry, cash)
	}
	return fee + scale*payout*curve.DFBetween(disc, p.settle, o.CashDate()), nil
}

// BarrierPricer values a continuously monitored barrier option from the observed spot at
// settle. After expiry, and whenever spot is already beyond a barrier, it falls back to the
// vanilla value or zero according to the barrier type.
type BarrierPricer struct {
	OptionPricer
	barrier *product.BarrierOption
}

// NewBarrierPricer prices a barrier option.
func NewBarrierPricer(b *product.BarrierOption, mkt market.Market, settings Settings) *BarrierPricer {
	return &BarrierPricer{OptionPricer: OptionPricer{base: newBase(mkt, settings), option: &b.Option}, barrier: b}
}

func (p *BarrierPricer) Product() product.Product { return p.barrier }

func (p *BarrierPricer) At(settle time.Time, mkt market.Market) Pricer {
	return &BarrierPricer{OptionPricer: OptionPricer{base: p.moved(settle, mkt), option: p.option}, barrier: p.barrier}
}

func (p *BarrierPricer) Pv() (float64, error) {
	b := p.barrier
	if p.settle.After(b.Maturity()) {
		return feePv(p.FeePricer())
	}
	if !p.settle.Before(b.Expiry) {
		return p.afterExpiry()
	}
	level, num, err := UnderlierLevel(p.option, p.settle, p.mkt, p.settings)
	if err != nil {
		return 0, fmt.Errorf("BarrierPricer: %s: %w", b.Description(), err)
	}
	spot, err := ObservedSpot(b, level, p.mkt)
	if err != nil {
		return 0, fmt.Errorf("BarrierPricer: %s: %w", b.Description(), err)
	}
	if b.Breached(spot) {
		if b.Barrier.KnockIn() {
			return p.OptionPricer.Pv()
		}
		return feePv(p.FeePricer())
	}
	fee, err := feePv(p.FeePricer())
	if err != nil {
		return 0, err
	}
	vol, err := Volatility(p.option, p.mkt)
	if err != nil {
		return 0, fmt.Errorf("BarrierPricer: %s: %w", b.Description(), err)
	}
	sigma := vol.Interpolate(b.Expiry, b.Strike)
	tau := OptionTime(p.settle, b.Expiry)
	v := BarrierValue(b, spot, level, sigma, tau)
	return fee + b.Face*p.Notional()*num*v, nil
}

func (p *BarrierPricer) afterExpiry() (float64, error) {
	b := p.barrier
	level, _, err := UnderlierLevel(p.option, p.settle, p.mkt, p.settings)
	if err != nil {
		return 0, fmt.Errorf("BarrierPricer: %s: %w", b.Description(), err)
	}
	spot, err := ObservedSpot(b, level, p.mkt)
	if err != nil {
		return 0, fmt.Errorf("BarrierPricer: %s: %w", b.Description(), err)
	}
	if b.Breached(spot) == b.Barrier.KnockIn() {
		return p.OptionPricer.Pv()
	}
	return feePv(p.FeePricer())
}

// BarrierValue is the undiscounted barrier price per unit numeraire given the observed spot
// and the underlying forward level.
func BarrierValue(b *product.BarrierOption, spot, forward, sigma, tau float64) float64 {
	phi := float64(b.Type)
	switch b.Barrier {
	case product.DownOut:
		return model.BarrierOut(phi, true, spot, forward, b.Strike, b.Lower, sigma, tau)
	case product.DownIn:
		return model.BarrierIn(phi, true, spot, forward, b.Strike, b.Lower, sigma, tau)
	case product.UpOut:
		return model.BarrierOut(phi, false, spot, forward, b.Strike, b.Upper, sigma, tau)
	case product.UpIn:
		return model.BarrierIn(phi, false, spot, forward, b.Strike, b.Upper, sigma, tau)
	case product.DoubleOut:
		return model.DoubleBarrierOut(phi, spot, forward, b.Strike, b.Lower, b.Upper, sigma, tau)
	default:
		return model.DoubleBarrierIn(phi, spot, forward, b.Strike, b.Lower, b.Upper, sigma, tau)
	}
}

// ObservedSpot returns the spot compared against the barriers. Without an observed asset
// the underlying level is its own spot.
func ObservedSpot(b *product.BarrierOption, level float64, mkt market.Market) (float64, error) {
	asset := b.ObservedAsset()
	if asset == "" {
		return level, nil
	}
	s, ok := mkt.Spot(asset)
	if !ok {
		return 0, fmt.Errorf("spot %s: %w", asset, ErrMissingMarketData)
	}
	return s, nil
}

// SettlementDue reports whether an expired option still has a payment on or after settle:
// the cash settlement date, or the delivery of a physically settled underlying.
func SettlementDue(o *product.Option, settle time.Time, s Settings) bool {
	d := o.Maturity()
	if d.After(settle) {
		return true
	}
	return d.Equal(settle) && s.IncludeSettlePayments
}

// OptionTime is the ACT/365F time from settle to expiry.
func OptionTime(settle, expiry time.Time) float64 {
	return math.Max(utils.YearFraction(settle, expiry, string(market.Act365F)), 0)
}

// OptionValue is the undiscounted option price under the chosen volatility model.
func OptionValue(m product.VolModel, phi, forward, strike, sigma, tau float64) float64 {
	if m == product.Normal {
		return model.BlackNormal(phi, forward, strike, sigma, tau)
	}
	return model.Black(phi, forward, strike, sigma, tau)
}

// Volatility returns the option's volatility surface.
func Volatility(o *product.Option, mkt market.Market) (curve.Vol, error) {
	key := o.VolSurfaceKey()
	v, ok := mkt.VolSurface(key)
	if !ok {
		return nil, fmt.Errorf("vol %q: %w", key, ErrMissingMarketData)
	}
	return v, nil
}

// UnderlierLevel returns the option underlying level at settle together with its numeraire,
// the factor turning a per-unit payoff at expiry into value at settle.
func UnderlierLevel(o *product.Option, settle time.Time, mkt market.Market, s Settings) (level, numeraire float64, err error) {
	switch u := o.Underlying.(type) {
	case product.ForwardUnderlying:
		return ForwardLevel(u, o.Ccy, settle, mkt)
	case product.SwapRateUnderlying:
		return SwapRateLevel(u, settle, mkt, s)
	default:
		return 0, 0, fmt.Errorf("underlying %T: %w", o.Underlying, ErrUnknownProduct)
	}
}

// ForwardLevel returns F = S exp(-q tau) / DF(settle, delivery) and the numeraire
// DF(settle, delivery).
func ForwardLevel(u product.ForwardUnderlying, ccy string, settle time.Time, mkt market.Market) (level, numeraire float64, err error) {
	spot, ok := mkt.Spot(u.Asset)
	if !ok {
		return 0, 0, fmt.Errorf("spot %s: %w", u.Asset, ErrMissingMarketData)
	}
	disc, err := discountCurve(mkt, ccy)
	if err != nil {
		return 0, 0, err
	}
	if !u.Delivery.After(settle) {
		return spot, 1, nil
	}
	df := curve.DFBetween(disc, settle, u.Delivery)
	tau := utils.YearFraction(settle, u.Delivery, string(market.Act365F))
	return spot * math.Exp(-mkt.DividendYield(u.Asset)*tau) / df, df, nil
}

// SwapRateLegs returns unit-notional received copies of the underlying legs without
// principal exchanges; the fixed copy pays a coupon of 1 so its value is the annuity.
func SwapRateLegs(u product.SwapRateUnderlying) (floating, annuity *product.Leg) {
	unit := func(l *product.Leg) *product.Leg {
		out := *l
		out.Face = 1
		out.Payer = false
		out.Convention.IncludeInitialPrincipal = false
		out.Convention.IncludeFinalPrincipal = false
		return &out
	}
	floating = unit(u.Floating)
	annuity = unit(u.Fixed).WithCoupon(1)
	return floating, annuity
}

// SwapRateLevel returns the forward swap rate (floating leg value over annuity) and the
// annuity as numeraire.
func SwapRateLevel(u product.SwapRateUnderlying, settle time.Time, mkt market.Market, s Settings) (level, numeraire float64, err error) {
	floating, fixed := SwapRateLegs(u)
	fv, err := legUnitValue(floating, settle, mkt, s)
	if err != nil {
		return 0, 0, err
	}
	ann, err := legUnitValue(fixed, settle, mkt, s)
	if err != nil {
		return 0, 0, err
	}
	if ann == 0 {
		return 0, 0, nil
	}
	return fv / ann, ann, nil
}

func legUnitValue(l *product.Leg, settle time.Time, mkt market.Market, s Settings) (float64, error) {
	sched, err := l.PaymentSchedule(settle)
	if err != nil {
		return 0, err
	}
	return discountSchedule(sched, l.Ccy, settle, mkt, s, nil)
}
