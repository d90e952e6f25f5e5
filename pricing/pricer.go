// Package pricing holds the full (non-cached) pricers. Every call to Pv regenerates
// schedules and re-reads the market, so these pricers are the reference the fast engine
// is checked against.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/product"
)

var (
	// ErrMissingCurve is returned when a required discount or projection curve is absent.
	ErrMissingCurve = errors.New("pricing: missing curve")
	// ErrMissingMarketData is returned when a spot or volatility is absent.
	ErrMissingMarketData = errors.New("pricing: missing market data")
	// ErrUnknownProduct is returned by New for products without a pricer.
	ErrUnknownProduct = errors.New("pricing: unknown product")
)

// Pricer values one product against one market at one settle date. Pricers are immutable;
// At returns a copy moved to another date and market.
type Pricer interface {
	Product() product.Product
	AsOf() time.Time
	Settle() time.Time
	// Notional is the trade quantity applied on top of the product notional.
	Notional() float64
	Market() market.Market
	At(settle time.Time, mkt market.Market) Pricer
	Pv() (float64, error)
}

// Composite is implemented by pricers built from sub-pricers.
type Composite interface {
	Components() []Pricer
}

// FeeCarrier is implemented by pricers with an attached payment-only sub-pricer.
// FeePricer returns nil when there is none.
type FeeCarrier interface {
	FeePricer() Pricer
}

// NameResolver is implemented by index pricers that can price one constituent alone.
type NameResolver interface {
	NamePricer(i int) Pricer
}

// Settings carries valuation conventions shared by every pricer.
type Settings struct {
	// Notional is the trade quantity; zero means 1.
	Notional float64
	// DiscountAccrued discounts the accrued part of the current coupon like the rest.
	DiscountAccrued bool
	// IncludeSettlePayments keeps payments falling exactly on the settle date.
	IncludeSettlePayments bool
	// ProtectionGridMonths is the sampling step of protection legs; zero means 1.
	ProtectionGridMonths int
}

func (s Settings) notional() float64 {
	if s.Notional == 0 {
		return 1
	}
	return s.Notional
}

// GridMonths returns the protection sampling step with its default applied.
func (s Settings) GridMonths() int {
	if s.ProtectionGridMonths <= 0 {
		return 1
	}
	return s.ProtectionGridMonths
}

type base struct {
	asOf     time.Time
	settle   time.Time
	mkt      market.Market
	settings Settings
}

func newBase(mkt market.Market, settings Settings) base {
	return base{asOf: mkt.AsOf(), settle: mkt.AsOf(), mkt: mkt, settings: settings}
}

func (b base) AsOf() time.Time { return b.asOf }

func (b base) Settle() time.Time { return b.settle }

func (b base) Notional() float64 { return b.settings.notional() }

func (b base) Market() market.Market { return b.mkt }

// Settings returns the valuation conventions.
func (b base) Settings() Settings { return b.settings }

func (b base) moved(settle time.Time, mkt market.Market) base {
	b.settle = settle
	b.mkt = mkt
	return b
}

// New returns the full pricer of prod valued against mkt as of mkt.AsOf().
func New(prod product.Product, mkt market.Market, settings Settings) (Pricer, error) {
	b := newBase(mkt, settings)
	switch p := prod.(type) {
	case *product.Swap:
		return newSwapPricer(p, b), nil
	case *product.Tranche:
		return &TranchePricer{base: b, tranche: p}, nil
	case *product.CreditIndex:
		return &IndexPricer{base: b, index: p}, nil
	case *product.CDS:
		return &CDSPricer{base: b, cds: p}, nil
	case *product.Leg:
		return &CashflowPricer{base: b, prod: p}, nil
	case *product.BarrierOption:
		return &BarrierPricer{OptionPricer: OptionPricer{base: b, option: &p.Option}, barrier: p}, nil
	case *product.Option:
		return &OptionPricer{base: b, option: p}, nil
	case product.Scheduled:
		return &CashflowPricer{base: b, prod: p}, nil
	default:
		return nil, fmt.Errorf("New: %s: %w", prod.Description(), ErrUnknownProduct)
	}
}

func discountCurve(mkt market.Market, ccy string) (curve.Discount, error) {
	c, ok := mkt.DiscountCurve(ccy)
	if !ok {
		return nil, fmt.Errorf("discount %s: %w", ccy, ErrMissingCurve)
	}
	return c, nil
}

func feePricer(fees *product.Fee, b base) Pricer {
	if fees == nil || len(fees.Payments) == 0 {
		return nil
	}
	return &CashflowPricer{base: b, prod: fees}
}

func feePv(fee Pricer) (float64, error) {
	if fee == nil {
		return 0, nil
	}
	return fee.Pv()
}
