package pricing

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/product"
	"github.com/meenmo/ccrfast/utils"
)

// CashflowPricer values any scheduled product (legs, bonds, fees) by discounting its
// payment schedule.
type CashflowPricer struct {
	base
	prod product.Scheduled
}

// NewCashflowPricer prices a scheduled product directly.
func NewCashflowPricer(prod product.Scheduled, mkt market.Market, settings Settings) *CashflowPricer {
	return &CashflowPricer{base: newBase(mkt, settings), prod: prod}
}

func (p *CashflowPricer) Product() product.Product { return p.prod }

func (p *CashflowPricer) At(settle time.Time, mkt market.Market) Pricer {
	return &CashflowPricer{base: p.moved(settle, mkt), prod: p.prod}
}

func (p *CashflowPricer) Pv() (float64, error) {
	if p.settle.After(p.prod.Maturity()) {
		return 0, nil
	}
	sched, err := p.prod.PaymentSchedule(p.settle)
	if err != nil {
		return 0, fmt.Errorf("CashflowPricer: %w", err)
	}
	v, err := discountSchedule(sched, p.prod.Currency(), p.settle, p.mkt, p.settings, nil)
	if err != nil {
		return 0, fmt.Errorf("CashflowPricer: %s: %w", p.prod.Description(), err)
	}
	return v * p.prod.Notional() * p.Notional(), nil
}

// discountSchedule sums payments on or after settle discounted to settle. weight, when
// set, scales the discounted part of each payment (survival or tranche outstanding).
func discountSchedule(sched product.Schedule, ccy string, settle time.Time, mkt market.Market, s Settings, weight func(time.Time) float64) (float64, error) {
	disc, err := discountCurve(mkt, ccy)
	if err != nil {
		return 0, err
	}
	dfSettle := disc.DF(settle)
	total := 0.0
	for _, pay := range sched {
		if pay.PayDate.Before(settle) {
			continue
		}
		if pay.PayDate.Equal(settle) && !s.IncludeSettlePayments {
			continue
		}
		var proj curve.Discount
		if pay.Projected {
			c, err := ProjectionFor(mkt, pay, settle)
			if err != nil {
				return 0, err
			}
			proj = c
		}
		amount := pay.Value(proj)
		w := 1.0
		if weight != nil {
			w = weight(pay.PayDate)
		}
		df := disc.DF(pay.PayDate) / dfSettle
		accrued := 0.0
		if !s.DiscountAccrued {
			accrued = accruedPart(pay, amount, settle)
		}
		total += accrued + (amount-accrued)*df*w
	}
	return total, nil
}

// accruedPart is the share of amount earned between accrual start and settle.
func accruedPart(pay product.Payment, amount float64, settle time.Time) float64 {
	if !pay.HasAccrual() || !settle.After(pay.AccrualStart) {
		return 0
	}
	end := utils.MinDate(settle, pay.AccrualEnd)
	full := utils.YearFraction(pay.AccrualStart, pay.AccrualEnd, string(pay.DayCount))
	if full == 0 {
		return 0
	}
	return amount * utils.YearFraction(pay.AccrualStart, end, string(pay.DayCount)) / full
}

// ProjectionFor returns the curve that projects pay at settle. A coupon whose accrual has
// started on or before settle has reset and is read off the fixing curve.
func ProjectionFor(mkt market.Market, pay product.Payment, settle time.Time) (curve.Discount, error) {
	if pay.AccrualStart.After(settle) {
		c, ok := mkt.ProjectionCurve(pay.Index)
		if !ok {
			return nil, fmt.Errorf("projection %s: %w", pay.Index, ErrMissingCurve)
		}
		return c, nil
	}
	c, ok := mkt.FixingCurve(pay.Index)
	if !ok {
		return nil, fmt.Errorf("fixing %s: %w", pay.Index, ErrMissingCurve)
	}
	return c, nil
}
