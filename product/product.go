// Package product holds instrument terms. Products carry no market data and no valuation
// logic beyond turning their terms into payment schedules.
package product

import (
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
)

// Product is the common contract of every instrument.
type Product interface {
	Description() string
	Currency() string
	// Maturity is the last date on which the product can still have value.
	Maturity() time.Time
	// Notional scales per-unit schedule amounts.
	Notional() float64
}

// Scheduled is implemented by products that can list their payments.
type Scheduled interface {
	Product
	// PaymentSchedule returns every payment whose pay date is on or after from, ascending
	// by pay date. Amounts are per unit of Notional().
	PaymentSchedule(from time.Time) (Schedule, error)
}

// Payment is one cash flow. Fixed payments carry Amount; projected payments are
// re-projected from the index curve as Factor * (DF(start)/DF(end) - 1 + Spread * YearFraction).
type Payment struct {
	PayDate      time.Time
	AccrualStart time.Time
	AccrualEnd   time.Time
	DayCount     market.DayCount
	YearFraction float64

	Amount float64

	Projected bool
	Index     market.ReferenceIndex
	Spread    float64
	Factor    float64
}

// Schedule is an ordered list of payments.
type Schedule []Payment

// HasAccrual reports whether the payment accrues over a non-empty period.
func (p Payment) HasAccrual() bool {
	return p.AccrualEnd.After(p.AccrualStart)
}

// Value returns the per-unit amount, projecting floating coupons off proj.
func (p Payment) Value(proj curve.Discount) float64 {
	if !p.Projected {
		return p.Amount
	}
	return p.Factor * (proj.DF(p.AccrualStart)/proj.DF(p.AccrualEnd) - 1 + p.Spread*p.YearFraction)
}

// PayDates returns the distinct pay dates in order.
func (s Schedule) PayDates() []time.Time {
	out := make([]time.Time, 0, len(s))
	for _, p := range s {
		if n := len(out); n == 0 || !out[n-1].Equal(p.PayDate) {
			out = append(out, p.PayDate)
		}
	}
	return out
}

// Indices returns the projection indices referenced by projected payments.
func (s Schedule) Indices() []market.ReferenceIndex {
	seen := map[market.ReferenceIndex]bool{}
	var out []market.ReferenceIndex
	for _, p := range s {
		if p.Projected && !seen[p.Index] {
			seen[p.Index] = true
			out = append(out, p.Index)
		}
	}
	return out
}

func sign(pay bool) float64 {
	if pay {
		return -1
	}
	return 1
}
