package ccr

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
	"github.com/meenmo/ccrfast/utils"
)

// paymentEvent groups the payments settling on one date.
type paymentEvent struct {
	date     time.Time
	payments []product.Payment
	// fixed is true when every amount is known at build. Projected payments are
	// re-projected at each call, off the fixing curve once their accrual has started.
	fixed bool
}

// paymentCache extracts a product's schedule once and values the remaining events at any
// settle date.
type paymentCache struct {
	prod  product.Scheduled
	from  time.Time
	ccy   string
	scale float64
	opts  Options

	once   sync.Once
	events []paymentEvent
	err    error
}

// newPaymentCache caches prod's payments from from onwards. scale multiplies every value.
func newPaymentCache(prod product.Scheduled, from time.Time, scale float64, opts Options) *paymentCache {
	return &paymentCache{prod: prod, from: from, ccy: prod.Currency(), scale: scale, opts: opts}
}

// load builds the events. It is idempotent and safe to call concurrently.
func (c *paymentCache) load() error {
	c.once.Do(func() {
		sched, err := c.prod.PaymentSchedule(c.from)
		if err != nil {
			c.err = fmt.Errorf("payment schedule %s: %w", c.prod.Description(), err)
			return
		}
		for _, p := range sched {
			n := len(c.events)
			if n == 0 || !c.events[n-1].date.Equal(p.PayDate) {
				c.events = append(c.events, paymentEvent{date: p.PayDate, fixed: true})
				n++
			}
			ev := &c.events[n-1]
			ev.payments = append(ev.payments, p)
			if p.Projected {
				ev.fixed = false
			}
		}
	})
	return c.err
}

// dates returns the pay dates of every event.
func (c *paymentCache) dates() []time.Time {
	out := make([]time.Time, len(c.events))
	for i, e := range c.events {
		out[i] = e.date
	}
	return out
}

// last returns the last pay date, or the zero time for an empty schedule.
func (c *paymentCache) last() time.Time {
	if len(c.events) == 0 {
		return time.Time{}
	}
	return c.events[len(c.events)-1].date
}

// fastPv values the events remaining at settle, discounted to settle. An event on settle
// counts only when includeSettle is set. clean removes accrued interest. weight, when set,
// scales the discounted part of each payment.
func (c *paymentCache) fastPv(mkt market.Market, settle time.Time, includeSettle, clean bool, weight func(time.Time) float64) (float64, error) {
	if err := c.load(); err != nil {
		return 0, err
	}
	i := sort.Search(len(c.events), func(i int) bool {
		if includeSettle {
			return !c.events[i].date.Before(settle)
		}
		return c.events[i].date.After(settle)
	})
	if i == len(c.events) {
		return 0, nil
	}
	disc, ok := mkt.DiscountCurve(c.ccy)
	if !ok {
		return 0, fmt.Errorf("discount %s: %w", c.ccy, pricing.ErrMissingCurve)
	}
	dfSettle := disc.DF(settle)
	total := 0.0
	for _, ev := range c.events[i:] {
		df := disc.DF(ev.date) / dfSettle
		w := 1.0
		if weight != nil {
			w = weight(ev.date)
		}
		for _, p := range ev.payments {
			amount, err := c.amount(p, ev.fixed, settle, mkt)
			if err != nil {
				return 0, err
			}
			accrued := accrued(p, amount, settle)
			v := amount * df * w
			if !c.opts.DiscountAccrued {
				v = accrued + (amount-accrued)*df*w
			}
			if clean {
				v -= accrued
			}
			total += v
		}
	}
	return total * c.scale, nil
}

func (c *paymentCache) amount(p product.Payment, fixed bool, settle time.Time, mkt market.Market) (float64, error) {
	if fixed || !p.Projected {
		return p.Amount, nil
	}
	proj, err := pricing.ProjectionFor(mkt, p, settle)
	if err != nil {
		return 0, err
	}
	return p.Value(proj), nil
}

// accrued is the share of amount earned between accrual start and settle.
func accrued(p product.Payment, amount float64, settle time.Time) float64 {
	if !p.HasAccrual() || !settle.After(p.AccrualStart) {
		return 0
	}
	full := utils.YearFraction(p.AccrualStart, p.AccrualEnd, string(p.DayCount))
	if full == 0 {
		return 0
	}
	end := utils.MinDate(settle, p.AccrualEnd)
	return amount * utils.YearFraction(p.AccrualStart, end, string(p.DayCount)) / full
}

// discountTo returns the market discount curve of ccy.
func discountTo(mkt market.Market, ccy string) (curve.Discount, error) {
	c, ok := mkt.DiscountCurve(ccy)
	if !ok {
		return nil, fmt.Errorf("discount %s: %w", ccy, pricing.ErrMissingCurve)
	}
	return c, nil
}
