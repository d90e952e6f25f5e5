package ccr

import (
	"time"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/utils"
)

// compositePricer sums fast sub-pricers and stops at a break date.
type compositePricer struct {
	core
	parts     []FastPricer
	breakDate time.Time
}

func newCompositePricer(p pricing.Pricer, parts []FastPricer, breakDate time.Time, b *builder) *compositePricer {
	c := &compositePricer{core: newCore(p, b), parts: parts, breakDate: breakDate}
	if !breakDate.IsZero() {
		c.bound = utils.MinDate(c.bound, breakDate)
		c.critical = append(c.critical, breakDate)
	}
	return c
}

// Components returns the fast sub-pricers.
func (c *compositePricer) Components() []FastPricer { return c.parts }

func (c *compositePricer) ExposureDates(external []time.Time) []time.Time {
	var nested []time.Time
	if c.fee != nil {
		nested = c.fee.ExposureDates(external)
	}
	for _, p := range c.parts {
		nested = append(nested, p.ExposureDates(external)...)
	}
	return reconcileDates(c.start, external, c.critical, c.bound, nested)
}

func (c *compositePricer) NewPathState() *PathState {
	s := newPathState(len(c.parts), c.fee)
	for i, p := range c.parts {
		s.children[i] = p.NewPathState()
	}
	return s
}

func (c *compositePricer) Pv(state *PathState, settle time.Time, mkt market.Market) (float64, error) {
	if state == nil {
		return 0, ErrNilState
	}
	state.advance(settle)
	fee, err := c.feePv(state, settle, mkt)
	if err != nil {
		return 0, err
	}
	if !c.breakDate.IsZero() && settle.After(c.breakDate) {
		return fee, nil
	}
	total := fee
	for i, p := range c.parts {
		v, err := p.Pv(state.children[i], settle, mkt)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}
