package ccr

import (
	"time"

	"go.uber.org/zap"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/pricing"
)

// FastPricer values one instrument at arbitrary future dates from structure cached at build
// time. Implementations are safe for concurrent use as long as every goroutine passes its
// own PathState.
type FastPricer interface {
	// Currency is the valuation currency.
	Currency() string
	// Pricer is the full pricer the fast pricer was built from.
	Pricer() pricing.Pricer
	// ExposureDates merges external with the instrument's critical dates.
	ExposureDates(external []time.Time) []time.Time
	// NewPathState returns fresh per-path memory.
	NewPathState() *PathState
	// Pv values the instrument at settle against mkt. Within a path, settle must not
	// decrease; a settle on or before the last seen date restarts the path.
	Pv(state *PathState, settle time.Time, mkt market.Market) (float64, error)
}

// core carries what every fast pricer shares: the full pricer, options, the exposure bound
// and critical dates, and an optional fee sub-pricer.
type core struct {
	pricer   pricing.Pricer
	opts     Options
	log      *zap.Logger
	start    time.Time
	bound    time.Time
	critical []time.Time
	fee      FastPricer
}

func newCore(p pricing.Pricer, b *builder) core {
	start := p.AsOf()
	if b.opts.ExposureDatesFromSettle {
		start = p.Settle()
	}
	return core{
		pricer: p,
		opts:   b.opts,
		log:    b.log,
		start:  start,
		bound:  p.Product().Maturity(),
	}
}

func (c *core) Currency() string { return c.pricer.Product().Currency() }

func (c *core) Pricer() pricing.Pricer { return c.pricer }

func (c *core) ExposureDates(external []time.Time) []time.Time {
	var nested []time.Time
	if c.fee != nil {
		nested = c.fee.ExposureDates(external)
	}
	return reconcileDates(c.start, external, c.critical, c.bound, nested)
}

func (c *core) NewPathState() *PathState {
	return newPathState(0, c.fee)
}

// after reports whether settle is beyond the instrument's last date of value.
func (c *core) after(settle time.Time) bool {
	return settle.After(c.bound)
}

// feePv values the fee sub-pricer, if any.
func (c *core) feePv(state *PathState, settle time.Time, mkt market.Market) (float64, error) {
	if c.fee == nil {
		return 0, nil
	}
	fs := state.fee
	if fs == nil {
		fs = c.fee.NewPathState()
		state.fee = fs
	}
	return c.fee.Pv(fs, settle, mkt)
}

// scale is the product notional times the trade quantity.
func (c *core) scale() float64 {
	return c.pricer.Product().Notional() * c.pricer.Notional()
}
