package ccr

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
)

// Build classifies p once and returns its fast pricer. Classification is by product type,
// most specific first: composites, credit, rate legs, options, barrier options, then any
// scheduled product, then the full pricer itself. Every error is returned here, before any
// path is evaluated.
func Build(p pricing.Pricer, opts Options, extra ...BuildOption) (FastPricer, error) {
	if p == nil {
		return nil, ErrNilPricer
	}
	b := newBuilder(opts, extra)
	fp, kind, err := b.build(p)
	if err != nil {
		return nil, fmt.Errorf("Build: %s: %w", p.Product().Description(), err)
	}
	b.log.Debug("fast pricer built",
		zap.String("product", p.Product().Description()),
		zap.String("kind", kind),
	)
	return fp, nil
}

func (b *builder) build(p pricing.Pricer) (FastPricer, string, error) {
	switch prod := p.Product().(type) {
	case *product.Swap:
		fp, err := b.composite(p, prod)
		return fp, "composite", err
	case *product.Tranche:
		fp, err := newTranchePricer(p, prod, b)
		return fp, "tranche", err
	case *product.CDS:
		fp, err := newCDSPricer(p, prod, b)
		return fp, "cds", err
	case *product.CreditIndex:
		fp, err := newIndexPricer(p, prod, b)
		return fp, "index", err
	case *product.Leg:
		fp, err := newRatePricer(p, prod, b)
		return fp, "rate", err
	case *product.Option:
		fp, err := b.option(p, prod, vanillaKernel{model: prod.Model, phi: float64(prod.Type), strike: prod.Strike})
		return fp, "option", err
	case *product.BarrierOption:
		fp, err := b.option(p, &prod.Option, newBarrierKernel(prod))
		return fp, "barrier", err
	case product.Scheduled:
		fp, err := newRatePricer(p, prod, b)
		return fp, "scheduled", err
	default:
		return newFullPricer(p, b), "full", nil
	}
}

func (b *builder) composite(p pricing.Pricer, s *product.Swap) (FastPricer, error) {
	comp, ok := p.(pricing.Composite)
	if !ok {
		return nil, fmt.Errorf("swap pricer without components: %w", ErrUnsupported)
	}
	var parts []FastPricer
	for _, sub := range comp.Components() {
		fp, _, err := b.build(sub)
		if err != nil {
			return nil, err
		}
		parts = append(parts, fp)
	}
	c := newCompositePricer(p, parts, s.BreakDate, b)
	if err := b.attachFee(&c.core, p); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *builder) option(p pricing.Pricer, o *product.Option, k kernel) (FastPricer, error) {
	op, err := newOptionPricer(p, o, k, b)
	if err != nil {
		return nil, err
	}
	if err := b.attachFee(&op.core, p); err != nil {
		return nil, err
	}
	return op, nil
}

// attachFee builds the payment-only sub-pricer of p, if it has one.
func (b *builder) attachFee(c *core, p pricing.Pricer) error {
	carrier, ok := p.(pricing.FeeCarrier)
	if !ok {
		return nil
	}
	fee := carrier.FeePricer()
	if fee == nil {
		return nil
	}
	sched, ok := fee.Product().(product.Scheduled)
	if !ok {
		return fmt.Errorf("fee %s is not scheduled: %w", fee.Product().Description(), ErrUnsupported)
	}
	fp, err := newRatePricer(fee, sched, b)
	if err != nil {
		return err
	}
	c.fee = fp
	return nil
}
