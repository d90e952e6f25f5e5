package ccr

import (
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
)

// barrierKernel tracks the knock state of single and double barrier options on the spot of
// the barrier asset, which may differ from the option underlier.
type barrierKernel struct {
	vanilla vanillaKernel
	b       *product.BarrierOption
}

func newBarrierKernel(b *product.BarrierOption) barrierKernel {
	return barrierKernel{
		vanilla: vanillaKernel{model: b.Model, phi: float64(b.Type), strike: b.Strike},
		b:       b,
	}
}

func (k barrierKernel) observe(state *PathState, mkt market.Market, level float64) (float64, error) {
	spot, err := pricing.ObservedSpot(k.b, level, mkt)
	if err != nil {
		return 0, err
	}
	if k.b.Breached(spot) {
		state.knocked = true
	}
	return spot, nil
}

func (k barrierKernel) live(state *PathState, spot, level, sigma, tau float64) float64 {
	if state.knocked {
		if k.b.Barrier.KnockIn() {
			return k.vanilla.live(state, spot, level, sigma, tau)
		}
		return 0
	}
	return pricing.BarrierValue(k.b, spot, level, sigma, tau)
}

// exercisable: knock-in options only once knocked, knock-out options only while not.
func (k barrierKernel) exercisable(state *PathState) bool {
	return state.knocked == k.b.Barrier.KnockIn()
}
