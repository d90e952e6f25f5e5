package product

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/utils"
)

// CallPut is +1 for calls and -1 for puts, so intrinsic = CallPut * (level - strike).
type CallPut int

const (
	Call CallPut = 1
	Put  CallPut = -1
)

func (c CallPut) String() string {
	if c == Put {
		return "PUT"
	}
	return "CALL"
}

// SettlementType selects physical delivery or a cash amount fixed at expiry.
type SettlementType string

const (
	Physical SettlementType = "PHYSICAL"
	Cash     SettlementType = "CASH"
)

// VolModel selects the pricing formula.
type VolModel string

const (
	Lognormal VolModel = "BLACK"
	Normal    VolModel = "NORMAL"
)

// Underlying describes what an option is written on.
type Underlying interface {
	UnderlyingKind() string
	// UnderlyingMaturity is the last date the underlying delivers value.
	UnderlyingMaturity() time.Time
}

// ForwardUnderlying is an equity, FX or commodity forward delivered on Delivery.
type ForwardUnderlying struct {
	Asset    string
	Delivery time.Time
}

func (ForwardUnderlying) UnderlyingKind() string { return "FORWARD" }

func (u ForwardUnderlying) UnderlyingMaturity() time.Time { return u.Delivery }

// SwapRateUnderlying is the par rate of a forward-starting swap: the floating leg against
// the annuity of the fixed leg schedule. Leg notionals and coupons are ignored.
type SwapRateUnderlying struct {
	Fixed    *Leg
	Floating *Leg
}

func (SwapRateUnderlying) UnderlyingKind() string { return "SWAP_RATE" }

func (u SwapRateUnderlying) UnderlyingMaturity() time.Time {
	return utils.MaxDate(u.Fixed.Maturity(), u.Floating.Maturity())
}

// Option is a European option. For a swap-rate underlying a call is a payer swaption.
type Option struct {
	Label          string
	Ccy            string
	Face           float64
	Type           CallPut
	Strike         float64
	Expiry         time.Time
	Underlying     Underlying
	Settlement     SettlementType
	CashSettleDate time.Time
	Model          VolModel
	// VolKey names the volatility surface; defaults to the forward asset.
	VolKey string
	Fees   *Fee
}

func (o *Option) Description() string {
	if o.Label != "" {
		return o.Label
	}
	kind := "?"
	if o.Underlying != nil {
		kind = o.Underlying.UnderlyingKind()
	}
	return fmt.Sprintf("OPTION %s %s K=%g %s", kind, o.Type, o.Strike, utils.FormatDate(o.Expiry))
}

func (o *Option) Currency() string { return o.Ccy }

func (o *Option) Notional() float64 { return o.Face }

// Maturity is the cash settlement date, or the underlying maturity when delivered.
func (o *Option) Maturity() time.Time {
	if o.Settlement == Cash {
		return o.CashDate()
	}
	if o.Underlying == nil {
		return o.Expiry
	}
	return utils.MaxDate(o.Expiry, o.Underlying.UnderlyingMaturity())
}

// CashDate is the cash settlement date, defaulting to expiry.
func (o *Option) CashDate() time.Time {
	if o.CashSettleDate.IsZero() {
		return o.Expiry
	}
	return o.CashSettleDate
}

// VolSurfaceKey returns the key of the volatility surface used for this option.
func (o *Option) VolSurfaceKey() string {
	if o.VolKey != "" {
		return o.VolKey
	}
	if fu, ok := o.Underlying.(ForwardUnderlying); ok {
		return fu.Asset
	}
	return ""
}

// CriticalDates lists expiry, cash settlement and the underlying maturity.
func (o *Option) CriticalDates() []time.Time {
	out := []time.Time{o.Expiry}
	if o.Settlement == Cash {
		out = append(out, o.CashDate())
	} else if o.Underlying != nil {
		out = append(out, o.Underlying.UnderlyingMaturity())
	}
	return out
}

// BarrierType enumerates single and double barriers.
type BarrierType string

const (
	DownIn    BarrierType = "DOWN_IN"
	DownOut   BarrierType = "DOWN_OUT"
	UpIn      BarrierType = "UP_IN"
	UpOut     BarrierType = "UP_OUT"
	DoubleIn  BarrierType = "DOUBLE_IN"
	DoubleOut BarrierType = "DOUBLE_OUT"
)

// KnockIn reports whether crossing the barrier activates the option.
func (b BarrierType) KnockIn() bool {
	return b == DownIn || b == UpIn || b == DoubleIn
}

// Double reports whether two barriers apply.
func (b BarrierType) Double() bool {
	return b == DoubleIn || b == DoubleOut
}

// BarrierOption is a European option with continuously monitored barriers up to expiry.
// Down barriers use Lower, up barriers use Upper, double barriers use both.
type BarrierOption struct {
	Option
	Barrier BarrierType
	Lower   float64
	Upper   float64
	// BarrierAsset is the observed spot; defaults to the forward underlying asset.
	BarrierAsset string
}

func (b *BarrierOption) Description() string {
	if b.Label != "" {
		return b.Label
	}
	return fmt.Sprintf("BARRIER %s %s K=%g L=%g U=%g %s", b.Barrier, b.Type, b.Strike, b.Lower, b.Upper, utils.FormatDate(b.Expiry))
}

// ObservedAsset returns the asset whose spot is compared against the barriers.
func (b *BarrierOption) ObservedAsset() string {
	if b.BarrierAsset != "" {
		return b.BarrierAsset
	}
	if fu, ok := b.Underlying.(ForwardUnderlying); ok {
		return fu.Asset
	}
	return ""
}

// Breached reports whether spot is on or beyond a barrier.
func (b *BarrierOption) Breached(spot float64) bool {
	switch b.Barrier {
	case DownIn, DownOut:
		return spot <= b.Lower
	case UpIn, UpOut:
		return spot >= b.Upper
	default:
		return spot <= b.Lower || spot >= b.Upper
	}
}
