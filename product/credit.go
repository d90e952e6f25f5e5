package product

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/utils"
)

// CDS is a single-name credit default swap. The protection buyer pays the running Spread
// and receives (1 - Recovery) on default.
type CDS struct {
	Name       string
	Ccy        string
	Face       float64
	Effective  time.Time
	End        time.Time
	Spread     float64
	Recovery   float64
	Buyer      bool
	Convention market.LegConvention
	// DefaultSettlement is set once the name has defaulted: the protection payment is made
	// on this date and nothing else remains.
	DefaultSettlement time.Time
}

func (c *CDS) Description() string {
	side := "SELL"
	if c.Buyer {
		side = "BUY"
	}
	return fmt.Sprintf("CDS %s %s %.0fbp %s", side, c.Name, c.Spread*1e4, utils.FormatDate(c.End))
}

func (c *CDS) Currency() string { return c.Ccy }

func (c *CDS) Notional() float64 { return c.Face }

func (c *CDS) Maturity() time.Time {
	if c.Defaulted() {
		return c.DefaultSettlement
	}
	return premiumMaturity(c.Effective, c.End, c.Convention)
}

// Defaulted reports whether a credit event has already occurred.
func (c *CDS) Defaulted() bool {
	return !c.DefaultSettlement.IsZero()
}

// ProtectionSign is +1 for the protection buyer.
func (c *CDS) ProtectionSign() float64 {
	return sign(!c.Buyer)
}

// PaymentSchedule lists the premium coupons on or after from.
func (c *CDS) PaymentSchedule(from time.Time) (Schedule, error) {
	if c.Defaulted() {
		return nil, nil
	}
	return premiumSchedule(c.Effective, c.End, c.Convention, c.Spread, -c.ProtectionSign(), from)
}

// ProtectionGrid samples the protection period every stepMonths from the effective date.
func (c *CDS) ProtectionGrid(stepMonths int) []time.Time {
	return utils.MonthlyGrid(c.Effective, c.End, stepMonths)
}

// IndexName is one constituent of a credit index.
type IndexName struct {
	Name              string
	Weight            float64
	Recovery          float64
	DefaultSettlement time.Time
}

// CreditIndex is an equally structured CDS on a weighted pool of names.
type CreditIndex struct {
	Label      string
	Ccy        string
	Face       float64
	Effective  time.Time
	End        time.Time
	Spread     float64
	Buyer      bool
	Convention market.LegConvention
	Names      []IndexName
}

func (x *CreditIndex) Description() string {
	return fmt.Sprintf("CDX %s %d names %s", x.Label, len(x.Names), utils.FormatDate(x.End))
}

func (x *CreditIndex) Currency() string { return x.Ccy }

func (x *CreditIndex) Notional() float64 { return x.Face }

func (x *CreditIndex) Maturity() time.Time {
	return premiumMaturity(x.Effective, x.End, x.Convention)
}

func (x *CreditIndex) ProtectionSign() float64 {
	return sign(!x.Buyer)
}

// PaymentSchedule lists the per-unit premium coupons shared by every constituent.
func (x *CreditIndex) PaymentSchedule(from time.Time) (Schedule, error) {
	return premiumSchedule(x.Effective, x.End, x.Convention, x.Spread, -x.ProtectionSign(), from)
}

func (x *CreditIndex) ProtectionGrid(stepMonths int) []time.Time {
	return utils.MonthlyGrid(x.Effective, x.End, stepMonths)
}

// Constituent returns name i as a stand-alone CDS sized by its index weight.
func (x *CreditIndex) Constituent(i int) *CDS {
	n := x.Names[i]
	return &CDS{
		Name:              n.Name,
		Ccy:               x.Ccy,
		Face:              x.Face * n.Weight,
		Effective:         x.Effective,
		End:               x.End,
		Spread:            x.Spread,
		Recovery:          n.Recovery,
		Buyer:             x.Buyer,
		Convention:        x.Convention,
		DefaultSettlement: n.DefaultSettlement,
	}
}

// TrancheName is one constituent of a tranche reference pool. Beta is the loading on the
// common factor.
type TrancheName struct {
	Name     string
	Weight   float64
	Recovery float64
	Beta     float64
}

// Tranche is a synthetic CDO tranche covering pool losses between Attach and Detach
// (fractions of pool notional).
type Tranche struct {
	Label      string
	Ccy        string
	Face       float64
	Effective  time.Time
	End        time.Time
	Attach     float64
	Detach     float64
	Spread     float64
	Buyer      bool
	Convention market.LegConvention
	Names      []TrancheName
}

func (t *Tranche) Description() string {
	return fmt.Sprintf("TRANCHE %s %.0f-%.0f%% %s", t.Label, t.Attach*100, t.Detach*100, utils.FormatDate(t.End))
}

func (t *Tranche) Currency() string { return t.Ccy }

func (t *Tranche) Notional() float64 { return t.Face }

func (t *Tranche) Maturity() time.Time {
	return premiumMaturity(t.Effective, t.End, t.Convention)
}

func (t *Tranche) ProtectionSign() float64 {
	return sign(!t.Buyer)
}

// PaymentSchedule lists the per-unit premium coupons before tranche amortisation.
func (t *Tranche) PaymentSchedule(from time.Time) (Schedule, error) {
	return premiumSchedule(t.Effective, t.End, t.Convention, t.Spread, -t.ProtectionSign(), from)
}

func (t *Tranche) ProtectionGrid(stepMonths int) []time.Time {
	return utils.MonthlyGrid(t.Effective, t.End, stepMonths)
}

func premiumSchedule(effective, end time.Time, conv market.LegConvention, spread, s float64, from time.Time) (Schedule, error) {
	periods, err := GeneratePeriods(effective, end, conv)
	if err != nil {
		return nil, fmt.Errorf("premium schedule: %w", err)
	}
	out := make(Schedule, 0, len(periods))
	for _, p := range periods {
		if p.PayDate.Before(from) {
			continue
		}
		yf := utils.YearFraction(p.StartDate, p.EndDate, string(conv.DayCount))
		out = append(out, Payment{
			PayDate:      p.PayDate,
			AccrualStart: p.StartDate,
			AccrualEnd:   p.EndDate,
			DayCount:     conv.DayCount,
			YearFraction: yf,
			Amount:       s * spread * yf,
		})
	}
	return out, nil
}

func premiumMaturity(effective, end time.Time, conv market.LegConvention) time.Time {
	periods, err := GeneratePeriods(effective, end, conv)
	if err != nil || len(periods) == 0 {
		return end
	}
	return utils.MaxDate(end, periods[len(periods)-1].PayDate)
}
