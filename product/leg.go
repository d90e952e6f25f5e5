package product

import (
	"fmt"
	"time"

	"github.com/meenmo/ccrfast/calendar"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/utils"
)

// Leg is a fixed or floating coupon stream, optionally with principal exchanges. A bond is
// a received fixed leg with a final principal.
type Leg struct {
	Ccy        string
	Face       float64
	Effective  time.Time
	End        time.Time
	Convention market.LegConvention
	// FixedRate is the coupon of a fixed leg, decimal.
	FixedRate float64
	// SpreadBP is added to the projected rate of a floating leg.
	SpreadBP float64
	Payer    bool
}

// NewBond returns a bullet fixed-coupon bond held long.
func NewBond(ccy string, face float64, issue, maturity time.Time, coupon float64, conv market.LegConvention) *Leg {
	conv.LegType = market.LegFixed
	conv.IncludeFinalPrincipal = true
	return &Leg{Ccy: ccy, Face: face, Effective: issue, End: maturity, Convention: conv, FixedRate: coupon}
}

func (l *Leg) Description() string {
	dir := "REC"
	if l.Payer {
		dir = "PAY"
	}
	if l.Convention.LegType == market.LegFloating {
		return fmt.Sprintf("%s %s %s%+.1fbp %s-%s", dir, l.Ccy, l.Convention.ReferenceRate, l.SpreadBP, utils.FormatDate(l.Effective), utils.FormatDate(l.End))
	}
	return fmt.Sprintf("%s %s FIXED %.4f%% %s-%s", dir, l.Ccy, l.FixedRate*100, utils.FormatDate(l.Effective), utils.FormatDate(l.End))
}

func (l *Leg) Currency() string { return l.Ccy }

func (l *Leg) Notional() float64 { return l.Face }

// Maturity is the last pay date, including a final principal exchange.
func (l *Leg) Maturity() time.Time {
	periods, err := GeneratePeriods(l.Effective, l.End, l.Convention)
	if err != nil || len(periods) == 0 {
		return l.End
	}
	last := periods[len(periods)-1].PayDate
	if l.Convention.IncludeFinalPrincipal {
		last = utils.MaxDate(last, l.finalPrincipalDate())
	}
	return last
}

func (l *Leg) finalPrincipalDate() time.Time {
	return calendar.Adjust(l.Convention.Calendar, l.End)
}

// Periods returns the leg's accrual periods.
func (l *Leg) Periods() ([]Period, error) {
	return GeneratePeriods(l.Effective, l.End, l.Convention)
}

// PaymentSchedule lists coupon and principal payments with pay date on or after from.
func (l *Leg) PaymentSchedule(from time.Time) (Schedule, error) {
	periods, err := l.Periods()
	if err != nil {
		return nil, fmt.Errorf("Leg.PaymentSchedule: %w", err)
	}
	s := sign(l.Payer)
	dc := l.Convention.DayCount
	out := make(Schedule, 0, len(periods)+2)

	if l.Convention.IncludeInitialPrincipal {
		d := calendar.Adjust(l.Convention.Calendar, l.Effective)
		if !d.Before(from) {
			out = append(out, principal(d, -s))
		}
	}
	for _, p := range periods {
		if p.PayDate.Before(from) {
			continue
		}
		yf := utils.YearFraction(p.StartDate, p.EndDate, string(dc))
		pay := Payment{
			PayDate:      p.PayDate,
			AccrualStart: p.StartDate,
			AccrualEnd:   p.EndDate,
			DayCount:     dc,
			YearFraction: yf,
		}
		if l.Convention.LegType == market.LegFloating {
			pay.Projected = true
			pay.Index = l.Convention.ReferenceRate
			pay.Spread = l.SpreadBP * 1e-4
			pay.Factor = s
		} else {
			pay.Amount = s * l.FixedRate * yf
		}
		out = append(out, pay)
	}
	if l.Convention.IncludeFinalPrincipal {
		d := l.finalPrincipalDate()
		if !d.Before(from) {
			out = append(out, principal(d, s))
		}
	}
	sortSchedule(out)
	return out, nil
}

func principal(d time.Time, amount float64) Payment {
	return Payment{PayDate: d, AccrualStart: d, AccrualEnd: d, Amount: amount}
}

// sortSchedule keeps insertion order among equal pay dates.
func sortSchedule(s Schedule) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].PayDate.Before(s[j-1].PayDate); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// WithCoupon returns a copy of a fixed leg with a different coupon.
func (l *Leg) WithCoupon(rate float64) *Leg {
	out := *l
	out.FixedRate = rate
	return &out
}

// Swap exchanges a paid and a received leg. A non-zero BreakDate terminates the whole swap.
type Swap struct {
	Label     string
	Pay       *Leg
	Receive   *Leg
	BreakDate time.Time
	Fees      *Fee
}

func (s *Swap) Description() string {
	if s.Label != "" {
		return s.Label
	}
	return "SWAP " + s.Pay.Description() + " / " + s.Receive.Description()
}

func (s *Swap) Currency() string { return s.Receive.Ccy }

func (s *Swap) Notional() float64 { return 1 }

// Maturity is the later leg maturity, capped by a break date.
func (s *Swap) Maturity() time.Time {
	m := utils.MaxDate(s.Pay.Maturity(), s.Receive.Maturity())
	if !s.BreakDate.IsZero() && s.BreakDate.Before(m) {
		return s.BreakDate
	}
	return m
}

// Legs returns the pay and receive legs.
func (s *Swap) Legs() []*Leg {
	return []*Leg{s.Pay, s.Receive}
}

// Fee is a list of known one-off payments, such as an upfront premium.
type Fee struct {
	Ccy      string
	Payments []FeePayment
}

// FeePayment is a signed fixed amount paid on Date.
type FeePayment struct {
	Date   time.Time
	Amount float64
}

func (f *Fee) Description() string { return fmt.Sprintf("FEE %s x%d", f.Ccy, len(f.Payments)) }

func (f *Fee) Currency() string { return f.Ccy }

func (f *Fee) Notional() float64 { return 1 }

func (f *Fee) Maturity() time.Time {
	var m time.Time
	for _, p := range f.Payments {
		m = utils.MaxDate(m, p.Date)
	}
	return m
}

// PaymentSchedule lists fee payments on or after from.
func (f *Fee) PaymentSchedule(from time.Time) (Schedule, error) {
	out := make(Schedule, 0, len(f.Payments))
	for _, p := range f.Payments {
		if p.Date.Before(from) {
			continue
		}
		out = append(out, principal(p.Date, p.Amount))
	}
	sortSchedule(out)
	return out, nil
}
