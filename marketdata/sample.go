// Package marketdata bundles a small EUR market and a reference portfolio for development
// and testing.
package marketdata

import (
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/product"
)

// SampleAsOf is the valuation date of the bundled market.
var SampleAsOf = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

// Sample credit names with their flat hazard rates.
var SampleHazards = map[string]float64{
	"ACME":  0.010,
	"BETA":  0.015,
	"GAMMA": 0.020,
	"DELTA": 0.030,
	"OMEGA": 0.045,
}

// SampleEquity is the equity underlying of the sample options.
const SampleEquity = "SX5E"

// SampleSwaptionVol is the volatility surface key of the sample swaption.
const SampleSwaptionVol = "EUR_SWAPTION"

// SampleMarket returns the bundled EUR market dated asOf.
func SampleMarket(asOf time.Time) *market.Snapshot {
	disc, _ := curve.NewCurveFromZeros(asOf, map[string]float64{
		"1M": 2.70, "6M": 2.55, "1Y": 2.40, "2Y": 2.25, "5Y": 2.30, "10Y": 2.55, "30Y": 2.60,
	})
	e6m, _ := curve.NewCurveFromZeros(asOf, map[string]float64{
		"6M": 2.65, "1Y": 2.55, "2Y": 2.45, "5Y": 2.50, "10Y": 2.75, "30Y": 2.80,
	})
	s := market.NewSnapshot(asOf).
		SetDiscount("EUR", disc).
		SetProjection(market.ESTR, disc).
		SetProjection(market.EURIBOR6M, e6m).
		SetProjection(market.EURIBOR3M, curve.NewFlatCurve(asOf, 0.025)).
		SetSpot(SampleEquity, 4800, 0.02).
		SetVol(SampleEquity, curve.FlatVol(0.20)).
		SetVol(SampleSwaptionVol, curve.FlatVol(0.30))
	for name, h := range SampleHazards {
		s.SetSurvival(name, curve.NewFlatHazard(asOf, h))
	}
	return s
}

// SampleSwap is a 5Y EUR swap receiving fixed against EURIBOR 6M.
func SampleSwap(asOf time.Time, rate float64) *product.Swap {
	eff := asOf.AddDate(0, 0, 2)
	end := eff.AddDate(5, 0, 0)
	return &product.Swap{
		Label:   "EUR 5Y IRS",
		Receive: &product.Leg{Ccy: "EUR", Face: 10e6, Effective: eff, End: end, Convention: market.EURIRS6M.FixedLeg, FixedRate: rate},
		Pay:     &product.Leg{Ccy: "EUR", Face: 10e6, Effective: eff, End: end, Convention: market.EURIRS6M.FloatLeg, Payer: true},
	}
}

// SampleCDS is a 5Y protection purchase on name.
func SampleCDS(asOf time.Time, name string) *product.CDS {
	return &product.CDS{
		Name: name, Ccy: "EUR", Face: 5e6,
		Effective: asOf, End: asOf.AddDate(5, 0, 0),
		Spread: 0.01, Recovery: 0.4, Buyer: true,
		Convention: market.CDSPremium,
	}
}

// SampleIndex is a 5Y index protection purchase over the sample names.
func SampleIndex(asOf time.Time) *product.CreditIndex {
	x := &product.CreditIndex{
		Label: "SAMPLE", Ccy: "EUR", Face: 10e6,
		Effective: asOf, End: asOf.AddDate(5, 0, 0),
		Spread: 0.01, Buyer: true, Convention: market.CDSPremium,
	}
	w := 1 / float64(len(SampleNames()))
	for _, n := range SampleNames() {
		x.Names = append(x.Names, product.IndexName{Name: n, Weight: w, Recovery: 0.4})
	}
	return x
}

// SampleTranche is a 3Y 3-7% mezzanine tranche protection sale on the sample names.
func SampleTranche(asOf time.Time) *product.Tranche {
	t := &product.Tranche{
		Label: "SAMPLE", Ccy: "EUR", Face: 10e6,
		Effective: asOf, End: asOf.AddDate(3, 0, 0),
		Attach: 0.03, Detach: 0.07, Spread: 0.05,
		Convention: market.CDSPremium,
	}
	w := 1 / float64(len(SampleNames()))
	for _, n := range SampleNames() {
		t.Names = append(t.Names, product.TrancheName{Name: n, Weight: w, Recovery: 0.4, Beta: 0.5})
	}
	return t
}

// SampleCall is a 1Y equity call on a forward delivered at expiry.
func SampleCall(asOf time.Time, strike float64, settlement product.SettlementType) *product.Option {
	exp := asOf.AddDate(1, 0, 0)
	return &product.Option{
		Ccy: "EUR", Face: 1000, Type: product.Call, Strike: strike, Expiry: exp,
		Underlying: product.ForwardUnderlying{Asset: SampleEquity, Delivery: exp},
		Settlement: settlement, CashSettleDate: exp.AddDate(0, 0, 2),
		Model: product.Lognormal,
	}
}

// SampleSwaption is a 1Y into 5Y payer swaption.
func SampleSwaption(asOf time.Time, strike float64) *product.Option {
	exp := asOf.AddDate(1, 0, 0)
	eff := exp.AddDate(0, 0, 2)
	end := eff.AddDate(5, 0, 0)
	return &product.Option{
		Ccy: "EUR", Face: 10e6, Type: product.Call, Strike: strike, Expiry: exp,
		Underlying: product.SwapRateUnderlying{
			Fixed:    &product.Leg{Ccy: "EUR", Face: 1, Effective: eff, End: end, Convention: market.EURIRS6M.FixedLeg},
			Floating: &product.Leg{Ccy: "EUR", Face: 1, Effective: eff, End: end, Convention: market.EURIRS6M.FloatLeg},
		},
		Settlement: product.Physical,
		Model:      product.Lognormal,
		VolKey:     SampleSwaptionVol,
	}
}

// SampleBarrier is a 1Y down-and-out equity call.
func SampleBarrier(asOf time.Time, strike, lower float64) *product.BarrierOption {
	return &product.BarrierOption{
		Option:  *SampleCall(asOf, strike, product.Physical),
		Barrier: product.DownOut,
		Lower:   lower,
	}
}

// SampleNames returns the sample credit names in a fixed order.
func SampleNames() []string {
	return []string{"ACME", "BETA", "GAMMA", "DELTA", "OMEGA"}
}
