// Package portfolio turns the exposure CLI's JSON input into a market and full pricers.
package portfolio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/marketdata"
	"github.com/meenmo/ccrfast/pricing"
	"github.com/meenmo/ccrfast/product"
	"github.com/meenmo/ccrfast/utils"
)

// Input is the JSON portfolio schema.
//
// Conventions:
// - rates and strikes on swap rates are in percent (e.g., 2.50 means 2.50%)
// - credit spreads are in bp
// - tenors are in years from the as-of date
type Input struct {
	AsOf   string      `json:"as_of"` // "2025-01-15"
	Market MarketInput `json:"market"`
	Trades []Trade     `json:"trades"`
}

// MarketInput overrides the bundled sample market.
type MarketInput struct {
	// DiscountZeros are zero rates in percent by currency, then tenor.
	DiscountZeros map[string]map[string]float64 `json:"discount_zeros"`
	// ProjectionZeros are zero rates in percent by reference index, then tenor.
	ProjectionZeros map[string]map[string]float64 `json:"projection_zeros"`
	Spots           map[string]float64            `json:"spots"`
	Hazards         map[string]float64            `json:"hazards"`
	Vols            map[string]float64            `json:"vols"`
}

// Trade is one portfolio position. Type selects which fields apply.
type Trade struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"` // irs, cds, index, tranche, option, swaption, barrier
	Notional float64 `json:"notional"`

	// irs, swaption
	Preset     string   `json:"preset"`    // e.g., EUR_IRS_6M
	Direction  string   `json:"direction"` // PAY or REC (fixed)
	TenorYears int      `json:"tenor_years"`
	FixedRate  *float64 `json:"fixed_rate"` // percent; omitted means par

	// credit
	Name     string   `json:"name"`
	Names    []string `json:"names"`
	Buyer    bool     `json:"buyer"`
	SpreadBP float64  `json:"spread_bp"`
	Recovery float64  `json:"recovery"`
	Attach   float64  `json:"attach"`
	Detach   float64  `json:"detach"`
	Beta     float64  `json:"beta"`
	Currency string   `json:"currency"`

	// options
	Asset       string  `json:"asset"`
	Call        bool    `json:"call"`
	Strike      float64 `json:"strike"`
	ExpiryYears int     `json:"expiry_years"`
	Settlement  string  `json:"settlement"` // CASH or PHYSICAL
	Barrier     string  `json:"barrier"`    // DOWN_OUT, UP_IN, ...
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	UpfrontFee  float64 `json:"upfront_fee"` // paid (negative) or received on the spot date
}

// Position is a trade resolved to a full pricer.
type Position struct {
	ID     string
	Pricer pricing.Pricer
}

// Read decodes an Input from path, or from r when path is empty.
func Read(r io.Reader, path string) (*Input, error) {
	var (
		b   []byte
		err error
	)
	if path != "" {
		b, err = os.ReadFile(path)
	} else {
		b, err = io.ReadAll(r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	var in Input
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("failed to parse JSON input: %w", err)
	}
	return &in, nil
}

// Date returns the as-of date, defaulting to the sample market date.
func (in *Input) Date() (time.Time, error) {
	if strings.TrimSpace(in.AsOf) == "" {
		return marketdata.SampleAsOf, nil
	}
	d, err := utils.ParseDate(in.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of: %w", err)
	}
	return d, nil
}

// BuildMarket returns the sample market at asOf with the input overrides applied.
func (in *Input) BuildMarket(asOf time.Time) (*market.Snapshot, error) {
	m := marketdata.SampleMarket(asOf)
	mi := in.Market
	for _, ccy := range sortedKeys(mi.DiscountZeros) {
		c, err := curve.NewCurveFromZeros(asOf, mi.DiscountZeros[ccy])
		if err != nil {
			return nil, fmt.Errorf("discount_zeros %s: %w", ccy, err)
		}
		m.SetDiscount(ccy, c)
	}
	for _, idx := range sortedKeys(mi.ProjectionZeros) {
		c, err := curve.NewCurveFromZeros(asOf, mi.ProjectionZeros[idx])
		if err != nil {
			return nil, fmt.Errorf("projection_zeros %s: %w", idx, err)
		}
		m.SetProjection(market.ReferenceIndex(strings.ToUpper(idx)), c)
	}
	for asset, s := range mi.Spots {
		m.SetSpot(asset, s, m.DividendYield(asset))
	}
	for name, h := range mi.Hazards {
		m.SetSurvival(name, curve.NewFlatHazard(asOf, h))
	}
	for key, v := range mi.Vols {
		m.SetVol(key, curve.FlatVol(v))
	}
	return m, nil
}

// Assets lists the spots the portfolio's options depend on.
func (in *Input) Assets() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range in.Trades {
		a := t.Asset
		kind := strings.ToLower(t.Type)
		if a == "" && (kind == "option" || kind == "barrier") {
			a = marketdata.SampleEquity
		}
		if a != "" && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// Positions builds the full pricer of every trade.
func (in *Input) Positions(mkt market.Market, settings pricing.Settings) ([]Position, error) {
	if len(in.Trades) == 0 {
		return nil, fmt.Errorf("portfolio has no trades")
	}
	out := make([]Position, 0, len(in.Trades))
	for i, t := range in.Trades {
		id := t.ID
		if id == "" {
			id = fmt.Sprintf("trade-%d", i+1)
		}
		prod, err := t.product(mkt, settings)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		p, err := pricing.New(prod, mkt, settings)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		out = append(out, Position{ID: id, Pricer: p})
	}
	return out, nil
}

func (t Trade) product(mkt market.Market, settings pricing.Settings) (product.Product, error) {
	asOf := mkt.AsOf()
	spot := asOf.AddDate(0, 0, 2)
	ccy := t.Currency
	if ccy == "" {
		ccy = "EUR"
	}
	if t.Notional == 0 {
		return nil, fmt.Errorf("notional is required")
	}

	kind := strings.ToLower(strings.TrimSpace(t.Type))
	switch kind {
	case "irs":
		return t.swap(mkt, settings, spot)
	case "cds":
		if t.Name == "" {
			return nil, fmt.Errorf("cds: name is required")
		}
		return &product.CDS{
			Name: t.Name, Ccy: ccy, Face: t.Notional,
			Effective: asOf, End: asOf.AddDate(t.tenor(5), 0, 0),
			Spread: t.SpreadBP * 1e-4, Recovery: t.recovery(), Buyer: t.Buyer,
			Convention: market.CDSPremium,
		}, nil
	case "index":
		names := t.pool()
		x := &product.CreditIndex{
			Label: t.ID, Ccy: ccy, Face: t.Notional,
			Effective: asOf, End: asOf.AddDate(t.tenor(5), 0, 0),
			Spread: t.SpreadBP * 1e-4, Buyer: t.Buyer, Convention: market.CDSPremium,
		}
		for _, n := range names {
			x.Names = append(x.Names, product.IndexName{Name: n, Weight: 1 / float64(len(names)), Recovery: t.recovery()})
		}
		return x, nil
	case "tranche":
		if t.Detach <= t.Attach || t.Attach < 0 || t.Detach > 1 {
			return nil, fmt.Errorf("tranche: need 0 <= attach < detach <= 1, got %g-%g", t.Attach, t.Detach)
		}
		names := t.pool()
		tr := &product.Tranche{
			Label: t.ID, Ccy: ccy, Face: t.Notional,
			Effective: asOf, End: asOf.AddDate(t.tenor(5), 0, 0),
			Attach: t.Attach, Detach: t.Detach, Spread: t.SpreadBP * 1e-4, Buyer: t.Buyer,
			Convention: market.CDSPremium,
		}
		for _, n := range names {
			tr.Names = append(tr.Names, product.TrancheName{Name: n, Weight: 1 / float64(len(names)), Recovery: t.recovery(), Beta: t.Beta})
		}
		return tr, nil
	case "option", "barrier":
		o, err := t.option(asOf, ccy)
		if err != nil {
			return nil, err
		}
		if kind == "option" {
			return o, nil
		}
		b := &product.BarrierOption{Option: *o, Barrier: product.BarrierType(strings.ToUpper(t.Barrier)), Lower: t.Lower, Upper: t.Upper}
		switch b.Barrier {
		case product.DownIn, product.DownOut, product.UpIn, product.UpOut, product.DoubleIn, product.DoubleOut:
		default:
			return nil, fmt.Errorf("barrier: invalid type %q", t.Barrier)
		}
		return b, nil
	case "swaption":
		preset, err := t.preset()
		if err != nil {
			return nil, err
		}
		exp := asOf.AddDate(t.expiry(), 0, 0)
		eff := exp.AddDate(0, 0, 2)
		end := eff.AddDate(t.tenor(5), 0, 0)
		typ := product.Call
		if strings.EqualFold(t.Direction, "REC") {
			typ = product.Put
		}
		return &product.Option{
			Label: t.ID, Ccy: ccy, Face: t.Notional, Type: typ, Strike: t.Strike / 100, Expiry: exp,
			Underlying: product.SwapRateUnderlying{
				Fixed:    &product.Leg{Ccy: ccy, Face: 1, Effective: eff, End: end, Convention: preset.FixedLeg},
				Floating: &product.Leg{Ccy: ccy, Face: 1, Effective: eff, End: end, Convention: preset.FloatLeg},
			},
			Settlement: t.settlement(),
			Model:      product.Lognormal,
			VolKey:     marketdata.SampleSwaptionVol,
			Fees:       t.fee(ccy, spot),
		}, nil
	default:
		return nil, fmt.Errorf("unknown trade type %q", t.Type)
	}
}

func (t Trade) swap(mkt market.Market, settings pricing.Settings, spot time.Time) (*product.Swap, error) {
	preset, err := t.preset()
	if err != nil {
		return nil, err
	}
	end := spot.AddDate(t.tenor(5), 0, 0)
	ccy := t.Currency
	if ccy == "" {
		ccy = "EUR"
	}
	fixed := &product.Leg{Ccy: ccy, Face: t.Notional, Effective: spot, End: end, Convention: preset.FixedLeg}
	float := &product.Leg{Ccy: ccy, Face: t.Notional, Effective: spot, End: end, Convention: preset.FloatLeg}

	s := &product.Swap{Label: t.ID}
	switch strings.ToUpper(strings.TrimSpace(t.Direction)) {
	case "REC", "REC_FIXED":
		float.Payer = true
		s.Receive, s.Pay = fixed, float
	case "PAY", "PAY_FIXED":
		fixed.Payer = true
		s.Receive, s.Pay = float, fixed
	default:
		return nil, fmt.Errorf("invalid direction %q (use PAY or REC)", t.Direction)
	}

	if t.FixedRate != nil {
		fixed.FixedRate = *t.FixedRate / 100
		return s, nil
	}
	rate, err := pricing.ParRate(s, mkt, settings, pricing.DefaultSolverConfig)
	if err != nil {
		return nil, fmt.Errorf("par rate: %w", err)
	}
	fixed.FixedRate = rate
	return s, nil
}

func (t Trade) option(asOf time.Time, ccy string) (*product.Option, error) {
	if t.Strike <= 0 {
		return nil, fmt.Errorf("%s: strike must be > 0", t.Type)
	}
	asset := t.Asset
	if asset == "" {
		asset = marketdata.SampleEquity
	}
	exp := asOf.AddDate(t.expiry(), 0, 0)
	typ := product.Put
	if t.Call {
		typ = product.Call
	}
	return &product.Option{
		Label: t.ID, Ccy: ccy, Face: t.Notional, Type: typ, Strike: t.Strike, Expiry: exp,
		Underlying:     product.ForwardUnderlying{Asset: asset, Delivery: exp},
		Settlement:     t.settlement(),
		CashSettleDate: exp.AddDate(0, 0, 2),
		Model:          product.Lognormal,
		Fees:           t.fee(ccy, asOf.AddDate(0, 0, 2)),
	}, nil
}

func (t Trade) preset() (market.IRSPreset, error) {
	name := strings.ToUpper(strings.TrimSpace(t.Preset))
	if name == "" {
		name = "EUR_IRS_6M"
	}
	p, ok := market.IRSPresets[name]
	if !ok {
		return market.IRSPreset{}, fmt.Errorf("unknown preset %q", t.Preset)
	}
	return p, nil
}

func (t Trade) fee(ccy string, date time.Time) *product.Fee {
	if t.UpfrontFee == 0 {
		return nil
	}
	return &product.Fee{Ccy: ccy, Payments: []product.FeePayment{{Date: date, Amount: t.UpfrontFee}}}
}

func (t Trade) settlement() product.SettlementType {
	if strings.EqualFold(t.Settlement, string(product.Cash)) {
		return product.Cash
	}
	return product.Physical
}

func (t Trade) pool() []string {
	if len(t.Names) > 0 {
		return t.Names
	}
	return marketdata.SampleNames()
}

func (t Trade) recovery() float64 {
	if t.Recovery == 0 {
		return 0.4
	}
	return t.Recovery
}

func (t Trade) tenor(def int) int {
	if t.TenorYears <= 0 {
		return def
	}
	return t.TenorYears
}

func (t Trade) expiry() int {
	if t.ExpiryYears <= 0 {
		return 1
	}
	return t.ExpiryYears
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
