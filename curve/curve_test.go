package curve_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/ccrfast/curve"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestNewCurveFromDFs_LogLinear(t *testing.T) {
	t.Parallel()

	settlement := d(2025, 1, 1)
	mid := d(2025, 7, 2)
	maturity := d(2026, 1, 1)

	crv, err := curve.NewCurveFromDFs(settlement, map[time.Time]float64{maturity: 0.95})
	require.NoError(t, err)

	assert.Equal(t, 1.0, crv.DF(settlement))
	assert.Equal(t, 0.95, crv.DF(maturity))

	// log-linear midpoint: 0.95^(182/365)
	want := math.Pow(0.95, 182.0/365.0)
	got := crv.DF(mid)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("DF mismatch: got %.12f want %.12f", got, want)
	}
	assert.InDelta(t, -math.Log(0.95)*100, crv.ZeroRateAt(maturity), 1e-10)
	assert.InDelta(t, 0.95/want, curve.DFBetween(crv, mid, maturity), 1e-12)
}

func TestNewCurveFromZeros(t *testing.T) {
	t.Parallel()

	settlement := d(2025, 1, 1)
	crv, err := curve.NewCurveFromZeros(settlement, map[string]float64{"1Y": 3, "2Y": 3})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, crv.ZeroRateAt(d(2026, 6, 1)), 1e-10)

	_, err = curve.NewCurveFromZeros(settlement, map[string]float64{"XY": 3})
	require.Error(t, err)
}

func TestFlatAndShiftedCurve(t *testing.T) {
	t.Parallel()

	settlement := d(2025, 1, 1)
	flat := curve.NewFlatCurve(settlement, 0.02)
	assert.InDelta(t, math.Exp(-0.02), flat.DF(d(2026, 1, 1)), 1e-12)

	parallel := curve.NewShifted(flat, settlement, 0.01, 0)
	assert.InDelta(t, math.Exp(-0.03), parallel.DF(d(2026, 1, 1)), 1e-12)

	reverting := curve.NewShifted(flat, settlement, 0.01, 0.1)
	b := (1 - math.Exp(-0.1)) / 0.1
	assert.InDelta(t, math.Exp(-0.02-0.01*b), reverting.DF(d(2026, 1, 1)), 1e-12)
}

func TestHazardCurve(t *testing.T) {
	t.Parallel()

	asOf := d(2025, 1, 1)
	hc, err := curve.NewHazardCurve(asOf, []time.Time{d(2026, 1, 1), d(2027, 1, 1)}, []float64{0.01, 0.03})
	require.NoError(t, err)

	assert.Equal(t, 1.0, hc.SurvivalProbability(asOf))
	assert.InDelta(t, math.Exp(-0.01), hc.SurvivalProbability(d(2026, 1, 1)), 1e-12)
	assert.InDelta(t, math.Exp(-0.01-0.03), hc.SurvivalProbability(d(2027, 1, 1)), 1e-12)
	// flat extension of the last segment
	assert.InDelta(t, math.Exp(-0.01-0.03-0.03), hc.SurvivalProbability(d(2028, 1, 1)), 1e-12)
	assert.Equal(t, 0.03, hc.HazardAt(d(2026, 6, 1)))

	_, err = curve.NewHazardCurve(asOf, []time.Time{asOf}, []float64{0.01})
	require.Error(t, err)
}

func TestTermVol(t *testing.T) {
	t.Parallel()

	asOf := d(2025, 1, 1)
	s, err := curve.NewTermVol(asOf, []time.Time{d(2026, 1, 1), d(2027, 1, 1)}, []float64{0.20, 0.30})
	require.NoError(t, err)

	assert.Equal(t, 0.20, s.Interpolate(d(2025, 6, 1), 100))
	assert.Equal(t, 0.30, s.Interpolate(d(2030, 1, 1), 100))

	// total variance at 2Y-ish midpoint: halfway between 0.04 and 0.18
	mid := d(2026, 7, 2)
	tm := (365.0 + 182.0) / 365.0
	w := 0.04 + (0.18-0.04)*(tm-1)/(730.0/365.0-1)
	assert.InDelta(t, math.Sqrt(w/tm), s.Interpolate(mid, 100), 1e-12)

	assert.Equal(t, 0.25, curve.FlatVol(0.25).Interpolate(mid, 1))
}
