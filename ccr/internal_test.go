package ccr

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/product"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestReconcileDates(t *testing.T) {
	t.Parallel()

	start := d(2025, 1, 15)
	bound := d(2026, 1, 15)

	t.Run("critical dates bring the day before", func(t *testing.T) {
		t.Parallel()
		got := reconcileDates(start,
			[]time.Time{d(2025, 7, 15), d(2025, 4, 15)},
			[]time.Time{d(2025, 6, 1), d(2025, 1, 16)},
			bound, nil)
		assert.Equal(t, []time.Time{
			start, d(2025, 1, 16), d(2025, 4, 15), d(2025, 5, 31), d(2025, 6, 1), d(2025, 7, 15),
		}, got)
	})

	t.Run("first external date past the bound closes the tail", func(t *testing.T) {
		t.Parallel()
		got := reconcileDates(start,
			[]time.Time{d(2025, 10, 15), d(2026, 4, 15), d(2026, 7, 15)},
			[]time.Time{d(2026, 1, 15)},
			bound, nil)
		assert.Equal(t, []time.Time{start, d(2025, 10, 15), d(2026, 1, 14), d(2026, 1, 15), d(2026, 4, 15)}, got)
	})

	t.Run("external date on the bound needs no tail", func(t *testing.T) {
		t.Parallel()
		got := reconcileDates(start, []time.Time{bound, d(2026, 4, 15)}, nil, bound, nil)
		assert.Equal(t, []time.Time{start, bound}, got)
	})

	t.Run("dates before start and nested dates are clipped", func(t *testing.T) {
		t.Parallel()
		got := reconcileDates(start,
			[]time.Time{d(2024, 12, 1)},
			[]time.Time{start, d(2027, 1, 1)},
			bound,
			[]time.Time{d(2024, 1, 1), d(2025, 3, 3), d(2027, 3, 3)})
		assert.Equal(t, []time.Time{start, d(2025, 3, 3)}, got)
	})
}

func TestPathStateRestart(t *testing.T) {
	t.Parallel()

	s := newPathState(0, nil)
	assert.True(t, s.advance(d(2025, 1, 1)))

	s.exercise = Exercised
	s.knocked = true
	s.lastLevel = 1.2
	assert.False(t, s.advance(d(2025, 2, 1)))
	assert.Equal(t, Exercised, s.Exercise())

	// Same date again restarts.
	assert.True(t, s.advance(d(2025, 2, 1)))
	assert.Equal(t, ExerciseNone, s.Exercise())
	assert.False(t, s.Knocked())
	assert.Zero(t, s.lastLevel)
	assert.Equal(t, "NONE", s.Exercise().String())
	assert.Equal(t, "NOT_EXERCISED", NotExercised.String())
}

func TestBridge(t *testing.T) {
	t.Parallel()

	o := &product.Option{Expiry: d(2026, 1, 15), Model: product.Lognormal}
	op := &optionPricer{option: o, asOfVol: 0.2}
	state := &PathState{lastDate: d(2025, 12, 16), lastLevel: 100, lastVol: 0.25}
	settle := d(2026, 2, 14)

	dT := yearFraction(state.lastDate, settle)
	h := yearFraction(state.lastDate, o.Expiry) / dT
	want := 100 * math.Exp(h*math.Log(110.0/100)+h*(1-h)*0.5*0.25*0.25*dT)
	assert.InDelta(t, want, op.bridge(state, 110, settle), 1e-12)

	// Fixed convexity volatility uses the as-of volatility.
	op.opts.FixConvexityVolatility = true
	want = 100 * math.Exp(h*math.Log(110.0/100)+h*(1-h)*0.5*0.2*0.2*dT)
	assert.InDelta(t, want, op.bridge(state, 110, settle), 1e-12)

	// The normal model is bridged linearly.
	o.Model = product.Normal
	assert.InDelta(t, 100+h*10, op.bridge(state, 110, settle), 1e-12)

	// A bridge over no time returns the current level.
	assert.Equal(t, 110.0, op.bridge(state, 110, state.lastDate))
}

func TestForwardVolatility(t *testing.T) {
	t.Parallel()

	asOf := d(2025, 1, 15)
	expiry := d(2027, 1, 15)

	flat := newForwardVolatility(curve.FlatVol(0.2), asOf, expiry, 100, true)
	assert.InDelta(t, 0.2, flat.At(asOf), 1e-12)
	assert.InDelta(t, 0.2, flat.At(d(2026, 3, 1)), 1e-12)

	term, err := curve.NewTermVol(asOf, []time.Time{d(2026, 1, 15), expiry}, []float64{0.15, 0.2})
	require.NoError(t, err)
	fwd := newForwardVolatility(term, asOf, expiry, 100, true)
	assert.InDelta(t, 0.2, fwd.At(asOf), 1e-12)

	T := yearFraction(asOf, expiry)
	t1 := yearFraction(asOf, d(2026, 1, 15))
	s1 := term.Interpolate(d(2026, 1, 15), 100)
	want := math.Sqrt((0.04*T - s1*s1*t1) / (T - t1))
	assert.InDelta(t, want, fwd.At(d(2026, 1, 20)), 1e-12)
	assert.Greater(t, fwd.At(d(2026, 1, 20)), 0.2)

	noTerm := newForwardVolatility(term, asOf, expiry, 100, false)
	assert.InDelta(t, 0.2, noTerm.At(d(2026, 6, 1)), 1e-12)
}
