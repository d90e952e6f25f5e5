package market_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/ccrfast/curve"
	"github.com/meenmo/ccrfast/market"
)

func TestSnapshotLookupAndClone(t *testing.T) {
	t.Parallel()

	asOf := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	snap := market.NewSnapshot(asOf).
		SetDiscount("EUR", curve.NewFlatCurve(asOf, 0.02)).
		SetSpot("SX5E", 5000, 0.03).
		SetVol("SX5E", curve.FlatVol(0.2))

	_, ok := snap.DiscountCurve("EUR")
	require.True(t, ok)
	_, ok = snap.DiscountCurve("USD")
	assert.False(t, ok)
	_, ok = snap.SurvivalCurve("ACME")
	assert.False(t, ok)

	later := asOf.AddDate(0, 6, 0)
	clone := snap.Clone(later).SetSpot("SX5E", 4000, 0.03)
	assert.Equal(t, later, clone.AsOf())

	spot, _ := snap.Spot("SX5E")
	assert.Equal(t, 5000.0, spot)
	spot, _ = clone.Spot("SX5E")
	assert.Equal(t, 4000.0, spot)
	assert.Equal(t, 0.03, clone.DividendYield("SX5E"))
	assert.True(t, market.IsOvernight(market.ESTR))
	assert.False(t, market.IsOvernight(market.EURIBOR6M))
}
