package book

import (
	"testing"

	"exchange-sim/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroFlushItems(t *testing.T) {
	st := seededState()
	items := ZeroFlushItems(st, 1234)

	require.Len(t, items, 5)
	seen := make(map[float64]bool)
	for _, it := range items {
		assert.Equal(t, "EURUSD", it.I)
		assert.Equal(t, 0.0, it.V)
		assert.Equal(t, int64(1234), it.T)
		seen[it.P] = true
	}
	for _, p := range []float64{1.100, 1.099, 1.098, -1.101, -1.102} {
		assert.True(t, seen[p], "missing price %v", p)
	}
}

func TestBuildAfterWithAgg(t *testing.T) {
	st := seededState()
	agg := NewAggState()
	agg.Push(SideBid, 1.100, 11)
	agg.Push(SideBid, 1.100, 22)
	agg.Push(SideAsk, 1.102, 33)

	items := BuildAfterWithAgg(st, agg, 99)

	// Bids descending with overlay parcels right after their base row, then
	// asks ascending with negated prices.
	want := []models.MQuoteItem{
		{I: "EURUSD", P: 1.100, V: 100, T: 99},
		{I: "EURUSD", P: 1.100, V: 11, T: 99},
		{I: "EURUSD", P: 1.100, V: 22, T: 99},
		{I: "EURUSD", P: 1.099, V: 200, T: 99},
		{I: "EURUSD", P: 1.098, V: 300, T: 99},
		{I: "EURUSD", P: -1.101, V: 150, T: 99},
		{I: "EURUSD", P: -1.102, V: 250, T: 99},
		{I: "EURUSD", P: -1.102, V: 33, T: 99},
	}
	assert.Equal(t, want, items)
}

func TestBuildPreZeroWithOps(t *testing.T) {
	t.Run("includes prices the ops will touch", func(t *testing.T) {
		st := seededState()
		items := BuildPreZeroWithOps(st, []models.MManualOp{
			{Side: "bid", Price: 1.105, Volume: 10},
			{Side: "ask", Price: 1.110, Volume: 10},
		}, 7)

		require.Len(t, items, 7)
		assert.Equal(t, 1.105, items[0].P) // highest bid first
		assert.Equal(t, -1.110, items[len(items)-1].P)
		for _, it := range items {
			assert.Equal(t, 0.0, it.V)
		}
	})

	t.Run("invalid ops add nothing", func(t *testing.T) {
		st := seededState()
		items := BuildPreZeroWithOps(st, []models.MManualOp{
			{Side: "bid", Price: 0, Volume: 10},
			{Side: "bid", Price: 1.2, Volume: -1},
		}, 7)
		assert.Len(t, items, 5)
	})
}
