package book

import (
	"math/rand"
	"testing"

	"exchange-sim/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRng() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func TestAddSideLevels(t *testing.T) {
	t.Run("adds new prices above best bid", func(t *testing.T) {
		st := seededState()
		AddSideLevels(st, SideBid, 3, testRng())

		require.Len(t, st.Current.Bid, 6)
		for _, p := range []float64{1.101, 1.102, 1.103} {
			assert.Contains(t, st.Current.Bid, p)
			assert.GreaterOrEqual(t, st.Current.Bid[p], 1.0)
		}
	})

	t.Run("empty side reseeds from base", func(t *testing.T) {
		st := seededState()
		ClearSideWithAgg(st, NewAggState(), SideAsk)
		AddSideLevels(st, SideAsk, 3, testRng())

		// Base levels come back, ask prices keyed positive.
		assert.Equal(t, map[float64]float64{1.101: 150, 1.102: 250}, st.Current.Ask)
	})
}

func TestAddOneTop(t *testing.T) {
	t.Run("bid goes above the best", func(t *testing.T) {
		st := seededState()
		AddOneTop(st, SideBid, testRng())
		assert.Contains(t, st.Current.Bid, 1.101)
	})

	t.Run("ask goes inside the spread", func(t *testing.T) {
		st := seededState()
		AddOneTop(st, SideAsk, testRng())
		assert.Contains(t, st.Current.Ask, 1.100)
	})
}

func TestAddOneBottom(t *testing.T) {
	st := seededState()
	AddOneBottom(st, SideBid, testRng())
	assert.Contains(t, st.Current.Bid, 1.097)

	AddOneBottom(st, SideAsk, testRng())
	assert.Contains(t, st.Current.Ask, 1.103)
}

func TestRemoveOne(t *testing.T) {
	t.Run("top removes best price and its overlay", func(t *testing.T) {
		st := seededState()
		agg := NewAggState()
		agg.Push(SideBid, 1.100, 42)

		RemoveOneTop(st, agg, SideBid)
		assert.NotContains(t, st.Current.Bid, 1.100)
		assert.Empty(t, agg.At(SideBid, 1.100))

		// Best ask is the lowest price.
		RemoveOneTop(st, agg, SideAsk)
		assert.NotContains(t, st.Current.Ask, 1.101)
	})

	t.Run("bottom removes worst price", func(t *testing.T) {
		st := seededState()
		agg := NewAggState()
		RemoveOneBottom(st, agg, SideBid)
		assert.NotContains(t, st.Current.Bid, 1.098)
		RemoveOneBottom(st, agg, SideAsk)
		assert.NotContains(t, st.Current.Ask, 1.102)
	})

	t.Run("empty side is a no-op", func(t *testing.T) {
		st := NewEmptyState("EURUSD")
		RemoveOneTop(st, NewAggState(), SideBid)
		assert.Empty(t, st.Current.Bid)
	})
}

func TestAddRemoveRoundTrip(t *testing.T) {
	st := seededState()
	agg := NewAggState()
	before := make(map[float64]float64, len(st.Current.Bid))
	for p, v := range st.Current.Bid {
		before[p] = v
	}

	AddOneTop(st, SideBid, testRng())
	RemoveOneTop(st, agg, SideBid)
	assert.Equal(t, before, st.Current.Bid)
}

func TestClearWithAgg(t *testing.T) {
	st := seededState()
	agg := NewAggState()
	agg.Push(SideBid, 1.100, 10)
	agg.Push(SideAsk, 1.101, 20)

	ClearAllWithAgg(st, agg)
	assert.Empty(t, st.Current.Bid)
	assert.Empty(t, st.Current.Ask)
	assert.Empty(t, agg.Levels.Bid)
	assert.Empty(t, agg.Levels.Ask)
}

func TestAggregateOnLevel(t *testing.T) {
	st := seededState()
	agg := NewAggState()

	AggregateOnLevel(st, agg, SideBid, "top", testRng())
	parcels := agg.At(SideBid, 1.100)
	require.Len(t, parcels, 1)
	assert.GreaterOrEqual(t, parcels[0], 90.0)
	assert.LessOrEqual(t, parcels[0], 110.0)

	t.Run("zero volume level is skipped", func(t *testing.T) {
		st := seededState()
		st.Current.Bid[1.100] = 0
		agg := NewAggState()
		AggregateOnLevel(st, agg, SideBid, "top", testRng())
		assert.Empty(t, agg.At(SideBid, 1.100))
	})
}

func TestAggregateAllLevels(t *testing.T) {
	st := seededState()
	agg := NewAggState()
	AggregateAllLevels(st, agg, SideAsk, testRng())
	assert.Len(t, agg.At(SideAsk, 1.101), 1)
	assert.Len(t, agg.At(SideAsk, 1.102), 1)
}

func TestClearAggOnLevel(t *testing.T) {
	st := seededState()
	agg := NewAggState()
	agg.Push(SideBid, 1.100, 10)
	agg.Push(SideBid, 1.100, 20)

	// Pops are LIFO.
	assert.True(t, ClearAggOnLevel(st, agg, SideBid, "top"))
	assert.Equal(t, []float64{10}, agg.At(SideBid, 1.100))
	assert.True(t, ClearAggOnLevel(st, agg, SideBid, "top"))
	assert.False(t, ClearAggOnLevel(st, agg, SideBid, "top"))

	// Empty side reports nothing to clear without failing.
	assert.True(t, ClearAggOnLevel(NewEmptyState("EURUSD"), agg, SideBid, "top"))
}

func TestApplyManualOps(t *testing.T) {
	t.Run("new price creates a level", func(t *testing.T) {
		st := seededState()
		agg := NewAggState()
		ApplyManualOps(st, agg, []models.MManualOp{{Side: "bid", Price: 1.105, Volume: 500}}, false)
		assert.Equal(t, 500.0, st.Current.Bid[1.105])
	})

	t.Run("existing price stacks as overlay", func(t *testing.T) {
		st := seededState()
		agg := NewAggState()
		ApplyManualOps(st, agg, []models.MManualOp{{Side: "bid", Price: 1.100, Volume: 50}}, false)
		assert.Equal(t, 100.0, st.Current.Bid[1.100])
		assert.Equal(t, []float64{50}, agg.At(SideBid, 1.100))
	})

	t.Run("existing price replaces when asked", func(t *testing.T) {
		st := seededState()
		agg := NewAggState()
		ApplyManualOps(st, agg, []models.MManualOp{{Side: "bid", Price: 1.100, Volume: 50}}, true)
		assert.Equal(t, 50.0, st.Current.Bid[1.100])
		assert.Empty(t, agg.At(SideBid, 1.100))
	})

	t.Run("non-positive ops are skipped", func(t *testing.T) {
		st := seededState()
		agg := NewAggState()
		ApplyManualOps(st, agg, []models.MManualOp{
			{Side: "bid", Price: -1, Volume: 10},
			{Side: "ask", Price: 1.2, Volume: 0},
		}, false)
		assert.Len(t, st.Current.Bid, 3)
		assert.Len(t, st.Current.Ask, 2)
	})
}

func TestApplyQuoteItems(t *testing.T) {
	t.Run("sign selects the side", func(t *testing.T) {
		st := NewEmptyState("EURUSD")
		ApplyQuoteItems(st, []models.MQuoteItem{
			{P: 1.1, V: 100},
			{P: -1.2, V: 200},
		})
		assert.Equal(t, 100.0, st.Current.Bid[1.1])
		assert.Equal(t, 200.0, st.Current.Ask[1.2])
	})

	t.Run("zero volume deletes from both sides", func(t *testing.T) {
		st := seededState()
		ApplyQuoteItems(st, []models.MQuoteItem{{P: -1.101, V: 0}})
		assert.NotContains(t, st.Current.Ask, 1.101)
	})

	t.Run("setting a side evicts the magnitude from the other", func(t *testing.T) {
		st := seededState()
		ApplyQuoteItems(st, []models.MQuoteItem{{P: 1.101, V: 75}})
		assert.Equal(t, 75.0, st.Current.Bid[1.101])
		assert.NotContains(t, st.Current.Ask, 1.101)
	})
}
