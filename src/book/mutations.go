package book

import (
	"math"
	"math/rand"

	"exchange-sim/src/models"
)

// -----------------------------------------------------------------------------
// Ladder growth/shrink.
// -----------------------------------------------------------------------------

// AddSideLevels grows a side by count tick-stepped prices with jittered
// volume. An empty side reseeds from Base instead.
func AddSideLevels(st *State, side Side, count int, rng *rand.Rand) {
	cur := st.Current.Get(side)
	if len(cur) == 0 {
		for _, l := range st.Base.Get(side) {
			price := l.Price
			if side == SideAsk {
				price = math.Abs(price)
			}
			cur[price] = l.Volume
		}
		return
	}
	avg := AvgVolumeFromBase(st, side)
	var prices []float64
	if side == SideBid {
		prices = NextBidPrices(st, count)
	} else {
		prices = NextAskPrices(st, count)
	}
	for _, p := range prices {
		cur[p] = Jitter(avg, rng)
	}
}

// AddOneTop adds one level at the best end of a side: above the best bid,
// inside the spread for the ask.
func AddOneTop(st *State, side Side, rng *rand.Rand) {
	cur := st.Current.Get(side)
	if len(cur) == 0 {
		AddSideLevels(st, side, 1, rng)
		return
	}
	avg := AvgVolumeFromBase(st, side)
	var prices []float64
	if side == SideBid {
		prices = NextBidPrices(st, 1)
	} else {
		prices = PrevAskPrices(st, 1)
	}
	for _, p := range prices {
		cur[p] = Jitter(avg, rng)
	}
}

// AddOneBottom adds one level at the worst end of a side.
func AddOneBottom(st *State, side Side, rng *rand.Rand) {
	cur := st.Current.Get(side)
	if len(cur) == 0 {
		AddSideLevels(st, side, 1, rng)
		return
	}
	avg := AvgVolumeFromBase(st, side)
	if side == SideBid {
		prices := PrevBidPrices(st, 1)
		if len(prices) == 0 {
			// Walk exhausted close to zero: try one tick below the worst bid.
			min, _ := minKey(cur)
			p := Round3(min - Tick)
			if p > 0 {
				cur[p] = Jitter(avg, rng)
			}
			return
		}
		for _, p := range prices {
			cur[p] = Jitter(avg, rng)
		}
		return
	}
	for _, p := range NextAskPrices(st, 1) {
		cur[p] = Jitter(avg, rng)
	}
}

// bestPrice resolves top/bottom to a concrete price: top is the best price
// (max bid, min ask), bottom the worst.
func bestPrice(m map[float64]float64, side Side, where string) (float64, bool) {
	if len(m) == 0 {
		return 0, false
	}
	wantMax := (side == SideBid) == (where == "top")
	if wantMax {
		return maxKey(m)
	}
	return minKey(m)
}

// RemoveOneTop removes the best price on a side together with its overlay.
func RemoveOneTop(st *State, agg *AggState, side Side) {
	removeOne(st, agg, side, "top")
}

// RemoveOneBottom removes the worst price on a side together with its overlay.
func RemoveOneBottom(st *State, agg *AggState, side Side) {
	removeOne(st, agg, side, "bottom")
}

func removeOne(st *State, agg *AggState, side Side, where string) {
	cur := st.Current.Get(side)
	price, ok := bestPrice(cur, side, where)
	if !ok {
		return
	}
	delete(cur, price)
	agg.DeletePrice(side, price)
}

// ClearSideWithAgg empties one side's ladder and overlay.
func ClearSideWithAgg(st *State, agg *AggState, side Side) {
	clear(st.Current.Get(side))
	agg.ClearSide(side)
}

// ClearAllWithAgg empties both sides.
func ClearAllWithAgg(st *State, agg *AggState) {
	ClearSideWithAgg(st, agg, SideBid)
	ClearSideWithAgg(st, agg, SideAsk)
}

// -----------------------------------------------------------------------------
// Aggregation overlay mutations.
// -----------------------------------------------------------------------------

// AggregateOnLevel picks the top/bottom price of a side and pushes a jittered
// parcel derived from its current volume.
func AggregateOnLevel(st *State, agg *AggState, side Side, where string, rng *rand.Rand) {
	cur := st.Current.Get(side)
	price, ok := bestPrice(cur, side, where)
	if !ok {
		return
	}
	vol := cur[price]
	if vol <= 0 {
		return
	}
	agg.Push(side, price, Jitter(vol, rng))
}

// AggregateAllLevels pushes one jittered parcel onto every level of a side.
func AggregateAllLevels(st *State, agg *AggState, side Side, rng *rand.Rand) {
	for price, vol := range st.Current.Get(side) {
		agg.Push(side, price, Jitter(vol, rng))
	}
}

// ClearAggOnLevel pops the last-pushed parcel at the top/bottom price of a
// side. False when that level has no overlay.
func ClearAggOnLevel(st *State, agg *AggState, side Side, where string) bool {
	price, ok := bestPrice(st.Current.Get(side), side, where)
	if !ok {
		return true
	}
	return agg.PopLast(side, price)
}

// -----------------------------------------------------------------------------
// Direct quote application.
// -----------------------------------------------------------------------------

// ApplyManualOps applies explicit level operations: an op on an existing
// level either replaces its volume or stacks as an aggregation parcel; an op
// on a new price creates the level. Non-positive prices/volumes are skipped.
func ApplyManualOps(st *State, agg *AggState, ops []models.MManualOp, replaceCurrent bool) {
	for _, op := range ops {
		if op.Price <= 0 || op.Volume <= 0 {
			continue
		}
		side := SideBid
		if Side(op.Side) == SideAsk {
			side = SideAsk
		}
		cur := st.Current.Get(side)
		if _, exists := cur[op.Price]; exists {
			if replaceCurrent {
				cur[op.Price] = op.Volume
			} else {
				agg.Push(side, op.Price, op.Volume)
			}
		} else {
			cur[op.Price] = op.Volume
		}
	}
}

// ApplyQuoteItems applies a template-built quote payload to the book: the
// sign of the price selects the side, non-positive volume deletes the price
// from both sides, positive volume sets the level and evicts the magnitude
// from the opposite side.
func ApplyQuoteItems(st *State, items []models.MQuoteItem) {
	for _, q := range items {
		side := SideBid
		if q.P < 0 {
			side = SideAsk
		}
		pAbs := math.Abs(q.P)
		if q.V <= 0 {
			delete(st.Current.Bid, pAbs)
			delete(st.Current.Ask, pAbs)
			continue
		}
		st.Current.Get(side)[pAbs] = q.V
		delete(st.Current.Get(side.Other()), pAbs)
	}
}
