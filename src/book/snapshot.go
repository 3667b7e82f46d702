package book

import (
	"math"
	"sort"

	"exchange-sim/src/models"
)

// -----------------------------------------------------------------------------
// Quote-frame assembly. Emission order is bid prices descending, then ask
// prices ascending; ask rows carry the negated price.
// -----------------------------------------------------------------------------

func sortedPrices(m map[float64]float64, descending bool) []float64 {
	out := make([]float64, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Float64s(out)
	if descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// ZeroFlushItems emits every currently-held price at volume 0, in map order.
// Receivers that do not special-case replacement infer removals from it.
func ZeroFlushItems(st *State, ts int64) []models.MQuoteItem {
	items := make([]models.MQuoteItem, 0, len(st.Current.Bid)+len(st.Current.Ask))
	for p := range st.Current.Bid {
		items = append(items, models.MQuoteItem{I: st.Instrument, P: p, V: 0, T: ts})
	}
	for p := range st.Current.Ask {
		items = append(items, models.MQuoteItem{I: st.Instrument, P: -math.Abs(p), V: 0, T: ts})
	}
	return items
}

// BuildAfterWithAgg emits one row per price at its base volume, immediately
// followed by one row per overlay parcel in push order at that same price.
// Consumers rely on this interleaving.
func BuildAfterWithAgg(st *State, agg *AggState, ts int64) []models.MQuoteItem {
	var items []models.MQuoteItem
	for _, p := range sortedPrices(st.Current.Bid, true) {
		items = append(items, models.MQuoteItem{I: st.Instrument, P: p, V: st.Current.Bid[p], T: ts})
		for _, v := range agg.At(SideBid, p) {
			items = append(items, models.MQuoteItem{I: st.Instrument, P: p, V: v, T: ts})
		}
	}
	for _, p := range sortedPrices(st.Current.Ask, false) {
		neg := -math.Abs(p)
		items = append(items, models.MQuoteItem{I: st.Instrument, P: neg, V: st.Current.Ask[p], T: ts})
		for _, v := range agg.At(SideAsk, p) {
			items = append(items, models.MQuoteItem{I: st.Instrument, P: neg, V: v, T: ts})
		}
	}
	return items
}

// BuildPreZeroWithOps emits the pre-mutation zero frame for a manual-quote
// command: every held price plus every price the ops are about to touch,
// bid descending then ask ascending, all at volume 0.
func BuildPreZeroWithOps(st *State, ops []models.MManualOp, ts int64) []models.MQuoteItem {
	bidSet := make(map[float64]struct{}, len(st.Current.Bid))
	askSet := make(map[float64]struct{}, len(st.Current.Ask))
	for p := range st.Current.Bid {
		bidSet[p] = struct{}{}
	}
	for p := range st.Current.Ask {
		askSet[p] = struct{}{}
	}
	for _, op := range ops {
		if op.Price <= 0 || op.Volume <= 0 {
			continue
		}
		if Side(op.Side) == SideAsk {
			askSet[op.Price] = struct{}{}
		} else {
			bidSet[op.Price] = struct{}{}
		}
	}

	bidPrices := make([]float64, 0, len(bidSet))
	for p := range bidSet {
		bidPrices = append(bidPrices, p)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(bidPrices)))
	askPrices := make([]float64, 0, len(askSet))
	for p := range askSet {
		askPrices = append(askPrices, p)
	}
	sort.Float64s(askPrices)

	items := make([]models.MQuoteItem, 0, len(bidPrices)+len(askPrices))
	for _, p := range bidPrices {
		items = append(items, models.MQuoteItem{I: st.Instrument, P: p, V: 0, T: ts})
	}
	for _, p := range askPrices {
		items = append(items, models.MQuoteItem{I: st.Instrument, P: -math.Abs(p), V: 0, T: ts})
	}
	return items
}
