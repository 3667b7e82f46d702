package book

import (
	"math"
	"math/rand"
)

// -----------------------------------------------------------------------------
// Price-ladder synthesis. All prices are multiples of the tick size and kept
// to 3 decimals so repeated stepping never drifts off the grid.
// -----------------------------------------------------------------------------

// Tick is the minimum price increment used when synthesizing new levels.
const Tick = 0.001

// prevGuard bounds the inward walks on degenerate books.
const prevGuard = 20000

// Round3 snaps a price to 3 decimals.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func maxKey(m map[float64]float64) (float64, bool) {
	first := true
	var max float64
	for k := range m {
		if first || k > max {
			max = k
			first = false
		}
	}
	return max, !first
}

func minKey(m map[float64]float64) (float64, bool) {
	first := true
	var min float64
	for k := range m {
		if first || k < min {
			min = k
			first = false
		}
	}
	return min, !first
}

// NextBidPrices walks upward from the current best bid in tick increments,
// skipping prices already present, until count new distinct prices exist.
func NextBidPrices(st *State, count int) []float64 {
	cur, ok := maxKey(st.Current.Bid)
	if !ok {
		cur = 0
	}
	return stepOut(st.Current.Bid, cur, count)
}

// NextAskPrices walks upward from the current worst ask.
func NextAskPrices(st *State, count int) []float64 {
	cur, ok := maxKey(st.Current.Ask)
	if !ok {
		cur = Tick
	}
	return stepOut(st.Current.Ask, cur, count)
}

func stepOut(m map[float64]float64, from float64, count int) []float64 {
	out := make([]float64, 0, count)
	cur := from
	for len(out) < count {
		cur = Round3(cur + Tick)
		if _, exists := m[cur]; !exists {
			out = append(out, cur)
		}
	}
	return out
}

// PrevBidPrices walks downward from the current worst bid, stopping before
// prices go non-positive.
func PrevBidPrices(st *State, count int) []float64 {
	cur, ok := minKey(st.Current.Bid)
	if !ok {
		cur = Tick
	}
	return stepIn(st.Current.Bid, cur, count)
}

// PrevAskPrices walks downward from the current best ask. An empty ask side
// yields nothing.
func PrevAskPrices(st *State, count int) []float64 {
	cur, ok := minKey(st.Current.Ask)
	if !ok {
		return nil
	}
	return stepIn(st.Current.Ask, cur, count)
}

func stepIn(m map[float64]float64, from float64, count int) []float64 {
	out := make([]float64, 0, count)
	cur := from
	for guard := prevGuard; len(out) < count && guard > 0; guard-- {
		cur = Round3(cur - Tick)
		if cur <= 0 {
			break
		}
		if _, exists := m[cur]; !exists {
			out = append(out, cur)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Volume synthesis.
// -----------------------------------------------------------------------------

// AvgVolumeFromBase is the rounded mean of the positive base volumes on a
// side, floored at 1.
func AvgVolumeFromBase(st *State, side Side) float64 {
	var sum float64
	var n int
	for _, l := range st.Base.Get(side) {
		if l.Volume > 0 {
			sum += l.Volume
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return math.Max(1, math.Round(sum/float64(n)))
}

// Jitter multiplies a volume by a uniform factor in [0.9, 1.1], rounded,
// floored at 1.
func Jitter(v float64, rng *rand.Rand) float64 {
	return math.Max(1, math.Round(v*(0.9+rng.Float64()*0.2)))
}
