package book

// -----------------------------------------------------------------------------
// Aggregation overlay: extra volume parcels layered on a price level without
// replacing its base volume. Parcels append at the tail and only the tail is
// poppable; snapshot emission walks the list in push order.
// -----------------------------------------------------------------------------

// AggState is the overlay paired 1:1 with a State.
type AggState struct {
	Levels Sides[map[float64][]float64]
}

func NewAggState() *AggState {
	return &AggState{
		Levels: Sides[map[float64][]float64]{
			Bid: make(map[float64][]float64),
			Ask: make(map[float64][]float64),
		},
	}
}

// Push appends a parcel at the tail of a level's overlay.
func (a *AggState) Push(side Side, price, volume float64) {
	m := a.Levels.Get(side)
	m[price] = append(m[price], volume)
}

// PopLast removes the most recently pushed parcel at a level. False when the
// level has no overlay.
func (a *AggState) PopLast(side Side, price float64) bool {
	m := a.Levels.Get(side)
	arr := m[price]
	if len(arr) == 0 {
		return false
	}
	m[price] = arr[:len(arr)-1]
	return true
}

// At returns the overlay parcels at a price in push order.
func (a *AggState) At(side Side, price float64) []float64 {
	return a.Levels.Get(side)[price]
}

// DeletePrice drops a level's whole overlay, used when the level itself is
// removed from the ladder.
func (a *AggState) DeletePrice(side Side, price float64) {
	delete(a.Levels.Get(side), price)
}

// ClearSide drops every overlay on a side.
func (a *AggState) ClearSide(side Side) {
	clear(a.Levels.Get(side))
}

// ClearAll drops every overlay.
func (a *AggState) ClearAll() {
	clear(a.Levels.Bid)
	clear(a.Levels.Ask)
}
