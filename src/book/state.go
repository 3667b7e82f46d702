package book

import "math"

// -----------------------------------------------------------------------------
// Per-connection order-book state. Base is the immutable snapshot taken at
// subscribe time; Current is the live price->volume ladder. Ask prices are
// stored as positive magnitudes and only signed negative on the wire.
// -----------------------------------------------------------------------------

// Side of the book.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// Level is one (price, volume) row of a base snapshot.
type Level struct {
	Price  float64
	Volume float64
}

// Sides pairs one value per book side.
type Sides[T any] struct {
	Bid T
	Ask T
}

func (s *Sides[T]) Get(side Side) T {
	if side == SideAsk {
		return s.Ask
	}
	return s.Bid
}

// State is one connection's book.
type State struct {
	Instrument string
	Base       Sides[[]Level]
	Current    Sides[map[float64]float64]
}

// NewState seeds a book from subscribe-time levels. Current copies Base with
// ask prices normalized to positive magnitude keys.
func NewState(instrument string, bid, ask []Level) *State {
	st := &State{
		Instrument: instrument,
		Base:       Sides[[]Level]{Bid: bid, Ask: ask},
		Current: Sides[map[float64]float64]{
			Bid: make(map[float64]float64, len(bid)),
			Ask: make(map[float64]float64, len(ask)),
		},
	}
	for _, l := range bid {
		st.Current.Bid[l.Price] = l.Volume
	}
	for _, l := range ask {
		st.Current.Ask[math.Abs(l.Price)] = l.Volume
	}
	return st
}

// NewEmptyState is used when a quote update arrives for a subscription that
// never produced a book (upd-template subscribes).
func NewEmptyState(instrument string) *State {
	return NewState(instrument, nil, nil)
}
