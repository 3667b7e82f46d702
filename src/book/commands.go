package book

import "math/rand"

// -----------------------------------------------------------------------------
// Control command table. Each enumerated ladder/aggregation command maps to a
// pure mutation of one connection's (State, AggState); the transactional
// broadcast helper applies the same mutation to every subscribed connection.
// -----------------------------------------------------------------------------

// MutationContext carries everything a command mutation may touch.
type MutationContext struct {
	State *State
	Agg   *AggState
	Rng   *rand.Rand
	Log   func(message string) // routed to control sessions
}

// Mutation applies one command to one connection's book.
type Mutation func(ctx *MutationContext)

func sideLabel(side Side) string {
	if side == SideBid {
		return "Bid"
	}
	return "Ask"
}

func clearAggAt(ctx *MutationContext, side Side, where string) {
	if !ClearAggOnLevel(ctx.State, ctx.Agg, side, where) {
		ctx.Log("no aggregation on " + sideLabel(side) + " level")
	}
}

var commands = map[string]Mutation{
	// Side clears.
	"quoteClearBid": func(ctx *MutationContext) { ClearSideWithAgg(ctx.State, ctx.Agg, SideBid) },
	"quoteClearAsk": func(ctx *MutationContext) { ClearSideWithAgg(ctx.State, ctx.Agg, SideAsk) },
	"quoteClearAll": func(ctx *MutationContext) { ClearAllWithAgg(ctx.State, ctx.Agg) },

	// Bulk growth (3 levels per side).
	"quoteAddBid": func(ctx *MutationContext) { AddSideLevels(ctx.State, SideBid, 3, ctx.Rng) },
	"quoteAddAsk": func(ctx *MutationContext) { AddSideLevels(ctx.State, SideAsk, 3, ctx.Rng) },
	"quoteAddBoth": func(ctx *MutationContext) {
		AddSideLevels(ctx.State, SideBid, 3, ctx.Rng)
		AddSideLevels(ctx.State, SideAsk, 3, ctx.Rng)
	},

	// Single-level growth.
	"quoteAddBidTop1":    func(ctx *MutationContext) { AddOneTop(ctx.State, SideBid, ctx.Rng) },
	"quoteAddBidBottom1": func(ctx *MutationContext) { AddOneBottom(ctx.State, SideBid, ctx.Rng) },
	"quoteAddAskTop1":    func(ctx *MutationContext) { AddOneTop(ctx.State, SideAsk, ctx.Rng) },
	"quoteAddAskBottom1": func(ctx *MutationContext) { AddOneBottom(ctx.State, SideAsk, ctx.Rng) },
	"quoteAddBothTop1": func(ctx *MutationContext) {
		AddOneTop(ctx.State, SideBid, ctx.Rng)
		AddOneTop(ctx.State, SideAsk, ctx.Rng)
	},
	"quoteAddBothBottom1": func(ctx *MutationContext) {
		AddOneBottom(ctx.State, SideBid, ctx.Rng)
		AddOneBottom(ctx.State, SideAsk, ctx.Rng)
	},

	// Single-level removal.
	"quoteDelBidTop1":    func(ctx *MutationContext) { RemoveOneTop(ctx.State, ctx.Agg, SideBid) },
	"quoteDelBidBottom1": func(ctx *MutationContext) { RemoveOneBottom(ctx.State, ctx.Agg, SideBid) },
	"quoteDelAskTop1":    func(ctx *MutationContext) { RemoveOneTop(ctx.State, ctx.Agg, SideAsk) },
	"quoteDelAskBottom1": func(ctx *MutationContext) { RemoveOneBottom(ctx.State, ctx.Agg, SideAsk) },
	"quoteDelBothTop1": func(ctx *MutationContext) {
		RemoveOneTop(ctx.State, ctx.Agg, SideBid)
		RemoveOneTop(ctx.State, ctx.Agg, SideAsk)
	},
	"quoteDelBothBottom1": func(ctx *MutationContext) {
		RemoveOneBottom(ctx.State, ctx.Agg, SideBid)
		RemoveOneBottom(ctx.State, ctx.Agg, SideAsk)
	},

	// Aggregation pushes.
	"quoteAggBidUp":   func(ctx *MutationContext) { AggregateOnLevel(ctx.State, ctx.Agg, SideBid, "top", ctx.Rng) },
	"quoteAggBidDown": func(ctx *MutationContext) { AggregateOnLevel(ctx.State, ctx.Agg, SideBid, "bottom", ctx.Rng) },
	"quoteAggAskUp":   func(ctx *MutationContext) { AggregateOnLevel(ctx.State, ctx.Agg, SideAsk, "top", ctx.Rng) },
	"quoteAggAskDown": func(ctx *MutationContext) { AggregateOnLevel(ctx.State, ctx.Agg, SideAsk, "bottom", ctx.Rng) },
	"quoteAggBothUp": func(ctx *MutationContext) {
		AggregateOnLevel(ctx.State, ctx.Agg, SideBid, "top", ctx.Rng)
		AggregateOnLevel(ctx.State, ctx.Agg, SideAsk, "top", ctx.Rng)
	},
	"quoteAggBothDown": func(ctx *MutationContext) {
		AggregateOnLevel(ctx.State, ctx.Agg, SideBid, "bottom", ctx.Rng)
		AggregateOnLevel(ctx.State, ctx.Agg, SideAsk, "bottom", ctx.Rng)
	},
	"quoteAggBidAll": func(ctx *MutationContext) { AggregateAllLevels(ctx.State, ctx.Agg, SideBid, ctx.Rng) },
	"quoteAggAskAll": func(ctx *MutationContext) { AggregateAllLevels(ctx.State, ctx.Agg, SideAsk, ctx.Rng) },
	"quoteAggBothAll": func(ctx *MutationContext) {
		AggregateAllLevels(ctx.State, ctx.Agg, SideBid, ctx.Rng)
		AggregateAllLevels(ctx.State, ctx.Agg, SideAsk, ctx.Rng)
	},

	// Aggregation pops/clears.
	"quoteAggClearBidTop": func(ctx *MutationContext) { clearAggAt(ctx, SideBid, "top") },
	"quoteAggClearBidBot": func(ctx *MutationContext) { clearAggAt(ctx, SideBid, "bottom") },
	"quoteAggClearAskTop": func(ctx *MutationContext) { clearAggAt(ctx, SideAsk, "top") },
	"quoteAggClearAskBot": func(ctx *MutationContext) { clearAggAt(ctx, SideAsk, "bottom") },
	"quoteAggClearBothTop": func(ctx *MutationContext) {
		clearAggAt(ctx, SideBid, "top")
		clearAggAt(ctx, SideAsk, "top")
	},
	"quoteAggClearBothBot": func(ctx *MutationContext) {
		clearAggAt(ctx, SideBid, "bottom")
		clearAggAt(ctx, SideAsk, "bottom")
	},
	"quoteAggClearBidAll":  func(ctx *MutationContext) { ctx.Agg.ClearSide(SideBid) },
	"quoteAggClearAskAll":  func(ctx *MutationContext) { ctx.Agg.ClearSide(SideAsk) },
	"quoteAggClearBothAll": func(ctx *MutationContext) { ctx.Agg.ClearAll() },
}

// Lookup resolves a command name to its mutation.
func Lookup(cmd string) (Mutation, bool) {
	m, ok := commands[cmd]
	return m, ok
}
