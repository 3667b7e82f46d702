package server

import (
	"fmt"
	"math"
	"sort"
	"time"

	"exchange-sim/src/book"
	"exchange-sim/src/models"
	"exchange-sim/src/protocol"
)

// -----------------------------------------------------------------------------
// Control commands
// -----------------------------------------------------------------------------

func (e *Engine) handleControl(c *Client, msg models.MInbound) {
	switch msg.Cmd {
	case "acceptOn":
		e.acceptUserClients = true
		e.logToControls("accepting user connections")
		e.broadcastStatusToControls()
	case "acceptOff":
		e.acceptUserClients = false
		e.logToControls("refusing user connections")
		e.broadcastStatusToControls()
	case "closeAll":
		e.closeEveryConnection()
	case "closeUsers":
		e.closeAllUsers(1000, "manual_disconnect")
		e.broadcastStatusToControls()
	case "manualQuote":
		e.sendManualQuoteToAll(msg.Ops, msg.ReplaceCurrent)
	case "saveSubscribeUpd":
		e.saveSubscribeUpd(c)
	case "quoteUpdate":
		e.sendQuoteUpdateToAll()
	default:
		if mutation, ok := book.Lookup(msg.Cmd); ok {
			e.sendTransactionalToAll(mutation)
			return
		}
		e.trySend(c, models.MErrorMsg{
			ID:      c.nextID(),
			T:       "Error",
			Message: fmt.Sprintf("unknown cmd: %s", msg.Cmd),
		})
	}
}

func (e *Engine) closeEveryConnection() {
	e.notifyClientsClosed(e.activeSessionIDs())
	targets := make([]*Client, 0, len(e.clients))
	for c := range e.clients {
		targets = append(targets, c)
	}
	for _, c := range targets {
		c.sendClose(1000, "server_closeAll")
	}
	e.scheduleTerminate(targets)
	e.broadcastStatusToControls()
}

// -----------------------------------------------------------------------------
// Transactional quote frames
//
// Every frame a subscriber receives is zero-flush items for its current book
// followed by the post-mutation snapshot, merged into one quote payload when
// zero-flash is on and reduced to the non-zero snapshot when off.
// -----------------------------------------------------------------------------

func (e *Engine) sendTransactionalToAll(mutation book.Mutation) {
	ts := time.Now().UnixMilli()
	for c := range e.clients {
		if c.isControl || c.instrument == "" || c.bookState == nil {
			continue
		}
		preZero := book.ZeroFlushItems(c.bookState, ts)
		// A failed mutation is logged and contained, but the subscriber still
		// gets a frame for whatever state the book is now in.
		e.applyMutation(c, mutation)
		after := book.BuildAfterWithAgg(c.bookState, c.aggState, ts)
		e.sendQuoteFrame(c, preZero, after)
	}
}

// applyMutation runs one book mutation for one connection; a failure is
// contained to that connection.
func (e *Engine) applyMutation(c *Client, mutation book.Mutation) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("mutation failed for %s: %v", c.id, r)
		}
	}()
	mutation(&book.MutationContext{
		State: c.bookState,
		Agg:   c.aggState,
		Rng:   e.rng,
		Log:   e.logToControls,
	})
}

func (e *Engine) sendManualQuoteToAll(ops []models.MManualOp, replaceCurrent bool) {
	ts := time.Now().UnixMilli()
	for c := range e.clients {
		if c.isControl || c.instrument == "" {
			continue
		}
		if c.bookState == nil {
			c.bookState = book.NewEmptyState(c.instrument)
			c.aggState = book.NewAggState()
		}
		preZero := book.BuildPreZeroWithOps(c.bookState, ops, ts)
		book.ApplyManualOps(c.bookState, c.aggState, ops, replaceCurrent)
		after := book.BuildAfterWithAgg(c.bookState, c.aggState, ts)
		e.sendQuoteFrame(c, preZero, after)
	}
}

// sendQuoteFrame wraps the item lists into the quote wrapper and sends.
func (e *Engine) sendQuoteFrame(c *Client, preZero, after []models.MQuoteItem) {
	wrapper := e.templates.LoadWrapper("quote", nil)
	wm, _ := wrapper.(map[string]interface{})
	if wm == nil {
		e.Logger.Error("quote wrapper not found, dropping frame for %s", c.id)
		return
	}

	var items []models.MQuoteItem
	if e.runtime.ZeroFlash {
		items = append(append([]models.MQuoteItem{}, preZero...), after...)
	} else {
		items = make([]models.MQuoteItem, 0, len(after))
		for _, it := range after {
			if it.V != 0 {
				items = append(items, it)
			}
		}
	}

	payload := make(map[string]interface{}, len(wm)+2)
	for k, v := range wm {
		payload[k] = v
	}
	payload["id"] = c.nextID()
	payload["p"] = items
	e.trySend(c, payload)
}

// -----------------------------------------------------------------------------
// Template-driven quote update
// -----------------------------------------------------------------------------

// sendQuoteUpdateToAll plays the configured quote template into every
// subscriber's book and forwards the (possibly zero-filtered) rows.
func (e *Engine) sendQuoteUpdateToAll() {
	for c := range e.clients {
		if c.isControl || c.instrument == "" {
			continue
		}
		if c.bookState == nil {
			c.bookState = book.NewEmptyState(c.instrument)
			c.aggState = book.NewAggState()
		}

		resp, err := e.runtime.BuildMessage("quote", protocol.BuildRequest{
			NextID:  c.nextID,
			Context: map[string]string{"instrument": c.bookState.Instrument},
		})
		if err != nil {
			e.Logger.Error("quote update failed for %s: %v", c.id, err)
			continue
		}

		rows, _ := resp["p"].([]interface{})
		kept := make([]interface{}, 0, len(rows))
		items := make([]models.MQuoteItem, 0, len(rows))
		for _, row := range rows {
			rm, _ := row.(map[string]interface{})
			if rm == nil {
				continue
			}
			p, pok := protocol.Number(rm["p"])
			v, vok := protocol.Number(rm["v"])
			if !pok || !vok {
				continue
			}
			if !e.runtime.ZeroFlash && v == 0 {
				continue
			}
			kept = append(kept, row)
			items = append(items, models.MQuoteItem{I: c.bookState.Instrument, P: p, V: v})
		}
		book.ApplyQuoteItems(c.bookState, items)
		resp["p"] = kept
		e.trySend(c, resp)
	}
}

// -----------------------------------------------------------------------------
// Snapshot persistence for the reserved "upd" scenario
// -----------------------------------------------------------------------------

// saveSubscribeUpd persists the first populated book replica as the "upd"
// seed document: bid rows by descending price, ask rows by ascending
// magnitude with negated prices. With zero-flash off, zero rows are dropped.
func (e *Engine) saveSubscribeUpd(ctl *Client) {
	var src *book.State
	for c := range e.clients {
		if !c.isControl && c.bookState != nil {
			src = c.bookState
			break
		}
	}
	if src == nil {
		e.trySend(ctl, models.MErrorMsg{
			ID:      ctl.nextID(),
			T:       "Error",
			Message: "no active orderbook to save",
		})
		return
	}

	ts := time.Now().UnixMilli()
	bid := snapshotRows(src.Current.Bid, e.runtime.ZeroFlash, ts, false)
	ask := snapshotRows(src.Current.Ask, e.runtime.ZeroFlash, ts, true)

	if err := e.seeds.SaveUpd(ask, bid); err != nil {
		e.Logger.Error("saveSubscribeUpd: %v", err)
		e.trySend(ctl, models.MErrorMsg{ID: ctl.nextID(), T: "Error", Message: err.Error()})
		return
	}
	e.reloadRuntime()
	e.logToControls("subscribe_upd saved -> " + e.Config.OrderbookUpdFile())
}

func snapshotRows(side map[float64]float64, zeroFlash bool, ts int64, negate bool) []models.MBookRow {
	prices := make([]float64, 0, len(side))
	for p := range side {
		prices = append(prices, p)
	}
	if negate {
		sort.Float64s(prices)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(prices)))
	}

	rows := make([]models.MBookRow, 0, len(prices))
	for _, p := range prices {
		v := side[p]
		if !zeroFlash && v == 0 {
			continue
		}
		out := p
		if negate {
			// Negating zero yields -0, which survives to the document.
			out = -math.Abs(p)
		}
		rows = append(rows, models.MBookRow{P: out, V: v, Y: 0, T: ts})
	}
	return rows
}
