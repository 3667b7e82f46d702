package server

import (
	"fmt"
	"strings"

	"exchange-sim/src/book"
	"exchange-sim/src/helpers"
	"exchange-sim/src/protocol"
)

// -----------------------------------------------------------------------------
// Runtime assembly
//
// The runtime snapshot (urls, flags, vars, pre-materialized templates) is
// rebuilt from the external documents on control-hello and on every
// subscribe. A failed rebuild after startup keeps the previous snapshot.
// -----------------------------------------------------------------------------

func (e *Engine) buildRuntime() (*protocol.Runtime, error) {
	doc := e.settings.Doc()

	vars := e.loadVarDefaults()
	if vars["instrument"] == "" {
		vars["instrument"] = "{{instrument}}"
	}

	if !e.seeds.HasDefault() {
		return nil, helpers.NewConfigurationError("default orderbook seed missing", nil)
	}

	templates := make(map[string]protocol.Tree)
	for _, name := range []string{"hello", "unsubscribe", "quote"} {
		if tpl := e.templates.LoadWrapper(name, nil); tpl != nil {
			templates[name] = tpl
		}
	}
	if tpl := e.materializeSubscribeUpd(vars); tpl != nil {
		templates["subscribe_upd"] = tpl
	}

	source := strings.TrimSpace(doc.InstrumentSource)
	if source != "fixed" {
		source = "client"
	}

	return &protocol.Runtime{
		URL:              e.settings.BaseURL(),
		ControlURL:       e.settings.ControlURL(),
		ZeroFlash:        doc.ZeroFlash,
		InstrumentSource: source,
		Vars:             vars,
		Templates:        templates,
	}, nil
}

// reloadRuntime rebuilds the snapshot; on failure the previous one stays live.
func (e *Engine) reloadRuntime() {
	rt, err := e.buildRuntime()
	if err != nil {
		e.Logger.Error("runtime reload failed, keeping previous: %v", err)
		return
	}
	e.runtime = rt
}

func (e *Engine) loadVarDefaults() map[string]string {
	vars := make(map[string]string)
	tree := helpers.ReadJSONTree(e.Config.VarsDefaultsFile())
	obj, _ := tree.(map[string]interface{})
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			vars[k] = val
		case float64, bool:
			vars[k] = fmt.Sprint(val)
		}
	}
	return vars
}

// materializeSubscribeUpd bakes the saved "upd" seed into the subscribe
// wrapper so the reserved scenario can answer straight from a template.
// Returns nil when either the wrapper or the saved document is absent.
func (e *Engine) materializeSubscribeUpd(vars map[string]string) protocol.Tree {
	entries := e.seeds.LoadUpd()
	if entries == nil {
		return nil
	}
	wrapper := e.templates.LoadWrapper("subscribe", nil)
	if wrapper == nil {
		return nil
	}

	iConfig, hasIConfig := wrapperInstrument(wrapper)
	source := "client"
	if strings.TrimSpace(e.settings.Doc().InstrumentSource) == "fixed" {
		source = "fixed"
	}

	materialized := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		em, _ := entry.(map[string]interface{})
		if em == nil {
			continue
		}
		var instrument string
		if source == "fixed" {
			entryInst, _ := protocol.String(em["i"])
			instrument = resolveSubscribeInstrument(iConfig, hasIConfig, "", entryInst)
		} else {
			// Client mode: the placeholder survives materialization and is
			// filled with the subscriber's instrument per message.
			instrument = "{{instrument}}"
		}
		materialized = append(materialized, map[string]interface{}{
			"i":   instrument,
			"ask": sideRows(em["ask"]),
			"bid": sideRows(em["bid"]),
		})
	}

	protocol.SetPath(wrapper, "p.ob", materialized)
	return wrapper
}

// wrapperInstrument reads the instrument the subscribe wrapper pins at
// p.ob[0].i, when present.
func wrapperInstrument(wrapper protocol.Tree) (string, bool) {
	node, ok := protocol.GetPath(wrapper, "p.ob[0].i")
	if !ok {
		return "", false
	}
	s, ok := protocol.String(node)
	return s, ok
}

// resolveSubscribeInstrument picks the instrument for a materialized seed
// entry: a non-blank wrapper value wins, then the subscriber's own, then
// whatever the seed entry carries.
func resolveSubscribeInstrument(iConfig string, hasIConfig bool, clientInstrument, entryInstrument string) string {
	if hasIConfig && strings.TrimSpace(iConfig) != "" {
		return iConfig
	}
	if clientInstrument != "" {
		return clientInstrument
	}
	return entryInstrument
}

func sideRows(v interface{}) []interface{} {
	if rows, ok := v.([]interface{}); ok {
		return rows
	}
	return []interface{}{}
}

// -----------------------------------------------------------------------------
// Subscribe payload
// -----------------------------------------------------------------------------

// buildSubscribePayload assembles the subscribe reply body for a scenario:
// the seed entries for scn rewritten into the subscribe wrapper at p.ob.
// Configuration problems come back as a System payload instead of a reply.
func (e *Engine) buildSubscribePayload(scn string, vars map[string]string) protocol.Tree {
	entries := e.seeds.LoadForScenario(scn)
	if entries == nil {
		return protocol.System("ORDERBOOK_SEED_MISSING", "no orderbook seed available", map[string]interface{}{"scenario": scn})
	}
	wrapper := e.templates.LoadWrapper("subscribe", vars)
	if wrapper == nil {
		return protocol.System("WRAPPER_MISSING", "subscribe wrapper not found", nil)
	}

	iConfig, hasIConfig := wrapperInstrument(wrapper)
	clientInstrument := ""
	if v := vars["instrument"]; v != "" && v != "{{instrument}}" {
		clientInstrument = v
	}

	materialized := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		em, _ := entry.(map[string]interface{})
		if em == nil {
			continue
		}
		entryInst, _ := protocol.String(em["i"])
		inst := ""
		if e.runtime.InstrumentSource == "client" {
			// Client mode: the subscriber's instrument wins even over a value
			// pinned in the wrapper.
			inst = clientInstrument
			if inst == "" {
				inst = entryInst
			}
		} else {
			inst = resolveSubscribeInstrument(iConfig, hasIConfig, clientInstrument, entryInst)
		}
		materialized = append(materialized, map[string]interface{}{
			"i":   inst,
			"ask": sideRows(em["ask"]),
			"bid": sideRows(em["bid"]),
		})
	}

	protocol.SetPath(wrapper, "p.ob", materialized)
	return wrapper
}

// -----------------------------------------------------------------------------
// Book-state initialization
// -----------------------------------------------------------------------------

// initBookState seeds the connection's book replica from the subscribe reply.
// In fixed mode the instrument pinned in the reply wins over the one the
// subscriber asked for.
func (e *Engine) initBookState(c *Client, instrument string, resp protocol.Tree) {
	final := instrument
	ob0, _ := protocol.GetPath(resp, "p.ob[0]")
	if e.runtime.InstrumentSource == "fixed" {
		if s, ok := protocol.String(mapField(ob0, "i")); ok && s != "" {
			final = s
		}
	}

	bid := levelsFromRows(mapField(ob0, "bid"))
	ask := levelsFromRows(mapField(ob0, "ask"))
	c.bookState = book.NewState(final, bid, ask)
	c.aggState = book.NewAggState()
}

func mapField(node protocol.Tree, key string) protocol.Tree {
	if m, ok := node.(map[string]interface{}); ok {
		return m[key]
	}
	return nil
}

func levelsFromRows(node protocol.Tree) []book.Level {
	rows, _ := node.([]interface{})
	levels := make([]book.Level, 0, len(rows))
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
		levels = append(levels, book.Level{Price: p, Volume: v})
	}
	return levels
}
