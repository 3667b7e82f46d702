package server

import (
	"encoding/json"
	"strings"

	"exchange-sim/src/models"
	"exchange-sim/src/protocol"
)

// -----------------------------------------------------------------------------
// Message dispatch. Control types are honored on any connection (the first
// ControlHello promotes it); everything else goes through the client-protocol
// wrapper matcher.
// -----------------------------------------------------------------------------

func (e *Engine) dispatch(c *Client, raw []byte) {
	var msg models.MInbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		e.Logger.Debug("unparsable message from %s: %v", c.id, err)
		return
	}

	switch msg.T {
	case "ControlHello":
		e.handleControlHello(c)
	case "GetConfig":
		e.handleGetConfig(c)
	case "GetStatus":
		e.handleGetStatus(c)
	case "SetScenario":
		e.handleSetScenario(c, msg)
	case "Control":
		e.handleControl(c, msg)
	default:
		if c.isControl {
			e.Logger.Debug("control %s sent unknown type %q", c.id, msg.T)
			return
		}
		e.handleUserMessage(c, msg, raw)
	}
}

// -----------------------------------------------------------------------------
// Control session handlers
// -----------------------------------------------------------------------------

func (e *Engine) handleControlHello(c *Client) {
	c.isControl = true
	e.settings.Reload()
	e.reloadRuntime()
	e.acceptUserClients = true
	e.Logger.Info("control session established: %s", c.id)
	e.broadcastStatusToControls()
	e.trySend(c, e.statusPayload(c.nextID()))
}

func (e *Engine) handleGetConfig(c *Client) {
	e.settings.Reload()
	e.trySend(c, models.MConfigMsg{
		ID:        c.nextID(),
		T:         "Config",
		Scenarios: e.settings.ScenarioIDs(),
		Current:   e.settings.CurrentScenario(),
	})
}

func (e *Engine) handleGetStatus(c *Client) {
	e.settings.Reload()
	e.trySend(c, e.statusPayload(c.nextID()))
}

// -----------------------------------------------------------------------------
// User session handlers
// -----------------------------------------------------------------------------

func (e *Engine) handleUserMessage(c *Client, msg models.MInbound, raw []byte) {
	wrapper := e.templates.MatchClientWrapper(msg.T)
	if wrapper == "" {
		e.Logger.Debug("unknown message type %q from %s, ignoring", msg.T, c.id)
		return
	}

	switch wrapper {
	case "HelloMessage":
		e.handleHello(c, msg)
	case "SubscribeMessage":
		e.handleSubscribe(c, msg, raw)
	case "UnsubscribeMessage":
		e.handleUnsubscribe(c, msg)
	default:
		e.Logger.Debug("unhandled wrapper %q for type %q from %s", wrapper, msg.T, c.id)
	}
}

func (e *Engine) handleHello(c *Client, msg models.MInbound) {
	if msg.ID == "" {
		return
	}
	c.sessionID = randomSessionID()
	c.active = true

	resp, err := e.runtime.BuildMessage("hello", protocol.BuildRequest{
		ReplyTo: msg.ID,
		NextID:  c.nextID,
		Context: map[string]string{"sessionId": c.sessionID},
	})
	if err != nil {
		e.Logger.Error("hello reply failed for %s: %v", c.id, err)
		return
	}
	e.trySend(c, resp)
	e.broadcastStatusToControls()
}

func (e *Engine) handleSubscribe(c *Client, msg models.MInbound, raw []byte) {
	if msg.ID == "" {
		return
	}

	var tree interface{}
	_ = json.Unmarshal(raw, &tree)
	instrument := e.extractInstrument(tree)
	if instrument == "" {
		return
	}

	// Subscribe re-reads every external document; operator edits land on the
	// next subscriber without a restart.
	e.settings.Reload()
	e.reloadRuntime()

	scn := e.settings.CurrentScenario()
	var resp map[string]interface{}
	if _, hasUpd := e.runtime.Templates["subscribe_upd"]; scn == "upd" && hasUpd {
		var err error
		resp, err = e.runtime.BuildMessage("subscribe_upd", protocol.BuildRequest{
			ReplyTo: msg.ID,
			NextID:  c.nextID,
			Context: map[string]string{"instrument": instrument},
		})
		if err != nil {
			e.Logger.Error("subscribe reply failed for %s: %v", c.id, err)
			return
		}
	} else {
		body := e.buildSubscribePayload(scn, map[string]string{"instrument": instrument})
		bodyMap, _ := body.(map[string]interface{})
		resp = map[string]interface{}{"id": c.nextID(), "rid": msg.ID}
		for k, v := range bodyMap {
			resp[k] = v
		}
		// System payloads still answer the request, so they carry id/rid too.
		if protocol.IsSystem(resp) {
			e.trySend(c, resp)
			return
		}
	}

	e.applyScenarioFilters(resp, scn)
	c.instrument = instrument
	e.initBookState(c, instrument, resp)
	c.active = true
	e.trySend(c, resp)
	e.broadcastStatusToControls()
}

func (e *Engine) handleUnsubscribe(c *Client, msg models.MInbound) {
	if msg.ID == "" {
		return
	}
	c.instrument = ""
	c.bookState = nil
	c.aggState = nil
	c.active = false
	e.broadcastStatusToControls()

	resp, err := e.runtime.BuildMessage("unsubscribe", protocol.BuildRequest{
		ReplyTo: msg.ID,
		NextID:  c.nextID,
	})
	if err != nil {
		e.Logger.Error("unsubscribe reply failed for %s: %v", c.id, err)
		return
	}
	e.trySend(c, resp)
}

// extractInstrument reads the subscriber's instrument through the configured
// client-protocol path, falling back to the conventional location.
func (e *Engine) extractInstrument(tree interface{}) string {
	if expr := strings.TrimSpace(e.templates.ClientPath("Subscribe.instrument")); expr != "" {
		if node, ok := protocol.GetPath(tree, expr); ok {
			if s, ok := protocol.String(node); ok && s != "" {
				return s
			}
		}
	}
	if node, ok := protocol.GetPath(tree, "p.Instruments[0]"); ok {
		if s, ok := protocol.String(node); ok {
			return s
		}
	}
	return ""
}

// -----------------------------------------------------------------------------
// Scenario-driven response shaping
// -----------------------------------------------------------------------------

// applyScenarioFilters drops disabled sides from the first book entry and,
// with zero-flash off, strips zero-volume rows.
func (e *Engine) applyScenarioFilters(resp map[string]interface{}, scn string) {
	node, ok := protocol.GetPath(resp, "p.ob[0]")
	if !ok {
		return
	}
	ob, ok := node.(map[string]interface{})
	if !ok {
		return
	}

	flags := e.settings.ScenarioOrDefault(scn)
	if !flags.Bid {
		delete(ob, "bid")
	}
	if !flags.Ask {
		delete(ob, "ask")
	}
	if !e.runtime.ZeroFlash {
		for _, side := range []string{"bid", "ask"} {
			rows, ok := ob[side].([]interface{})
			if !ok {
				continue
			}
			kept := make([]interface{}, 0, len(rows))
			for _, row := range rows {
				rm, _ := row.(map[string]interface{})
				if rm == nil {
					continue
				}
				if v, ok := protocol.Number(rm["v"]); ok && v == 0 {
					continue
				}
				kept = append(kept, row)
			}
			ob[side] = kept
		}
	}
}
