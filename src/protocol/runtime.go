package protocol

import (
	"fmt"

	"exchange-sim/src/helpers"
)

// -----------------------------------------------------------------------------
// Runtime holds the re-loadable slice of configuration the dispatcher works
// from: resolved urls, flags, template variables and the pre-materialized
// server templates. It is rebuilt from the external documents on control-hello
// and on every subscribe, never cached across those triggers.
// -----------------------------------------------------------------------------

type Runtime struct {
	URL              string
	ControlURL       string
	ZeroFlash        bool
	InstrumentSource string // "client" | "fixed"
	Vars             map[string]string
	Templates        map[string]Tree // hello, unsubscribe, quote, subscribe_upd
}

// InstrumentTemplate is the default instrument substitution value.
func (rt *Runtime) InstrumentTemplate() string {
	if rt != nil && rt.Vars != nil {
		if v, ok := rt.Vars["instrument"]; ok && v != "" {
			return v
		}
	}
	return "{{instrument}}"
}

// -----------------------------------------------------------------------------
// Message building.
// -----------------------------------------------------------------------------

// BuildRequest carries the per-message inputs of BuildMessage.
type BuildRequest struct {
	ExplicitID string            // wins over NextID when set
	ReplyTo    string            // attaches "rid" when non-empty
	NextID     func() string     // connection-local monotonic counter
	Context    map[string]string // {{key}} substitutions
}

// BuildMessage resolves the runtime template for typ, fills {{key}}
// placeholders, assigns id/rid, and applies the hello-specific session field
// rename. A missing template is a protocol-configuration error.
func (rt *Runtime) BuildMessage(typ string, req BuildRequest) (map[string]interface{}, error) {
	tpl, ok := rt.Templates[typ]
	if !ok || tpl == nil {
		return nil, helpers.NewProtocolError(fmt.Sprintf("template '%s' not found", typ), nil)
	}

	id := req.ExplicitID
	if id == "" && req.NextID != nil {
		id = req.NextID()
	}

	body, _ := Fill(tpl, req.Context).(map[string]interface{})
	if body == nil {
		body = make(map[string]interface{})
	}

	// The hello template declares the real session field name under
	// p.session.field; the metadata node itself never reaches the wire.
	if typ == "hello" {
		if fieldNode, ok := GetPath(tpl, "p.session.field"); ok {
			if realField, ok := String(fieldNode); ok {
				p, ok := body["p"].(map[string]interface{})
				if !ok {
					p = make(map[string]interface{})
					body["p"] = p
				}
				p[realField] = req.Context["sessionId"]
				delete(p, "session")
			}
		}
	}

	out := make(map[string]interface{}, len(body)+2)
	out["id"] = id
	if req.ReplyTo != "" {
		out["rid"] = req.ReplyTo
	}
	for k, v := range body {
		out[k] = v
	}
	return out, nil
}
