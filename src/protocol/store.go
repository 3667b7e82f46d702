package protocol

import (
	"fmt"

	"exchange-sim/src/helpers"
	"exchange-sim/src/logger"
)

// -----------------------------------------------------------------------------
// Store resolves message wrappers from the two protocol-description documents.
// Documents are re-read from disk on every access: the operator edits them at
// runtime and the engine must observe changes on the next trigger.
// -----------------------------------------------------------------------------

type Store struct {
	ServerProtocolFile string
	ClientProtocolFile string
	Logger             *logger.Logger
}

func NewStore(serverFile, clientFile string, log *logger.Logger) *Store {
	return &Store{
		ServerProtocolFile: serverFile,
		ClientProtocolFile: clientFile,
		Logger:             log,
	}
}

// -----------------------------------------------------------------------------
// Server-side wrappers.
// -----------------------------------------------------------------------------

// LoadWrapper deep-copies the named server wrapper with ${key} placeholders
// interpolated from vars. Returns nil when the document or wrapper is absent.
func (s *Store) LoadWrapper(name string, vars map[string]string) Tree {
	doc := helpers.ReadJSONTree(s.ServerProtocolFile)
	wrap, ok := GetPath(doc, "wrappers."+name)
	if !ok {
		return nil
	}
	return Interpolate(DeepCopy(wrap), vars)
}

// -----------------------------------------------------------------------------
// Client-side wrappers and field-extraction paths.
// -----------------------------------------------------------------------------

// ClientProject returns the client protocol document's project node. Older
// documents place wrappers/paths at the top level; both shapes are accepted.
func (s *Store) ClientProject() (Tree, error) {
	doc := helpers.ReadJSONTree(s.ClientProtocolFile)
	if doc == nil {
		return nil, helpers.NewProtocolError(
			fmt.Sprintf("client protocol document %s not readable", s.ClientProtocolFile), nil)
	}
	if project, ok := GetPath(doc, "project"); ok {
		return project, nil
	}
	return doc, nil
}

// MatchClientWrapper maps a wire type string ("HelloReq") to the logical
// wrapper name ("HelloMessage") declared for it. Empty when no wrapper
// declares that type.
func (s *Store) MatchClientWrapper(msgType string) string {
	project, err := s.ClientProject()
	if err != nil {
		s.Logger.Warning("client protocol lookup failed: %v", err)
		return ""
	}
	wrappers, ok := GetPath(project, "wrappers")
	if !ok {
		return ""
	}
	m, ok := wrappers.(map[string]interface{})
	if !ok {
		return ""
	}
	for name, def := range m {
		if t, ok := GetPath(def, "t"); ok {
			if ts, ok := String(t); ok && ts == msgType {
				return name
			}
		}
	}
	return ""
}

// ClientPath returns the configured field-extraction path expression for a
// logical field ("Subscribe.instrument"), or empty when unset. Field names
// contain dots, so the paths object is indexed with the literal key.
func (s *Store) ClientPath(field string) string {
	project, err := s.ClientProject()
	if err != nil {
		return ""
	}
	paths, ok := GetPath(project, "paths")
	if !ok {
		return ""
	}
	m, ok := paths.(map[string]interface{})
	if !ok {
		return ""
	}
	if expr, ok := String(m[field]); ok {
		return expr
	}
	return ""
}

// BuildClientMessage deep-copies a named client wrapper with ${key}
// interpolation; nil when absent. Kept for harness tooling that speaks the
// client side of the protocol.
func (s *Store) BuildClientMessage(name string, ctx map[string]string) Tree {
	project, err := s.ClientProject()
	if err != nil {
		s.Logger.Warning("build client message '%s': %v", name, err)
		return nil
	}
	wrap, ok := GetPath(project, "wrappers."+name)
	if !ok {
		s.Logger.Warning("client wrapper '%s' not found", name)
		return nil
	}
	return Interpolate(DeepCopy(wrap), ctx)
}
