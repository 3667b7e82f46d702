package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"exchange-sim/src/helpers"
	"exchange-sim/src/logger"
	"exchange-sim/src/models"
)

// -----------------------------------------------------------------------------
// SettingsStore owns the runtime settings document (setting.json). The
// document is operator-edited while the server runs: it is re-read on the
// dispatch triggers that need it and written back on scenario change. The raw
// tree is kept next to the typed view so persisting never drops keys the
// model does not cover.
// -----------------------------------------------------------------------------

type SettingsStore struct {
	File   string
	Logger *logger.Logger

	raw map[string]interface{}
	doc models.MSettings
}

func NewSettingsStore(file string, log *logger.Logger) *SettingsStore {
	return &SettingsStore{File: file, Logger: log}
}

// Load parses the document; errors here are configuration errors the caller
// treats as fatal at startup.
func (s *SettingsStore) Load() error {
	data, err := os.ReadFile(s.File)
	if err != nil {
		return helpers.NewConfigurationError(fmt.Sprintf("read settings %s", s.File), err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return helpers.NewConfigurationError(fmt.Sprintf("settings %s invalid JSON", s.File), err)
	}
	var doc models.MSettings
	if err := json.Unmarshal(data, &doc); err != nil {
		return helpers.NewConfigurationError(fmt.Sprintf("settings %s malformed", s.File), err)
	}
	s.raw = raw
	s.doc = doc
	return nil
}

// Reload re-reads the document, keeping the previous state when the re-read
// fails. Reports whether the reload succeeded.
func (s *SettingsStore) Reload() bool {
	prevRaw, prevDoc := s.raw, s.doc
	if err := s.Load(); err != nil {
		s.raw, s.doc = prevRaw, prevDoc
		s.Logger.Warning("settings reload failed, keeping previous: %v", err)
		return false
	}
	return true
}

// Doc returns the typed view.
func (s *SettingsStore) Doc() models.MSettings {
	return s.doc
}

// -----------------------------------------------------------------------------
// Scenario set.
// -----------------------------------------------------------------------------

// CurrentScenario returns the active scenario id, defaulting to "default".
func (s *SettingsStore) CurrentScenario() string {
	if s.doc.CurrentScenario == "" {
		return "default"
	}
	return s.doc.CurrentScenario
}

// ScenarioIDs lists the configured scenario ids, sorted for stable output.
func (s *SettingsStore) ScenarioIDs() []string {
	ids := make([]string, 0, len(s.doc.Scenarios))
	for id := range s.doc.Scenarios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Scenario returns a scenario's visibility flags.
func (s *SettingsStore) Scenario(id string) (models.MScenario, bool) {
	scn, ok := s.doc.Scenarios[id]
	return scn, ok
}

// ScenarioOrDefault falls back to the "default" scenario, then to nothing
// visible.
func (s *SettingsStore) ScenarioOrDefault(id string) models.MScenario {
	if scn, ok := s.doc.Scenarios[id]; ok {
		return scn
	}
	return s.doc.Scenarios["default"]
}

// ApplyScenarioAndPersist validates and activates a scenario. The reserved
// "upd" id is synthesized with both sides visible when absent. The document
// is written back only when the active id actually changes; the returned
// flag reports that write.
func (s *SettingsStore) ApplyScenarioAndPersist(id string) (bool, error) {
	if _, ok := s.doc.Scenarios[id]; !ok {
		if id != "upd" {
			return false, helpers.NewValidationError(fmt.Sprintf("unknown scenario: %s", id), nil)
		}
		if s.doc.Scenarios == nil {
			s.doc.Scenarios = make(map[string]models.MScenario)
		}
		s.doc.Scenarios["upd"] = models.MScenario{Bid: true, Ask: true}
		s.rawScenarios()["upd"] = map[string]interface{}{"bid": true, "ask": true}
	}

	if s.doc.CurrentScenario == id {
		return false, nil
	}
	s.doc.CurrentScenario = id
	if s.raw == nil {
		s.raw = make(map[string]interface{})
	}
	s.raw["current_scenario"] = id
	if err := helpers.WriteJSONPretty(s.File, s.raw); err != nil {
		return false, err
	}
	s.Logger.Info("scenario changed -> %s", id)
	return true, nil
}

func (s *SettingsStore) rawScenarios() map[string]interface{} {
	if s.raw == nil {
		s.raw = make(map[string]interface{})
	}
	m, ok := s.raw["scenarios"].(map[string]interface{})
	if !ok {
		m = make(map[string]interface{})
		s.raw["scenarios"] = m
	}
	return m
}

// -----------------------------------------------------------------------------
// Heartbeat and transport parameters.
// -----------------------------------------------------------------------------

const (
	defaultHeartbeatInterval = 120 * time.Second
	defaultHeartbeatTimeout  = 15 * time.Second
)

// Heartbeat returns the ping interval and pong timeout with defaults applied.
func (s *SettingsStore) Heartbeat() (interval, timeout time.Duration) {
	interval = defaultHeartbeatInterval
	timeout = defaultHeartbeatTimeout
	if s.doc.Heartbeat.IntervalMs > 0 {
		interval = time.Duration(s.doc.Heartbeat.IntervalMs) * time.Millisecond
	}
	if s.doc.Heartbeat.TimeoutMs > 0 {
		timeout = time.Duration(s.doc.Heartbeat.TimeoutMs) * time.Millisecond
	}
	return interval, timeout
}

// Port returns the configured listen port, defaulting to 8080.
func (s *SettingsStore) Port() int {
	if s.doc.Port > 0 {
		return s.doc.Port
	}
	return 8080
}

// -----------------------------------------------------------------------------
// Control URL composition.
// -----------------------------------------------------------------------------

// BuildControlURL joins a base url with a control path and query parameters.
func BuildControlURL(base, controlPath string, params map[string]string) string {
	if base == "" {
		base = "ws://localhost:8080"
	}
	base = strings.TrimRight(base, "/")

	if p := strings.TrimSpace(controlPath); p != "" {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		base += p
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return base
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + strings.Join(pairs, "&")
}

// ControlURL resolves the effective control url: composed from the new
// path+params format when present, the legacy controlUrl field otherwise,
// defaulting to /control?control=1.
func (s *SettingsStore) ControlURL() string {
	doc := s.doc
	hasPath := strings.TrimSpace(doc.URLControlPath) != ""
	if hasPath || len(doc.URLControlParams) > 0 {
		return BuildControlURL(doc.URL, doc.URLControlPath, doc.URLControlParams)
	}
	if doc.ControlURL != "" {
		return doc.ControlURL
	}
	return BuildControlURL(doc.URL, "/control", map[string]string{"control": "1"})
}

// BaseURL returns the advertised server url.
func (s *SettingsStore) BaseURL() string {
	if s.doc.URL != "" {
		return s.doc.URL
	}
	return "ws://localhost:8080"
}
