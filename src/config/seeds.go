package config

import (
	"fmt"
	"path/filepath"

	"exchange-sim/src/helpers"
	"exchange-sim/src/logger"
	"exchange-sim/src/models"
	"exchange-sim/src/protocol"
)

// -----------------------------------------------------------------------------
// SeedStore loads and persists order-book seed documents. A seed document is
// accepted in any of three shapes: a bare list of {i, ask, bid} entries, an
// object with an "ob" list, or a flat {ask, bid} object.
// -----------------------------------------------------------------------------

type SeedStore struct {
	ScenarioDir string // per-scenario documents (priv_subscribe_<scn>.json)
	DefaultFile string // fallback seed, required at startup
	UpdFile     string // snapshot-save target for the "upd" scenario
	Logger      *logger.Logger
}

func NewSeedStore(scenarioDir, defaultFile, updFile string, log *logger.Logger) *SeedStore {
	return &SeedStore{
		ScenarioDir: scenarioDir,
		DefaultFile: defaultFile,
		UpdFile:     updFile,
		Logger:      log,
	}
}

// NormalizeSeed coerces any accepted document shape into a list of order-book
// entry trees. Nil when the shape is unrecognizable.
func NormalizeSeed(raw protocol.Tree) []protocol.Tree {
	if raw == nil {
		return nil
	}
	if arr, ok := raw.([]interface{}); ok {
		return arr
	}
	if ob, ok := protocol.GetPath(raw, "ob"); ok {
		if arr, ok := ob.([]interface{}); ok {
			return arr
		}
	}
	if obj, ok := raw.(map[string]interface{}); ok {
		_, hasAsk := obj["ask"]
		_, hasBid := obj["bid"]
		if hasAsk || hasBid {
			entry := map[string]interface{}{"i": "", "ask": emptySlice(obj["ask"]), "bid": emptySlice(obj["bid"])}
			return []protocol.Tree{entry}
		}
	}
	return nil
}

func emptySlice(v interface{}) interface{} {
	if arr, ok := v.([]interface{}); ok {
		return arr
	}
	return []interface{}{}
}

// LoadForScenario loads the scenario's seed document, falling back to the
// default seed when the scenario has none. Nil when nothing resolvable exists.
func (s *SeedStore) LoadForScenario(scenario string) []protocol.Tree {
	prefer := filepath.Join(s.ScenarioDir, fmt.Sprintf("priv_subscribe_%s.json", scenario))
	file := prefer
	if !helpers.Exists(file) {
		file = s.DefaultFile
	}
	if !helpers.Exists(file) {
		s.Logger.Warning("orderbook file not found: %s", file)
		return nil
	}
	raw := helpers.ReadJSONTree(file)
	if raw == nil {
		s.Logger.Warning("bad orderbook JSON in %s", file)
		return nil
	}
	ob := NormalizeSeed(raw)
	if ob == nil {
		s.Logger.Warning("%s must be {ask,bid} | {ob:[...]} | [...]", file)
		return nil
	}
	return ob
}

// LoadUpd loads the saved "upd" seed, or nil when absent.
func (s *SeedStore) LoadUpd() []protocol.Tree {
	return NormalizeSeed(helpers.ReadJSONTree(s.UpdFile))
}

// HasDefault reports whether the required default seed is readable.
func (s *SeedStore) HasDefault() bool {
	return helpers.ReadJSONTree(s.DefaultFile) != nil
}

// savedSeed fixes the field order of the persisted document.
type savedSeed struct {
	Ask []models.MBookRow `json:"ask"`
	Bid []models.MBookRow `json:"bid"`
}

// SaveUpd persists a book snapshot as the "upd" seed document. Rows arrive
// already sign-normalized (ask negative, bid positive).
func (s *SeedStore) SaveUpd(ask, bid []models.MBookRow) error {
	if ask == nil {
		ask = []models.MBookRow{}
	}
	if bid == nil {
		bid = []models.MBookRow{}
	}
	return helpers.WriteJSONPretty(s.UpdFile, savedSeed{Ask: ask, Bid: bid})
}
