package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"exchange-sim/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsDoc = `{
  "port": 9001,
  "current_scenario": "default",
  "scenarios": {
    "default": {"bid": true, "ask": true},
    "bid_only": {"bid": true, "ask": false}
  },
  "heartbeat": {"interval_ms": 5000, "timeout_ms": 1000},
  "url": "ws://localhost:9001",
  "zeroFlash": true,
  "instrumentSource": "client",
  "operator_note": "kept verbatim"
}`

func newTestSettings(t *testing.T, doc string) *SettingsStore {
	t.Helper()
	file := filepath.Join(t.TempDir(), "setting.json")
	require.NoError(t, os.WriteFile(file, []byte(doc), 0o644))
	s := NewSettingsStore(file, logger.NewNop())
	require.NoError(t, s.Load())
	return s
}

func TestSettingsLoad(t *testing.T) {
	s := newTestSettings(t, settingsDoc)

	assert.Equal(t, 9001, s.Port())
	assert.Equal(t, "default", s.CurrentScenario())
	assert.Equal(t, []string{"bid_only", "default"}, s.ScenarioIDs())
	assert.True(t, s.Doc().ZeroFlash)

	interval, timeout := s.Heartbeat()
	assert.Equal(t, 5*time.Second, interval)
	assert.Equal(t, time.Second, timeout)
}

func TestSettingsDefaults(t *testing.T) {
	s := newTestSettings(t, `{}`)

	assert.Equal(t, 8080, s.Port())
	assert.Equal(t, "default", s.CurrentScenario())
	interval, timeout := s.Heartbeat()
	assert.Equal(t, 120*time.Second, interval)
	assert.Equal(t, 15*time.Second, timeout)
	assert.Equal(t, "ws://localhost:8080", s.BaseURL())
}

func TestSettingsReload(t *testing.T) {
	s := newTestSettings(t, settingsDoc)

	t.Run("picks up edits", func(t *testing.T) {
		require.NoError(t, os.WriteFile(s.File, []byte(`{"port": 9002}`), 0o644))
		assert.True(t, s.Reload())
		assert.Equal(t, 9002, s.Port())
	})

	t.Run("keeps previous state on a bad document", func(t *testing.T) {
		require.NoError(t, os.WriteFile(s.File, []byte(`{broken`), 0o644))
		assert.False(t, s.Reload())
		assert.Equal(t, 9002, s.Port())
	})
}

func TestApplyScenarioAndPersist(t *testing.T) {
	t.Run("activates and writes", func(t *testing.T) {
		s := newTestSettings(t, settingsDoc)
		changed, err := s.ApplyScenarioAndPersist("bid_only")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "bid_only", s.CurrentScenario())

		// Written document keeps keys the model does not cover.
		data, err := os.ReadFile(s.File)
		require.NoError(t, err)
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, "bid_only", raw["current_scenario"])
		assert.Equal(t, "kept verbatim", raw["operator_note"])
	})

	t.Run("same scenario writes nothing", func(t *testing.T) {
		s := newTestSettings(t, settingsDoc)
		before, err := os.ReadFile(s.File)
		require.NoError(t, err)

		changed, err := s.ApplyScenarioAndPersist("default")
		require.NoError(t, err)
		assert.False(t, changed)

		after, err := os.ReadFile(s.File)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("unknown scenario is rejected", func(t *testing.T) {
		s := newTestSettings(t, settingsDoc)
		_, err := s.ApplyScenarioAndPersist("nope")
		require.Error(t, err)
		assert.Equal(t, "default", s.CurrentScenario())
	})

	t.Run("upd is synthesized when absent", func(t *testing.T) {
		s := newTestSettings(t, settingsDoc)
		changed, err := s.ApplyScenarioAndPersist("upd")
		require.NoError(t, err)
		assert.True(t, changed)

		scn, ok := s.Scenario("upd")
		require.True(t, ok)
		assert.True(t, scn.Bid)
		assert.True(t, scn.Ask)

		data, err := os.ReadFile(s.File)
		require.NoError(t, err)
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &raw))
		scns := raw["scenarios"].(map[string]interface{})
		assert.Contains(t, scns, "upd")
	})
}

func TestScenarioOrDefault(t *testing.T) {
	s := newTestSettings(t, settingsDoc)

	scn := s.ScenarioOrDefault("bid_only")
	assert.True(t, scn.Bid)
	assert.False(t, scn.Ask)

	// Unknown ids fall back to the default scenario's flags.
	scn = s.ScenarioOrDefault("missing")
	assert.True(t, scn.Bid)
	assert.True(t, scn.Ask)
}

func TestBuildControlURL(t *testing.T) {
	t.Run("path and sorted params", func(t *testing.T) {
		got := BuildControlURL("ws://host:9001/", "control", map[string]string{"b": "2", "a": "1"})
		assert.Equal(t, "ws://host:9001/control?a=1&b=2", got)
	})

	t.Run("appends with ampersand when base has a query", func(t *testing.T) {
		got := BuildControlURL("ws://host:9001/ws?x=1", "", map[string]string{"control": "1"})
		assert.Equal(t, "ws://host:9001/ws?x=1&control=1", got)
	})

	t.Run("escapes values", func(t *testing.T) {
		got := BuildControlURL("ws://host", "c", map[string]string{"k": "a b"})
		assert.Equal(t, "ws://host/c?k=a+b", got)
	})
}

func TestControlURL(t *testing.T) {
	t.Run("new format wins", func(t *testing.T) {
		s := newTestSettings(t, `{"url":"ws://h:1","urlControlPath":"ctl","urlControlParams":{"control":"1"},"controlUrl":"ws://legacy"}`)
		assert.Equal(t, "ws://h:1/ctl?control=1", s.ControlURL())
	})

	t.Run("legacy field next", func(t *testing.T) {
		s := newTestSettings(t, `{"url":"ws://h:1","controlUrl":"ws://legacy"}`)
		assert.Equal(t, "ws://legacy", s.ControlURL())
	})

	t.Run("default composition last", func(t *testing.T) {
		s := newTestSettings(t, `{"url":"ws://h:1"}`)
		assert.Equal(t, "ws://h:1/control?control=1", s.ControlURL())
	})
}
