package config

import (
	"os"
	"path/filepath"
	"testing"

	"exchange-sim/src/logger"
	"exchange-sim/src/models"
	"exchange-sim/src/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSeeds(t *testing.T) *SeedStore {
	t.Helper()
	dir := t.TempDir()
	return NewSeedStore(
		filepath.Join(dir, "orderbook"),
		filepath.Join(dir, "priv_subscribe_default.json"),
		filepath.Join(dir, "priv_subscribe_upd.json"),
		logger.NewNop(),
	)
}

func writeSeed(t *testing.T, file, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
}

func TestNormalizeSeed(t *testing.T) {
	t.Run("bare list", func(t *testing.T) {
		ob := NormalizeSeed([]interface{}{map[string]interface{}{"i": "EURUSD"}})
		require.Len(t, ob, 1)
	})

	t.Run("ob object", func(t *testing.T) {
		raw := map[string]interface{}{"ob": []interface{}{map[string]interface{}{"i": "EURUSD"}}}
		ob := NormalizeSeed(raw)
		require.Len(t, ob, 1)
	})

	t.Run("flat ask bid", func(t *testing.T) {
		raw := map[string]interface{}{
			"ask": []interface{}{map[string]interface{}{"p": -1.1, "v": 1.0}},
			"bid": nil,
		}
		ob := NormalizeSeed(raw)
		require.Len(t, ob, 1)
		entry := ob[0].(map[string]interface{})
		assert.Equal(t, "", entry["i"])
		assert.Len(t, entry["ask"], 1)
		assert.Empty(t, entry["bid"])
	})

	t.Run("unrecognizable", func(t *testing.T) {
		assert.Nil(t, NormalizeSeed(map[string]interface{}{"other": 1}))
		assert.Nil(t, NormalizeSeed("just a string"))
		assert.Nil(t, NormalizeSeed(nil))
	})
}

func TestLoadForScenario(t *testing.T) {
	t.Run("prefers the scenario document", func(t *testing.T) {
		s := newTestSeeds(t)
		writeSeed(t, filepath.Join(s.ScenarioDir, "priv_subscribe_wide.json"), `[{"i":"WIDE"}]`)
		writeSeed(t, s.DefaultFile, `[{"i":"DEFAULT"}]`)

		ob := s.LoadForScenario("wide")
		require.Len(t, ob, 1)
		i, _ := protocol.GetPath(ob[0], "i")
		assert.Equal(t, "WIDE", i)
	})

	t.Run("falls back to the default seed", func(t *testing.T) {
		s := newTestSeeds(t)
		writeSeed(t, s.DefaultFile, `[{"i":"DEFAULT"}]`)

		ob := s.LoadForScenario("unknown")
		require.Len(t, ob, 1)
		i, _ := protocol.GetPath(ob[0], "i")
		assert.Equal(t, "DEFAULT", i)
	})

	t.Run("nothing resolvable is nil", func(t *testing.T) {
		s := newTestSeeds(t)
		assert.Nil(t, s.LoadForScenario("wide"))
	})

	t.Run("bad JSON is nil", func(t *testing.T) {
		s := newTestSeeds(t)
		writeSeed(t, s.DefaultFile, `{broken`)
		assert.Nil(t, s.LoadForScenario("any"))
	})
}

func TestSaveUpdRoundTrip(t *testing.T) {
	s := newTestSeeds(t)

	err := s.SaveUpd(
		[]models.MBookRow{{P: -1.101, V: 150, T: 42}},
		[]models.MBookRow{{P: 1.100, V: 100, T: 42}},
	)
	require.NoError(t, err)

	ob := s.LoadUpd()
	require.Len(t, ob, 1)
	entry := ob[0].(map[string]interface{})
	assert.Len(t, entry["ask"], 1)
	assert.Len(t, entry["bid"], 1)

	p, _ := protocol.GetPath(entry, "ask[0].p")
	assert.Equal(t, -1.101, p)
}

func TestSaveUpdKeepsMinusZero(t *testing.T) {
	s := newTestSeeds(t)
	require.NoError(t, s.SaveUpd([]models.MBookRow{{P: negZero(), V: 10}}, nil))

	data, err := os.ReadFile(s.UpdFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"p": -0`)
}

func negZero() float64 {
	z := 0.0
	return -z
}
