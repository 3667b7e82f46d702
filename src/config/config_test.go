package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYaml(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestNewConfig(t *testing.T) {
	t.Run("loads and applies defaults", func(t *testing.T) {
		cfg, err := NewConfig(writeYaml(t, `
name: sim-test
root_dir: /srv/sim
log_level: INFO
log:
  dir: /srv/sim/log
`))
		require.NoError(t, err)

		assert.Equal(t, "sim-test", cfg.Name)
		assert.Equal(t, "0.0.0.0", cfg.Host)
		assert.Equal(t, filepath.Join("/srv/sim", "setting"), cfg.SettingDir)
		assert.Equal(t, filepath.Join("/srv/sim/log", "incoming.log"), cfg.Log.IncomingLog)
		assert.Equal(t, filepath.Join("/srv/sim/log", "archive"), cfg.Log.ArchiveDir)
	})

	t.Run("derived document paths", func(t *testing.T) {
		cfg, err := NewConfig(writeYaml(t, "root_dir: /srv/sim\n"))
		require.NoError(t, err)

		assert.Equal(t, "/srv/sim/setting/private/protocol/priv_server-protocol.json", cfg.ServerProtocolFile())
		assert.Equal(t, "/srv/sim/setting/setting.json", cfg.SettingsFile())
		assert.Equal(t, "/srv/sim/setting/private/orderbook/priv_subscribe_upd.json", cfg.OrderbookUpdFile())
	})

	t.Run("missing root_dir fails", func(t *testing.T) {
		_, err := NewConfig(writeYaml(t, "name: x\n"))
		require.Error(t, err)
	})

	t.Run("bad port override fails", func(t *testing.T) {
		_, err := NewConfig(writeYaml(t, "root_dir: /srv/sim\nport_override: 80\n"))
		require.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}
