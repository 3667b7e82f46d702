package models

import "path/filepath"

// MConfig Structure
type MConfig struct {
	Name         string     `yaml:"name"`
	Host         string     `yaml:"host"`
	PortOverride int        `yaml:"port_override"`
	LogLevel     string     `yaml:"log_level"`
	RootDir      string     `yaml:"root_dir"`
	SettingDir   string     `yaml:"setting_dir"`
	Log          MLogConfig `yaml:"log"`
}

type MLogConfig struct {
	Dir           string `yaml:"dir"`
	IncomingLog   string `yaml:"incoming_log"`
	OutgoingLog   string `yaml:"outgoing_log"`
	ArchiveDir    string `yaml:"archive_dir"`
	DayMarkerFile string `yaml:"day_marker_file"`
}

// -----------------------------------------------------------------------------
// Derived document locations. Protocol and seed documents live in a fixed
// layout under RootDir/SettingDir; everything below is an external contract
// shared with the operator UI.
// -----------------------------------------------------------------------------

// ServerProtocolFile holds the named server-side message wrappers.
func (c *MConfig) ServerProtocolFile() string {
	return filepath.Join(c.RootDir, "setting", "private", "protocol", "priv_server-protocol.json")
}

// ClientProtocolFile holds the client-side wrappers and field-extraction paths.
func (c *MConfig) ClientProtocolFile() string {
	return filepath.Join(c.RootDir, "setting", "private", "protocol", "priv_client-project-protocol.json")
}

// ScenarioOrderbookDir holds per-scenario seed documents (priv_subscribe_<scn>.json).
func (c *MConfig) ScenarioOrderbookDir() string {
	return filepath.Join(c.RootDir, "setting", "private", "orderbook")
}

// SettingsFile is the runtime settings document (scenarios, heartbeat, urls).
func (c *MConfig) SettingsFile() string {
	return filepath.Join(c.SettingDir, "setting.json")
}

// VarsDefaultsFile holds default template variables.
func (c *MConfig) VarsDefaultsFile() string {
	return filepath.Join(c.SettingDir, "payloads", "variables", "defaults.json")
}

// OrderbookDefaultFile is the fallback seed document; required at startup.
func (c *MConfig) OrderbookDefaultFile() string {
	return filepath.Join(c.SettingDir, "private", "orderbook", "priv_subscribe_default.json")
}

// OrderbookUpdFile is the snapshot-save target for the reserved "upd" scenario.
func (c *MConfig) OrderbookUpdFile() string {
	return filepath.Join(c.SettingDir, "private", "orderbook", "priv_subscribe_upd.json")
}
