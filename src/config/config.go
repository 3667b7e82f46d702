package config

import (
	"fmt"
	"os"
	"path/filepath"

	"exchange-sim/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "exchange-sim"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.SettingDir == "" {
		c.SettingDir = filepath.Join(c.RootDir, "setting")
	}
	if c.Log.Dir != "" {
		if c.Log.IncomingLog == "" {
			c.Log.IncomingLog = filepath.Join(c.Log.Dir, "incoming.log")
		}
		if c.Log.OutgoingLog == "" {
			c.Log.OutgoingLog = filepath.Join(c.Log.Dir, "outgoing.log")
		}
		if c.Log.ArchiveDir == "" {
			c.Log.ArchiveDir = filepath.Join(c.Log.Dir, "archive")
		}
		if c.Log.DayMarkerFile == "" {
			c.Log.DayMarkerFile = filepath.Join(c.Log.Dir, ".current-day.txt")
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("root_dir cannot be empty")
	}
	if c.PortOverride != 0 && (c.PortOverride <= 1024 || c.PortOverride > 65535) {
		return fmt.Errorf("invalid port override: %d (must be between 1025 and 65535)", c.PortOverride)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file '%s': %w", configPath, err)
	}
	return nil
}
