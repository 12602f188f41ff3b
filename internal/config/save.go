package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigPath returns the per-user config file that Load falls back to.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Save writes the config to ConfigPath and returns the path written.
func (c *Config) Save() (string, error) {
	path := ConfigPath()
	return path, c.SaveTo(path)
}

// SaveTo writes the config as YAML, creating parent directories as needed.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
