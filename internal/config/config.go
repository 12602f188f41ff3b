// Package config handles runtime configuration loading and management.
package config

// Config holds all runtime settings.
type Config struct {
	Assets  AssetsConfig  `yaml:"assets"`
	Logging LoggingConfig `yaml:"logging"`
}

// AssetsConfig locates the asset root and the metadata tables.
type AssetsConfig struct {
	Root         string `yaml:"root"`          // Directory all asset paths are relative to
	Metadata     string `yaml:"metadata"`      // YAML file, or directory holding the XML tables
	ModelPattern string `yaml:"model_pattern"` // fmt pattern taking the model instance type
	PreloadList  string `yaml:"preload_list"`  // Optional list of instance types, relative to Root
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Assets: AssetsConfig{
			Root:         ".",
			Metadata:     "",
			ModelPattern: "Models/%s.ksm",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
