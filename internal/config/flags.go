package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config   string
	Root     string
	Metadata string
	LogFile  string
	Debug    bool
}

// Register binds the flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.StringVar(&f.Root, "root", "", "Asset root directory")
	fs.StringVar(&f.Metadata, "metadata", "", "Metadata YAML file or XML directory")
	fs.StringVar(&f.LogFile, "log-file", "", "Write logs to this file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Root != "" {
		cfg.Assets.Root = f.Root
	}
	if f.Metadata != "" {
		cfg.Assets.Metadata = f.Metadata
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
