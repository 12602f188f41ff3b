// ksmtool is a CLI utility for inspecting and converting KSM models.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/kamishibai/internal/config"
	"github.com/Faultbox/kamishibai/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "tree":
		err = cmdTree(args)
	case "resolve":
		err = cmdResolve(args)
	case "pick":
		err = cmdPick(args)
	case "export":
		err = cmdExport(args)
	case "textures":
		err = cmdTextures(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Named("ksmtool").Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Sync()
}

func printUsage() {
	fmt.Println(`ksmtool - KSM model utility

Usage:
  ksmtool <command> [options]

Commands:
  info <file.ksm>                         Show header counts, geometry totals and clips
  tree <file.ksm>                         Print the node hierarchy
  resolve [flags] <instance>...           Resolve instance types through the asset cache
  pick [flags] <file.ksm>                 Cast a screen ray at the model
  export <file.ksm> <out.glb|out.gltf>    Convert to glTF
  textures [flags] <instance> <outdir>    Write WebP previews of a model's textures
  config [path]                           Write a default config file, to the user config dir by default

Examples:
  ksmtool info Models/Ochimusha.ksm
  ksmtool resolve -root ./Assets -metadata ./Assets/MetaData OchimushaRed
  ksmtool pick -x 400 -y 300 Models/Ochimusha.ksm
  ksmtool export Models/Ochimusha.ksm ochimusha.glb`)
}

// setup loads the config and initializes logging from it.
func setup(flags *config.Flags) (*config.Config, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}

	opts := logger.Options{Level: cfg.Logging.Level, Console: os.Stderr, JSON: cfg.Logging.JSON}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	logger.Set(logger.New(opts))
	return cfg, nil
}

func cmdConfig(args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	written, err := writeConfig(config.Default(), path)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("Wrote %s\n", written)
	return nil
}

// writeConfig saves cfg to path, or to the per-user config file when path is empty.
func writeConfig(cfg *config.Config, path string) (string, error) {
	if path == "" {
		return cfg.Save()
	}
	return path, cfg.SaveTo(path)
}
