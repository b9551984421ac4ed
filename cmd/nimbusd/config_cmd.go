// SPDX-License-Identifier: MIT

package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/nimbus/internal/config"
	"github.com/ManuGH/nimbus/internal/version"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	case "init":
		return runConfigInit(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  nimbusd config validate [--file|-f] config.yaml")
	fmt.Fprintln(w, "  nimbusd config dump [--file|-f config.yaml] [--format=yaml|json]")
	fmt.Fprintln(w, "  nimbusd config init [--force] [--data-dir dir] [--file|-f] config.yaml")
}

// resolveDefaultConfigPath returns ${NIMBUS_DATA}/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(os.Getenv("NIMBUS_DATA"))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

// configPathFrom accepts the path as a flag or as the first positional argument.
func configPathFrom(fs *flag.FlagSet, file string) string {
	p := strings.TrimSpace(file)
	if p == "" && fs.NArg() > 0 {
		p = strings.TrimSpace(fs.Arg(0))
	}
	if p == "" {
		p = resolveDefaultConfigPath()
	}
	return p
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nimbusd config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := configPathFrom(fs, file)
	if configPath == "" {
		fmt.Fprintln(stderr, "Error: a config path is required (no config.yaml found in $NIMBUS_DATA)")
		return 2
	}

	if _, err := config.NewLoader(configPath, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "%s is valid\n", configPath)
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nimbusd config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file, format string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := configPathFrom(fs, file)
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}
	redactSecrets(&cfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(config.MaskSecrets(cfg)); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

func redactSecrets(cfg *config.AppConfig) {
	cfg.Auth.JWTSecret = config.MaskSecret(cfg.Auth.JWTSecret)
	cfg.Cache.RedisPassword = config.MaskSecret(cfg.Cache.RedisPassword)
	cfg.Checkout.SecretKey = config.MaskSecret(cfg.Checkout.SecretKey)
}

// runConfigInit writes a starter config with a freshly generated token secret.
func runConfigInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nimbusd config init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file, dataDir string
	var force bool
	fs.StringVar(&file, "file", "", "path of the YAML file to write")
	fs.StringVar(&file, "f", "", "path of the YAML file to write (shorthand)")
	fs.StringVar(&dataDir, "data-dir", "", "data directory recorded in the file")
	fs.BoolVar(&force, "force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := configPathFrom(fs, file)
	if configPath == "" {
		fmt.Fprintln(stderr, "Error: a config path is required")
		return 2
	}
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(stderr, "Error: %s exists (use --force to overwrite)\n", configPath)
		return 1
	}

	cfg := starterConfig(dataDir)
	if err := config.NewManager(configPath).Save(cfg); err != nil {
		if errors.Is(err, config.ErrNoConfigPath) {
			return 2
		}
		fmt.Fprintf(stderr, "Failed to write %s: %v\n", configPath, err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", configPath)
	return 0
}

func starterConfig(dataDir string) config.AppConfig {
	cfg := config.Defaults()
	if dataDir = strings.TrimSpace(dataDir); dataDir != "" {
		cfg.DataDir = dataDir
	}
	cfg.Store.Path = filepath.Join(cfg.DataDir, "nimbus.db")
	cfg.Auth.JWTSecret = rand.Text() + rand.Text()
	return cfg
}