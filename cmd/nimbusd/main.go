// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command nimbusd runs the nimbus API server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/nimbus/internal/config"
	"github.com/ManuGH/nimbus/internal/daemon"
	"github.com/ManuGH/nimbus/internal/health"
	nlog "github.com/ManuGH/nimbus/internal/log"
	"github.com/ManuGH/nimbus/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "config" {
		os.Exit(runConfigCLI(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		os.Exit(0)
	}

	os.Exit(run(strings.TrimSpace(*configPath)))
}

func run(explicitPath string) int {
	// Safe defaults until the config is loaded.
	nlog.Configure(nlog.Config{Level: "info", Service: "nimbus", Version: version.Version})
	logger := nlog.WithComponent("daemon")

	path := explicitPath
	if path == "" {
		path = resolveDefaultConfigPath()
	}
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
		return 1
	}

	nlog.Configure(nlog.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})
	logger = nlog.WithComponent("daemon")
	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", path).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(cfg); err != nil {
		logger.Error().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
		return 1
	}

	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	rt, err := daemon.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("event", "bootstrap.failed").Msg("failed to assemble runtime")
		return 1
	}

	mgr, err := daemon.NewManager(config.ParseServerConfigForApp(cfg), rt.Deps(logger))
	if err != nil {
		logger.Error().Err(err).Str("event", "manager.init_failed").Msg("failed to create daemon manager")
		return 1
	}
	rt.RegisterHooks(mgr)

	app := daemon.NewApp(logger, mgr, config.NewHolder(cfg, loader), rt.Audit)
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon exited with error")
		return 1
	}
	logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped")
	return 0
}
