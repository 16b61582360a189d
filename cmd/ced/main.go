// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command ced runs the engine: it loads the configured map and mob files on
// background workers and drives the frame loop until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cursedearth/engine/internal/config"
	"github.com/cursedearth/engine/internal/engine"
	cedlog "github.com/cursedearth/engine/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "journal":
			os.Exit(runJournalCLI(os.Args[2:], os.Stdout, os.Stderr))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	mpr := flag.String("mpr", "", "map to load at startup (overrides scene.mpr)")
	exitWhenLoaded := flag.Bool("exit-when-loaded", false, "exit once every requested resource is loaded")
	var mobs stringList
	flag.Var(&mobs, "mob", "mob file to load at startup (repeatable, overrides scene.mobs)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// safe defaults until the config is loaded
	cedlog.Configure(cedlog.Config{Level: "info", Service: "ced", Version: version})
	logger := cedlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(cedlog.FieldEvent, "config.load_failed").
			Str(cedlog.FieldPath, path).
			Msg("failed to load configuration")
	}

	cedlog.Reconfigure(cedlog.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})
	logger = cedlog.WithComponent("main")
	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(cedlog.FieldEvent, "config.loaded").
		Str("source", source).
		Str(cedlog.FieldPath, path).
		Msg("loaded configuration")

	applySceneFlags(&cfg, *mpr, mobs)

	app, err := engine.New(ctx, cfg, engine.Options{
		Holder:         config.NewConfigHolder(cfg, loader),
		ExitWhenLoaded: *exitWhenLoaded,
	})
	if err != nil {
		logger.Fatal().Err(err).Str(cedlog.FieldEvent, "engine.init_failed").Msg("failed to build engine")
	}

	runErr := app.Run(ctx)
	app.Close()
	if runErr != nil {
		logger.Error().Err(runErr).Str(cedlog.FieldEvent, "engine.failed").Msg("engine stopped with error")
		os.Exit(1)
	}
}

// applySceneFlags lets -mpr and -mob replace the configured startup scene.
func applySceneFlags(cfg *config.AppConfig, mpr string, mobs []string) {
	if mpr != "" {
		cfg.Scene.Mpr = mpr
	}
	if len(mobs) > 0 {
		cfg.Scene.Mobs = append([]string(nil), mobs...)
	}
}
