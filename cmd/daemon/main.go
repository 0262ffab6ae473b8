// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command daemon runs the party site and photo-booth API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/partybooth/internal/app/bootstrap"
	xglog "github.com/ManuGH/partybooth/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// subcommands run instead of the daemon when named as the first argument.
var subcommands = map[string]func([]string) int{
	"config":      runConfigCLI,
	"healthcheck": runHealthcheckCLI,
}

func main() {
	if len(os.Args) > 1 {
		if cmd, ok := subcommands[os.Args[1]]; ok {
			os.Exit(cmd(os.Args[2:]))
		}
	}
	os.Exit(serve(os.Args[1:]))
}

func serve(args []string) int {
	fs := flag.NewFlagSet("partybooth", flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.WireServices(ctx, version, *configPath)
	if err != nil {
		logger := xglog.WithComponent("daemon")
		logger.Error().Err(err).Str(xglog.FieldEvent, "startup.failed").Msg("failed to initialize partybooth")
		return 1
	}

	logger := container.Logger
	logger.Info().
		Str(xglog.FieldEvent, "build.info").
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("build information")

	if err := container.Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		return 1
	}
	logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("partybooth stopped")
	return 0
}
