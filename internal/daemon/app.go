// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/partybooth/internal/config"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/rs/zerolog"
)

// Sweeper is a background loop that runs until ctx ends, such as the booth
// registry's idle-session sweeper.
type Sweeper interface {
	Run(ctx context.Context)
}

// App owns the long-lived runtime lifecycle (config watcher, reload wiring,
// session sweeper) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	sweeper      Sweeper
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder and sweeper may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, sweeper Sweeper) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		sweeper:      sweeper,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx ends or the manager fails. The config watcher, the
// SIGHUP reload loop and the sweeper stop with it.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		// A missing config file only disables hot reload.
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("config watcher not started")
		}
		defer a.cfgHolder.Stop()

		g.Go(func() error { return a.applyReloads(ctx) })
		if a.reloadSignal != nil {
			g.Go(func() error { return a.reloadOnSignal(ctx) })
		}
	}
	if a.sweeper != nil {
		g.Go(func() error {
			a.sweeper.Run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

func (a *App) applyReloads(ctx context.Context) error {
	ch := make(chan config.AppConfig, 1)
	a.cfgHolder.RegisterListener(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-ch:
			a.applyReload(cfg)
		}
	}
}

func (a *App) reloadOnSignal(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, a.reloadSignal)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-sig:
			a.logger.Info().Str(log.FieldEvent, "config.reload_signal").Str("signal", s.String()).Msg("reloading config")
			if err := a.cfgHolder.Reload(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload failed")
			}
		}
	}
}

// applyReload applies the settings that take effect without a restart.
// Booth timings are read per session by the booth factory.
func (a *App) applyReload(cfg config.AppConfig) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}
	a.logger.Info().
		Str(log.FieldEvent, "config.applied").
		Str("log_level", cfg.LogLevel).
		Int("shots", cfg.Booth.Shots).
		Msg("configuration reload applied")
}
