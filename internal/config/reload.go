// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// ConfigHolder serves the live configuration and swaps in validated reloads.
type ConfigHolder struct {
	current    atomic.Pointer[AppConfig]
	loader     *Loader
	configPath string
	logger     zerolog.Logger

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	listeners []chan<- AppConfig
}

// NewConfigHolder starts out with initial. An empty configPath disables the watcher.
func NewConfigHolder(initial AppConfig, loader *Loader, configPath string) *ConfigHolder {
	h := &ConfigHolder{
		loader:     loader,
		configPath: configPath,
		logger:     log.WithComponent("config"),
	}
	h.current.Store(&initial)
	return h
}

// Get returns the live configuration.
func (h *ConfigHolder) Get() AppConfig {
	return *h.current.Load()
}

// Reload loads and validates the configuration again. An invalid result
// leaves the live configuration untouched.
func (h *ConfigHolder) Reload(_ context.Context) error {
	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("failed to load configuration")
		return fmt.Errorf("load config: %w", err)
	}
	if err := Validate(next); err != nil {
		h.logger.Error().Err(err).Str(log.FieldEvent, "config.validation_failed").Msg("reloaded configuration is invalid")
		return fmt.Errorf("validate config: %w", err)
	}

	old := h.current.Swap(&next)
	h.logChanges(*old, next)
	h.broadcast(next)

	h.logger.Info().Str(log.FieldEvent, "config.reload_success").Msg("configuration reloaded")
	return nil
}

// RegisterListener subscribes ch to successful reloads. Sends never block; a
// full channel misses that reload.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.mu.Lock()
	h.listeners = append(h.listeners, ch)
	h.mu.Unlock()
}

func (h *ConfigHolder) broadcast(cfg AppConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str(log.FieldEvent, "config.listener_skip").Msg("listener busy, reload not delivered")
		}
	}
}

// StartWatcher reloads after the config file settles until ctx ends. The
// parent directory is watched so editors that replace the file by rename are
// still seen.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().Str(log.FieldEvent, "config.watcher_disabled").Msg("no config file, hot reload disabled")
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(h.configPath)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.mu.Lock()
	h.watcher = w
	h.mu.Unlock()

	h.logger.Info().
		Str(log.FieldEvent, "config.watcher_started").
		Str(log.FieldPath, h.configPath).
		Msg("watching config file")
	go h.watch(ctx, w)
	return nil
}

func (h *ConfigHolder) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer func() { _ = w.Close() }()

	target := filepath.Clean(h.configPath)
	settle := time.NewTimer(reloadDebounce)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || (!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create)) {
				continue
			}
			settle.Reset(reloadDebounce)
		case <-settle.C:
			if err := h.Reload(ctx); err != nil {
				h.logger.Warn().Err(err).Str(log.FieldEvent, "config.auto_reload_failed").Msg("keeping previous configuration")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str(log.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop closes the watcher, if any.
func (h *ConfigHolder) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watcher != nil {
		_ = h.watcher.Close()
		h.watcher = nil
	}
}

// logChanges reports the reloadable settings that differ.
func (h *ConfigHolder) logChanges(old, next AppConfig) {
	changed := []struct {
		field    string
		from, to any
	}{
		{"logLevel", old.LogLevel, next.LogLevel},
		{"booth.shots", old.Booth.Shots, next.Booth.Shots},
		{"booth.timing", old.Booth.Timing, next.Booth.Timing},
		{"celebration.name", old.Celebration.Name, next.Celebration.Name},
		{"api.rateLimitPerMinute", old.API.RateLimitPerMinute, next.API.RateLimitPerMinute},
	}
	for _, c := range changed {
		if c.from == c.to {
			continue
		}
		h.logger.Info().
			Str(log.FieldEvent, "config.changed").
			Str("field", c.field).
			Interface("old", c.from).
			Interface("new", c.to).
			Msg("config value changed")
	}
}
