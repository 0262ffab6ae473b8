// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config describes the process logger. Empty fields fall back to the
// PARTYBOOTH_LOG_LEVEL and PARTYBOOTH_LOG_SERVICE environment, then defaults.
type Config struct {
	Level   string
	Output  io.Writer // default os.Stdout
	Console bool      // human-readable lines instead of JSON
	Service string
	Version string
}

var (
	mu   sync.RWMutex
	root *zerolog.Logger
)

func orEnv(v, key, def string) string {
	if v != "" {
		return v
	}
	if e := os.Getenv(key); e != "" {
		return e
	}
	return def
}

// Configure replaces the process logger and sets the global level. The daemon
// calls it once with defaults and again after loading its config file.
func Configure(cfg Config) {
	level, err := zerolog.ParseLevel(orEnv(cfg.Level, "PARTYBOOTH_LOG_LEVEL", "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	l := zerolog.New(out).With().
		Timestamp().
		Str("service", orEnv(cfg.Service, "PARTYBOOTH_LOG_SERVICE", "partybooth")).
		Str("version", cfg.Version).
		Logger()

	mu.Lock()
	defer mu.Unlock()
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	root = &l
}

func current() zerolog.Logger {
	mu.RLock()
	l := root
	mu.RUnlock()
	if l == nil {
		Configure(Config{})
		return current()
	}
	return *l
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return current().With().Str(FieldComponent, component).Logger()
}
