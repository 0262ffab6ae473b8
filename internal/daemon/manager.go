// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/partybooth/internal/config"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/rs/zerolog"
)

// fatalShutdownBudget bounds shutdown after a server fails or ctx ends.
const fatalShutdownBudget = 30 * time.Second

// ShutdownHook releases one resource during shutdown.
type ShutdownHook func(ctx context.Context) error

// Manager runs the HTTP listeners and the shutdown sequence.
type Manager interface {
	// Start binds every listener and serves until ctx ends or a server fails.
	Start(ctx context.Context) error
	// Shutdown drains the listeners, then runs hooks newest first.
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
}

// listener is one named HTTP server.
type listener struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

type manager struct {
	serverCfg config.ServerConfig
	logger    zerolog.Logger

	mu        sync.Mutex
	listeners []*listener
	hooks     []namedHook
	started   bool
	stopping  bool
	bound     chan struct{}
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager prepares the API listener and, when configured, the metrics listener.
func NewManager(serverCfg config.ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	m := &manager{
		serverCfg: serverCfg,
		logger:    deps.Logger.With().Str(log.FieldComponent, "manager").Logger(),
		bound:     make(chan struct{}),
	}
	m.listeners = append(m.listeners, &listener{
		name: "api",
		srv: &http.Server{
			Addr:              serverCfg.ListenAddr,
			Handler:           deps.APIHandler,
			ReadTimeout:       serverCfg.ReadTimeout,
			ReadHeaderTimeout: serverCfg.ReadTimeout / 2,
			WriteTimeout:      serverCfg.WriteTimeout,
			IdleTimeout:       serverCfg.IdleTimeout,
			MaxHeaderBytes:    serverCfg.MaxHeaderBytes,
		},
	})
	if deps.MetricsHandler != nil && deps.MetricsAddr != "" {
		m.listeners = append(m.listeners, &listener{
			name: "metrics",
			srv: &http.Server{
				Addr:              deps.MetricsAddr,
				Handler:           deps.MetricsHandler,
				ReadHeaderTimeout: serverCfg.ReadTimeout / 2,
			},
		})
	}
	return m, nil
}

func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	for _, l := range m.listeners {
		ln, err := net.Listen("tcp", l.srv.Addr)
		if err != nil {
			m.logger.Error().Err(err).
				Str(log.FieldEvent, l.name+".server.failed").
				Str("addr", l.srv.Addr).
				Msg("bind failed")
			m.closeBound()
			return fmt.Errorf("%s server: %w", l.name, err)
		}
		l.ln = ln
	}
	close(m.bound)

	errc := make(chan error, len(m.listeners))
	for _, l := range m.listeners {
		m.logger.Info().
			Str(log.FieldEvent, l.name+".server.listening").
			Str("addr", l.ln.Addr().String()).
			Msg("listening")
		go m.serve(l, errc)
	}

	var cause error
	select {
	case cause = <-errc:
		m.logger.Error().Err(cause).Msg("server failed, shutting down")
	case <-ctx.Done():
		m.logger.Info().Str(log.FieldEvent, "shutdown.signal").Msg("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fatalShutdownBudget)
	defer cancel()
	err := m.Shutdown(shutdownCtx)
	switch {
	case cause != nil && err != nil:
		return fmt.Errorf("server error and shutdown failure: %w", errors.Join(cause, err))
	case cause != nil:
		return cause
	default:
		return err
	}
}

func (m *manager) serve(l *listener, errc chan<- error) {
	if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error().Err(err).Str(log.FieldEvent, l.name+".server.failed").Msg("server failed")
		errc <- fmt.Errorf("%s server: %w", l.name, err)
	}
}

// closeBound releases listeners bound before a later bind failed.
func (m *manager) closeBound() {
	for _, l := range m.listeners {
		if l.ln != nil {
			_ = l.ln.Close()
			l.ln = nil
		}
	}
}

// addr returns the bound address of the named listener once Start has bound it.
func (m *manager) addr(ctx context.Context, name string) (string, error) {
	select {
	case <-m.bound:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	for _, l := range m.listeners {
		if l.name == name && l.ln != nil {
			return l.ln.Addr().String(), nil
		}
	}
	return "", fmt.Errorf("no %s listener", name)
}

func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.serverCfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	for _, l := range m.listeners {
		if l.ln == nil {
			continue
		}
		if err := l.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", l.name, err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		err := h.hook(ctx)
		ev := m.logger.Debug()
		if err != nil {
			ev = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		ev.Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook finished")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Str(log.FieldEvent, "shutdown.complete").Msg("stopped cleanly")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, hook: hook})
}
