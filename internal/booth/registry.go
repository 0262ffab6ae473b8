// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package booth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("booth: session not found")
	// ErrRegistryFull is returned when MaxSessions booths are open.
	ErrRegistryFull = errors.New("booth: too many open sessions")
)

// Factory builds a booth for a new session id.
type Factory func(id string) (*Booth, error)

// RegistryConfig defines capacity and retention.
type RegistryConfig struct {
	MaxSessions int           // 0 means unlimited
	IdleTimeout time.Duration // close booths without activity for this long (0 disables)
	Interval    time.Duration // sweep period; defaults to IdleTimeout/4, at least one second
	Now         func() time.Time
}

// Registry holds the open booth sessions keyed by UUID.
type Registry struct {
	factory Factory
	conf    RegistryConfig
	logger  zerolog.Logger

	mu     sync.Mutex
	booths map[string]*Booth
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory, conf RegistryConfig) *Registry {
	if conf.Now == nil {
		conf.Now = time.Now
	}
	if conf.Interval <= 0 && conf.IdleTimeout > 0 {
		conf.Interval = max(conf.IdleTimeout/4, time.Second)
	}
	return &Registry{
		factory: factory,
		conf:    conf,
		logger:  log.WithComponent("booth-registry"),
		booths:  make(map[string]*Booth),
	}
}

// Create opens a new booth session.
func (r *Registry) Create() (*Booth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conf.MaxSessions > 0 && len(r.booths) >= r.conf.MaxSessions {
		return nil, ErrRegistryFull
	}
	id := uuid.NewString()
	b, err := r.factory(id)
	if err != nil {
		return nil, err
	}
	r.booths[b.ID()] = b
	metrics.SetBoothSessions(len(r.booths))
	r.logger.Info().Str(log.FieldEvent, "booth.created").Str(log.FieldBoothID, b.ID()).Msg("booth session created")
	return b, nil
}

// Get returns the booth for id.
func (r *Registry) Get(id string) (*Booth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.booths[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// Delete closes and forgets the booth for id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	b, ok := r.booths[id]
	delete(r.booths, id)
	metrics.SetBoothSessions(len(r.booths))
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return b.Close()
}

// IDs lists open sessions, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.booths))
	for id := range r.booths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.booths)
}

// Run sweeps idle sessions until ctx ends.
func (r *Registry) Run(ctx context.Context) {
	if r.conf.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(r.conf.Interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.conf.Interval).Msg("booth sweeper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepOnce()
		}
	}
}

// SweepOnce closes booths that have been idle longer than IdleTimeout.
// Booths in the middle of a capture run are left alone. It returns the number closed.
func (r *Registry) SweepOnce() int {
	if r.conf.IdleTimeout <= 0 {
		return 0
	}
	now := r.conf.Now()

	r.mu.Lock()
	var stale []*Booth
	for id, b := range r.booths {
		if b.Busy() || now.Sub(b.LastActive()) <= r.conf.IdleTimeout {
			continue
		}
		stale = append(stale, b)
		delete(r.booths, id)
	}
	metrics.SetBoothSessions(len(r.booths))
	r.mu.Unlock()

	for _, b := range stale {
		if err := b.Close(); err != nil {
			r.logger.Warn().Err(err).Str(log.FieldBoothID, b.ID()).Msg("closing idle booth failed")
			continue
		}
		r.logger.Info().
			Str(log.FieldEvent, "booth.swept").
			Str(log.FieldBoothID, b.ID()).
			Msg("idle booth closed")
	}
	return len(stale)
}

// CloseAll closes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.booths
	r.booths = make(map[string]*Booth)
	metrics.SetBoothSessions(0)
	r.mu.Unlock()

	for _, b := range all {
		_ = b.Close()
	}
}
