// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package resilience guards calls to flaky upstreams.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/partybooth/internal/metrics"
)

// State is the breaker position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned without calling through while the breaker is open
// or while another caller holds the half-open probe.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config tunes a Breaker. Zero values pick the defaults.
type Config struct {
	Name      string        // metrics label
	Threshold int           // consecutive failures that open the breaker, default 3
	Cooldown  time.Duration // time open before one probe is let through, default 30s
	Now       func() time.Time
	// IsFailure decides which errors count. The default ignores context.Canceled.
	IsFailure func(error) bool
}

// Breaker opens after Threshold consecutive failures. After Cooldown a single
// probe runs; its outcome closes or reopens the breaker.
type Breaker struct {
	cfg Config

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed breaker.
func NewBreaker(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	b := &Breaker{cfg: cfg, state: StateClosed}
	metrics.BreakerStateChanged(cfg.Name, string(StateClosed))
	return b
}

// Do runs fn unless the breaker refuses. Errors from fn are returned unchanged.
func (b *Breaker) Do(fn func() error) error {
	probe, ok := b.admit()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}
	switch {
	case err == nil:
		b.failures = 0
		b.setLocked(StateClosed)
	case b.cfg.IsFailure(err):
		b.failures++
		switch {
		case b.state == StateHalfOpen:
			metrics.BreakerTripped(b.cfg.Name, "probe_failed")
			b.setLocked(StateOpen)
		case b.state == StateClosed && b.failures >= b.cfg.Threshold:
			metrics.BreakerTripped(b.cfg.Name, "threshold_exceeded")
			b.setLocked(StateOpen)
		}
	case probe:
		// The probe ended without a verdict; let the next caller try again.
		b.setLocked(StateOpen)
		b.openedAt = b.openedAt.Add(-b.cfg.Cooldown)
	}
	return err
}

// admit reports whether a call may proceed and whether it is the half-open probe.
func (b *Breaker) admit() (probe, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.Cooldown {
			return false, false
		}
		b.setLocked(StateHalfOpen)
		b.probing = true
		return true, true
	case StateHalfOpen:
		if b.probing {
			return false, false
		}
		b.probing = true
		return true, true
	default:
		return false, true
	}
}

func (b *Breaker) setLocked(s State) {
	if b.state == s {
		return
	}
	b.state = s
	if s == StateOpen {
		b.openedAt = b.cfg.Now()
	}
	metrics.BreakerStateChanged(b.cfg.Name, string(s))
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
