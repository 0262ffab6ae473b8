// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ratelimit provides per-client token buckets.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partybooth",
			Name:      "ratelimit_exceeded_total",
			Help:      "Total rate limit rejections",
		},
		[]string{"limiter"},
	)
)

// Config holds rate limiting configuration.
type Config struct {
	Name  string
	Rate  rate.Limit // tokens per second per key
	Burst int
	// IdleTTL drops buckets not used for this long.
	IdleTTL time.Duration
}

// PerMinute returns a Config allowing n requests per minute with the given burst.
func PerMinute(name string, n, burst int) Config {
	return Config{
		Name:    name,
		Rate:    rate.Limit(float64(n) / 60),
		Burst:   burst,
		IdleTTL: 10 * time.Minute,
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key (usually a client IP).
type Limiter struct {
	config Config
	now    func() time.Time

	mu          sync.Mutex
	buckets     map[string]*bucket
	lastCleanup time.Time
}

// New creates a limiter.
func New(config Config) *Limiter {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &Limiter{
		config:      config,
		now:         time.Now,
		buckets:     make(map[string]*bucket),
		lastCleanup: time.Now(),
	}
}

// Allow reports whether key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.config.Rate, l.config.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.cleanupLocked(now)
	l.mu.Unlock()

	if !b.limiter.AllowN(now, 1) {
		rateLimitExceeded.WithLabelValues(l.config.Name).Inc()
		return false
	}
	return true
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// cleanupLocked drops idle buckets at most once per IdleTTL.
func (l *Limiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < l.config.IdleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.config.IdleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastCleanup = now
}

// GetClientIP extracts the client IP from the request.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// "client, proxy1, proxy2"
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
