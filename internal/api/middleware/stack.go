// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/partybooth/internal/log"
)

// StackConfig selects the ingress middleware installed by NewRouter.
type StackConfig struct {
	AllowedOrigins []string

	EnableCORS            bool
	EnableCSRF            bool
	EnableSecurityHeaders bool
	CSP                   string

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	RateLimitPerMinute int // zero disables the global limiter
}

// Chain returns the configured middleware, outermost first. Recovery wraps
// everything and the limiter runs after logging so rejections are logged.
func (c StackConfig) Chain() []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{Recoverer, RequestID}

	optional := []struct {
		on bool
		mw func() func(http.Handler) http.Handler
	}{
		{c.EnableCORS, func() func(http.Handler) http.Handler { return CORS(c.AllowedOrigins) }},
		{c.EnableCSRF, func() func(http.Handler) http.Handler { return CSRFProtection(c.AllowedOrigins) }},
		{c.EnableSecurityHeaders, func() func(http.Handler) http.Handler { return SecurityHeaders(c.CSP) }},
		{c.EnableMetrics, Metrics},
		{c.TracingService != "", func() func(http.Handler) http.Handler { return Tracing(c.TracingService) }},
		{c.EnableLogging, log.Middleware},
		{c.RateLimitPerMinute > 0, func() func(http.Handler) http.Handler { return APIRateLimit(c.RateLimitPerMinute) }},
	}
	for _, o := range optional {
		if o.on {
			chain = append(chain, o.mw())
		}
	}
	return chain
}

// NewRouter returns a chi router with cfg's chain installed.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(cfg.Chain()...)
	return r
}
