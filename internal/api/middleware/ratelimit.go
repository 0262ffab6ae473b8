// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

const tooManyRequestsBody = `{"error":"Too many requests. Please try again later."}`

// RateLimitConfig configures a sliding-window limiter.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	// KeyFunc defaults to the client IP.
	KeyFunc func(r *http.Request) (string, error)
}

// RateLimit rejects requests beyond RequestLimit per window and key with a
// JSON 429 carrying Retry-After.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	key := cfg.KeyFunc
	if key == nil {
		key = httprate.KeyByIP
	}
	return httprate.Limit(cfg.RequestLimit, cfg.WindowSize,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(rejectWithRetry(cfg.WindowSize)),
	)
}

func rejectWithRetry(window time.Duration) http.HandlerFunc {
	retry := fmt.Sprint(int64(window / time.Second))
	return func(w http.ResponseWriter, _ *http.Request) {
		h := w.Header()
		h.Set("Content-Type", "application/json")
		h.Set("Retry-After", retry)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(tooManyRequestsBody))
	}
}

// APIRateLimit is the per-client global limiter. perMinute <= 0 disables it.
func APIRateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return passthrough
	}
	return RateLimit(RateLimitConfig{RequestLimit: perMinute, WindowSize: time.Minute})
}

func passthrough(next http.Handler) http.Handler { return next }
