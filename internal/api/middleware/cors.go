// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"strings"
)

const allowedMethods = "GET, POST, PATCH, DELETE, OPTIONS"

// CORS sets Cross-Origin Resource Sharing headers for origins on the allow
// list. "*" in the list allows every origin. Requests without an Origin header
// pass through untouched.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if normalized, ok := normalizeOrigin(origin); ok {
			allowed[normalized] = true
		} else if strings.TrimSpace(origin) == "*" {
			allowed["*"] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")
			if origin != "" {
				normalized, _ := normalizeOrigin(origin)
				if allowed["*"] || (normalized != "" && allowed[normalized]) {
					h.Set("Access-Control-Allow-Origin", origin)
				}
			}

			h.Set("Access-Control-Allow-Methods", allowedMethods)
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", "Retry-After, Content-Length, X-Request-ID")
			h.Set("Access-Control-Max-Age", "600")

			if vary := h.Get("Vary"); vary == "" {
				h.Set("Vary", "Origin")
			} else if !strings.Contains(vary, "Origin") {
				h.Set("Vary", vary+", Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Allow", allowedMethods)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
