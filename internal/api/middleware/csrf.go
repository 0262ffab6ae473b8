// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var forwardingHeaders = []string{"Forwarded", "X-Forwarded-For", "X-Forwarded-Host", "X-Forwarded-Proto", "X-Forwarded-Server"}

// originPolicy decides which browser origins may change state.
type originPolicy struct {
	any     bool
	allowed map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			p.any = true
			continue
		}
		if n, ok := normalizeOrigin(o); ok {
			p.allowed[n] = struct{}{}
		}
	}
	return p
}

// permits reports whether origin is allow-listed or, for requests that did
// not pass through a proxy, equal to the origin the request was sent to.
func (p originPolicy) permits(origin string, r *http.Request) bool {
	if p.any {
		return true
	}
	if _, ok := p.allowed[origin]; ok {
		return true
	}
	for _, h := range forwardingHeaders {
		if r.Header.Get(h) != "" {
			return false
		}
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	self, ok := normalizeOrigin(scheme + "://" + r.Host)
	return ok && origin == self
}

// CSRFProtection rejects unsafe requests from origins that are neither
// allow-listed nor same-origin. Requests with no Origin or Referer are refused.
func CSRFProtection(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			origin, ok := requestOrigin(r)
			switch {
			case !ok:
				forbid(w, "Missing origin or referer header")
			case !policy.permits(origin, r):
				forbid(w, "CSRF check failed: origin not trusted")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func forbid(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// requestOrigin reads Origin, falling back to the scheme and host of Referer.
func requestOrigin(r *http.Request) (string, bool) {
	if o, ok := normalizeOrigin(r.Header.Get("Origin")); ok {
		return o, true
	}
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || ref.Scheme == "" || ref.Host == "" {
		return "", false
	}
	return normalizeOrigin(ref.Scheme + "://" + ref.Host)
}

// normalizeOrigin lowercases scheme and host and drops default ports.
// Only http and https origins are accepted.
func normalizeOrigin(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t\r\n/@\\") {
		return "", false
	}

	port := u.Port()
	if port != "" {
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			return "", false
		}
	}
	if port == "" || (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		return scheme + "://" + host, true
	}
	return scheme + "://" + net.JoinHostPort(host, port), true
}
