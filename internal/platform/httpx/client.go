// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package httpx builds outbound HTTP clients with explicit timeouts.
package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4
)

// limits holds the per-phase timeouts derived from a total budget.
type limits struct {
	total  time.Duration
	dial   time.Duration
	header time.Duration
}

func probeLimits(total time.Duration) limits {
	if total <= 0 {
		total = defaultClientTimeout
	}
	return limits{
		total:  total,
		dial:   min(total, defaultDialTimeout),
		header: min(total, defaultResponseHeaderTimeout),
	}
}

// NewClient returns a client for short health and readiness probes.
func NewClient(timeout time.Duration) *http.Client {
	l := probeLimits(timeout)
	return &http.Client{Timeout: l.total, Transport: l.transport()}
}

// NewUpstreamClient returns a traced client for slow upstream APIs such as
// model inference, where the response header may take the whole budget.
func NewUpstreamClient(name string, timeout time.Duration) *http.Client {
	l := probeLimits(timeout)
	l.header = l.total
	spanName := func(_ string, r *http.Request) string { return name + " " + r.Method }
	return &http.Client{
		Timeout:   l.total,
		Transport: otelhttp.NewTransport(l.transport(), otelhttp.WithSpanNameFormatter(spanName)),
	}
}

func (l limits) transport() *http.Transport {
	dialer := &net.Dialer{Timeout: l.dial, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   l.dial,
		ResponseHeaderTimeout: l.header,
		ExpectContinueTimeout: time.Second,
	}
}
