// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "partybooth_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partybooth_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpBodyBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partybooth_http_body_bytes",
		Help:    "HTTP body sizes by route and direction",
		Buckets: prometheus.ExponentialBuckets(256, 4, 10), // 256B..64MiB
	}, []string{"route", "direction"}) // direction=in|out
)

// HTTPRequestStarted marks a request in flight. Call the returned func when it ends.
func HTTPRequestStarted() (done func()) {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordHTTPRequest observes one finished request. route is the matched
// pattern, never the raw path, so booth ids stay out of label values.
func RecordHTTPRequest(method, route string, status int, d time.Duration, in, out int64) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	if in > 0 {
		httpBodyBytes.WithLabelValues(route, "in").Observe(float64(in))
	}
	if out > 0 {
		httpBodyBytes.WithLabelValues(route, "out").Observe(float64(out))
	}
}
