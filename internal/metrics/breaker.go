// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// breakerStates is the closed set of values for the state label.
var breakerStates = [...]string{"closed", "half-open", "open"}

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "partybooth_breaker_state",
		Help: "1 for the current state of each upstream breaker, 0 for the others",
	}, []string{"breaker", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_breaker_trips_total",
		Help: "Times an upstream breaker opened, by cause",
	}, []string{"breaker", "reason"})
)

// BreakerStateChanged flips the one-hot state series of the named breaker.
func BreakerStateChanged(name, state string) {
	g := breakerState.MustCurryWith(prometheus.Labels{"breaker": name})
	for _, s := range breakerStates {
		if s == state {
			g.WithLabelValues(s).Set(1)
			continue
		}
		g.WithLabelValues(s).Set(0)
	}
}

// BreakerTripped counts a transition to open.
func BreakerTripped(name, reason string) {
	breakerTrips.WithLabelValues(name, reason).Inc()
}
