// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "partybooth_proc_terminate_total",
	Help: "Signals sent to child process groups by signal and result",
}, []string{"signal", "result"}) // result=sent|esrch|error

// RecordProcTerminate records a termination signal sent to a child process group.
func RecordProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(signal, result).Inc()
}
