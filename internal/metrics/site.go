// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_wishes_operations_total",
		Help: "Guestbook operations by kind and outcome",
	}, []string{"op", "outcome"}) // op=list|add|like

	photosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_photos_operations_total",
		Help: "Gallery operations by kind and outcome",
	}, []string{"op", "outcome"}) // op=list|add

	blobBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partybooth_blob_bytes_written_total",
		Help: "Bytes written to the blob store",
	})

	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_ai_requests_total",
		Help: "Generative AI requests by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=text|image

	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partybooth_ai_request_duration_seconds",
		Help:    "Generative AI request latency",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
	}, []string{"kind"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_cache_lookups_total",
		Help: "Cache lookups by cache name and result",
	}, []string{"cache", "result"}) // result=hit|miss|error
)

// RecordWishOp records a guestbook operation.
func RecordWishOp(op string, err error) {
	wishesTotal.WithLabelValues(op, outcome(err)).Inc()
}

// RecordPhotoOp records a gallery operation.
func RecordPhotoOp(op string, err error) {
	photosTotal.WithLabelValues(op, outcome(err)).Inc()
}

// RecordBlobWrite adds n bytes to the written counter.
func RecordBlobWrite(n int) {
	blobBytesWritten.Add(float64(n))
}

// RecordAIRequest records one generative request.
func RecordAIRequest(kind string, d time.Duration, err error) {
	aiRequestsTotal.WithLabelValues(kind, outcome(err)).Inc()
	aiRequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordCacheLookup records a cache hit, miss or error.
func RecordCacheLookup(cache, result string) {
	cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
