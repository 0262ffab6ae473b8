// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cameraStreamsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "partybooth_camera_streams_open",
		Help: "Number of camera streams currently held open",
	})

	cameraStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_camera_starts_total",
		Help: "Camera start attempts by result",
	}, []string{"result"}) // result=ready|denied|error

	captureShotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_capture_shots_total",
		Help: "Individual shot capture attempts by outcome",
	}, []string{"outcome"}) // outcome=success|retry|failure

	captureSequencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_capture_sequences_total",
		Help: "Capture sequences by terminal outcome",
	}, []string{"outcome"}) // outcome=done|aborted|failed

	captureSequenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "partybooth_capture_sequence_duration_seconds",
		Help:    "Wall time of completed capture sequences",
		Buckets: []float64{1, 5, 10, 15, 20, 30, 60},
	})

	compositeRendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_composite_renders_total",
		Help: "Composite renders by outcome",
	}, []string{"outcome"}) // outcome=success|failure|canceled

	compositeRenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "partybooth_composite_render_duration_seconds",
		Help:    "Time spent decoding frames and rendering the composite",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
	})

	boothSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "partybooth_booth_sessions_active",
		Help: "Booth sessions currently registered",
	})

	stickersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partybooth_stickers_placed_total",
		Help: "Stickers placed by kind",
	}, []string{"kind"})
)

// CameraStreamOpened records a newly held camera stream.
func CameraStreamOpened() { cameraStreamsOpen.Inc() }

// CameraStreamClosed records a released camera stream.
func CameraStreamClosed() { cameraStreamsOpen.Dec() }

// RecordCameraStart records the result of a camera start attempt.
func RecordCameraStart(result string) {
	cameraStartsTotal.WithLabelValues(result).Inc()
}

// RecordCaptureShot records one shot attempt.
func RecordCaptureShot(outcome string) {
	captureShotsTotal.WithLabelValues(outcome).Inc()
}

// RecordCaptureSequence records a finished sequence; duration is observed for completed runs only.
func RecordCaptureSequence(outcome string, d time.Duration) {
	captureSequencesTotal.WithLabelValues(outcome).Inc()
	if outcome == "done" {
		captureSequenceDuration.Observe(d.Seconds())
	}
}

// RecordCompositeRender records a render outcome and its duration.
func RecordCompositeRender(outcome string, d time.Duration) {
	compositeRendersTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		compositeRenderDuration.Observe(d.Seconds())
	}
}

// SetBoothSessions records the number of registered booth sessions.
func SetBoothSessions(n int) {
	boothSessionsActive.Set(float64(n))
}

// RecordStickerPlaced increments the sticker counter for kind.
func RecordStickerPlaced(kind string) {
	stickersPlacedTotal.WithLabelValues(kind).Inc()
}
