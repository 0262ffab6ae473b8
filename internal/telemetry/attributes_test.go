// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("POST", "/api/booth/{id}/capture", "http://localhost:8088/api/booth/x/capture", 202)
	assert.ElementsMatch(t, []attribute.KeyValue{
		attribute.String(HTTPMethodKey, "POST"),
		attribute.String(HTTPRouteKey, "/api/booth/{id}/capture"),
		attribute.String(HTTPURLKey, "http://localhost:8088/api/booth/x/capture"),
		attribute.Int(HTTPStatusCodeKey, 202),
	}, attrs)
}

func TestCaptureAttributes(t *testing.T) {
	assert.ElementsMatch(t, []attribute.KeyValue{
		attribute.String(BoothIDKey, "booth-1"),
		attribute.Int(CaptureShotsKey, 3),
		attribute.String(CaptureDeviceKey, "ffmpeg:/dev/video0"),
	}, CaptureAttributes("booth-1", "ffmpeg:/dev/video0", 3))

	attrs := CaptureAttributes("booth-1", "", 2)
	assert.Len(t, attrs, 2, "device is omitted when unknown")
}
