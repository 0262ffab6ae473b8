// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across packages.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	BoothIDKey       = "booth.id"
	BoothStateKey    = "booth.state"
	CaptureShotsKey  = "capture.shots"
	CaptureDeviceKey = "capture.device"
	RenderBytesKey   = "composite.bytes"

	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// CaptureAttributes describes one capture run of a booth.
func CaptureAttributes(boothID, device string, shots int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(BoothIDKey, boothID),
		attribute.Int(CaptureShotsKey, shots),
	}
	if device != "" {
		attrs = append(attrs, attribute.String(CaptureDeviceKey, device))
	}
	return attrs
}
