// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/partybooth/internal/telemetry"
)

// Tracing opens one server span per request and continues an incoming W3C
// trace context. Query values never reach span attributes.
func Tracing(tracerName string) func(http.Handler) http.Handler {
	tracer := telemetry.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parent := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(parent, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))
			finishSpan(span, r, ww)
		})
	}
}

// finishSpan names the span after the matched chi route, which is only known
// once the router has run.
func finishSpan(span trace.Span, r *http.Request, ww chimw.WrapResponseWriter) {
	route := routeLabel(r)
	span.SetName(r.Method + " " + route)

	status := ww.Status()
	span.SetAttributes(telemetry.HTTPAttributes(r.Method, route, redactedURL(r), status)...)
	if id := ww.Header().Get(HeaderRequestID); id != "" {
		span.SetAttributes(attribute.String("http.request_id", id))
	}

	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
		return
	}
	span.SetStatus(codes.Ok, "")
}

// redactedURL keeps the path and marks a dropped query with a bare "?".
func redactedURL(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?"
}
