// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	boothIDKey
)

// correlation lists the context values copied onto loggers, in field order.
var correlation = []struct {
	key   ctxKey
	field string
}{
	{requestIDKey, FieldRequestID},
	{boothIDKey, FieldBoothID},
}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func value(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithRequestID returns ctx carrying the HTTP request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// ContextWithBoothID returns ctx carrying the booth session id.
func ContextWithBoothID(ctx context.Context, id string) context.Context {
	return withValue(ctx, boothIDKey, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string { return value(ctx, requestIDKey) }

// BoothIDFromContext returns the booth session id, or "".
func BoothIDFromContext(ctx context.Context) string { return value(ctx, boothIDKey) }

// WithContext adds the request and booth ids found in ctx to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	var b *zerolog.Context
	for _, c := range correlation {
		v := value(ctx, c.key)
		if v == "" {
			continue
		}
		if b == nil {
			lc := logger.With()
			b = &lc
		}
		*b = b.Str(c.field, v)
	}
	if b == nil {
		return logger
	}
	return b.Logger()
}

// WithComponentFromContext is WithComponent followed by WithContext.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
