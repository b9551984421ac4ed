// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log wraps zerolog with a process-wide logger and request correlation.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{ field string }

var (
	requestIDKey = ctxKey{FieldRequestID}
	userIDKey    = ctxKey{FieldUserID}
)

func withValue(ctx context.Context, k ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, k, v)
}

func value(ctx context.Context, k ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(k).(string)
	return v
}

// A nil ctx is treated as context.Background by the setters and as empty by the getters.

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func ContextWithUserID(ctx context.Context, id string) context.Context {
	return withValue(ctx, userIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string { return value(ctx, requestIDKey) }
func UserIDFromContext(ctx context.Context) string    { return value(ctx, userIDKey) }

// WithContext adds request_id and user_id from ctx when present.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	rid, uid := value(ctx, requestIDKey), value(ctx, userIDKey)
	if rid == "" && uid == "" {
		return logger
	}
	lc := logger.With()
	if rid != "" {
		lc = lc.Str(FieldRequestID, rid)
	}
	if uid != "" {
		lc = lc.Str(FieldUserID, uid)
	}
	return lc.Logger()
}

func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
