// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP ingress middleware of the API server.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/nimbus/internal/telemetry"
)

// Tracing starts a server span per request using the global tracer provider
// and propagator. Health and scrape endpoints are not traced. Spans start as
// "METHOD" and are renamed to "METHOD /route/{pattern}" once chi has routed;
// raw paths never become span names.
func Tracing(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			span := trace.SpanFromContext(r.Context())
			route := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetName(spanName(r))
			span.SetAttributes(telemetry.HTTPAttributes(r.Method, route, status)...)
			if status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})

		return otelhttp.NewHandler(inner, service,
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return spanName(r)
			}),
		)
	}
}

// spanName is also called by otelhttp after the handler when chi has set
// r.Pattern, so it must agree with the rename above.
func spanName(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return r.Method + " " + p
		}
	}
	return r.Method
}

func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}
