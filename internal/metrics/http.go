// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nimbus_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route pattern and status class",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nimbus_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})
)

// ObserveHTTP records one finished request. route must be the chi route
// pattern, never the raw path.
func ObserveHTTP(method, route, status string, seconds float64) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// IncInFlight marks the start of a request.
func IncInFlight() { httpInFlight.Inc() }

// DecInFlight marks the end of a request.
func DecInFlight() { httpInFlight.Dec() }
