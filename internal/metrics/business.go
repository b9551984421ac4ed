// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors exported by nimbus.
// Labels are bounded enums; user, thread and request ids never become labels.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nimbus_generate_requests_total",
		Help: "Generate requests by outcome",
	}, []string{"outcome"}) // outcome=success|invalid|quota|upstream_error|circuit_open

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nimbus_upstream_request_duration_seconds",
		Help:    "Latency of model upstream calls",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"outcome"}) // outcome=success|failure

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nimbus_cache_lookups_total",
		Help: "Response cache lookups by backend and result",
	}, []string{"backend", "result"}) // result=hit|miss

	rateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nimbus_ratelimit_rejections_total",
		Help: "Requests rejected by a rate limiter",
	}, []string{"scope"}) // scope=ip|generate

	authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nimbus_auth_failures_total",
		Help: "Authentication failures by reason",
	}, []string{"reason"}) // reason=missing|invalid|credentials

	accountsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nimbus_accounts_created_total",
		Help: "User accounts created through signup",
	})

	checkoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nimbus_checkout_sessions_total",
		Help: "Checkout session creation attempts by outcome",
	}, []string{"outcome"})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nimbus_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"})
)

// RecordGenerate counts a finished generate request.
func RecordGenerate(outcome string) {
	generateRequests.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one upstream call.
func ObserveUpstream(d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	upstreamDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordCacheLookup counts a response cache hit or miss.
func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(backend, result).Inc()
}

// RecordRateLimitRejection counts a request rejected by the given limiter scope.
func RecordRateLimitRejection(scope string) {
	rateLimitRejections.WithLabelValues(scope).Inc()
}

// RecordAuthFailure counts an authentication failure.
func RecordAuthFailure(reason string) {
	authFailures.WithLabelValues(reason).Inc()
}

// RecordAccountCreated counts a successful signup.
func RecordAccountCreated() {
	accountsCreated.Inc()
}

// RecordCheckout counts a checkout session attempt.
func RecordCheckout(outcome string) {
	checkoutSessions.WithLabelValues(outcome).Inc()
}

// RecordConfigReload counts a configuration reload.
func RecordConfigReload(outcome string) {
	configReloads.WithLabelValues(outcome).Inc()
}
