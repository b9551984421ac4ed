// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/nimbus/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestRecorders(t *testing.T) {
	before := counterValue(t, "nimbus_generate_requests_total", map[string]string{"outcome": "success"})
	metrics.RecordGenerate("success")
	assert.Equal(t, before+1, counterValue(t, "nimbus_generate_requests_total", map[string]string{"outcome": "success"}))

	before = counterValue(t, "nimbus_cache_lookups_total", map[string]string{"backend": "memory", "result": "hit"})
	metrics.RecordCacheLookup("memory", true)
	assert.Equal(t, before+1, counterValue(t, "nimbus_cache_lookups_total", map[string]string{"backend": "memory", "result": "hit"}))

	before = counterValue(t, "nimbus_auth_failures_total", map[string]string{"reason": "invalid"})
	metrics.RecordAuthFailure("invalid")
	assert.Equal(t, before+1, counterValue(t, "nimbus_auth_failures_total", map[string]string{"reason": "invalid"}))

	metrics.ObserveUpstream(120*time.Millisecond, errors.New("boom"))
	metrics.ObserveHTTP("GET", "/threads/{id}", "2xx", 0.01)
	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "nimbus_upstream_request_duration_seconds", "nimbus_http_request_duration_seconds")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
}

func TestCircuitBreakerStateIsExclusive(t *testing.T) {
	metrics.SetCircuitBreakerState("upstream", "open")
	metrics.SetCircuitBreakerState("upstream", "closed")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	active := 0
	for _, mf := range families {
		if mf.GetName() != "nimbus_circuit_breaker_state" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, map[string]string{"component": "upstream"}) && m.GetGauge().GetValue() == 1 {
				active++
				assert.True(t, matchLabels(m, map[string]string{"state": "closed"}))
			}
		}
	}
	assert.Equal(t, 1, active)
}

func TestPromhttpExposure(t *testing.T) {
	metrics.RecordRateLimitRejection("ip")
	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "nimbus_ratelimit_rejections_total"))
}
