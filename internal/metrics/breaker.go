// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nimbus_circuit_breaker_state",
		Help: "1 for the current state of each breaker, 0 for the others",
	}, []string{"component", "state"})

	breakerOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nimbus_circuit_breaker_trips_total",
		Help: "Breaker transitions into the open state",
	}, []string{"component", "reason"}) // reason=threshold_exceeded|half_open_failure
)

// SetCircuitBreakerState marks state as the only active state of component.
func SetCircuitBreakerState(component, state string) {
	for _, s := range [...]string{"closed", "half-open", "open"} {
		g := breakerState.WithLabelValues(component, s)
		if s == state {
			g.Set(1)
		} else {
			g.Set(0)
		}
	}
}

func RecordCircuitBreakerTrip(component, reason string) {
	breakerOpens.WithLabelValues(component, reason).Inc()
}
