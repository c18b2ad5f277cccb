package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_gate_decisions_total",
		Help: "Retry gate decisions by function and outcome",
	}, []string{"function", "outcome"})

	Dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_dispatches_total",
		Help: "Dispatch envelopes produced by function",
	}, []string{"function"})

	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_failures_total",
		Help: "Failed invocations by error type",
	}, []string{"error_type"})

	UncommittedDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_uncommitted_dispatches_total",
		Help: "Envelopes published whose retry stamps failed to commit",
	}, []string{"function"})

	PayloadSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_payload_bytes",
		Help:    "Size of encoded call data",
		Buckets: prometheus.ExponentialBuckets(4, 4, 8), // 4 bytes up to 64KiB
	}, []string{"function"})

	BackendHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_backend_healthy",
		Help: "1 if the last store backend health check succeeded",
	})
)

// Gate outcomes
const (
	OutcomeAdmitted = "admitted"
	OutcomeGated    = "gated"
)

// GateObserver records retry gate decisions.
type GateObserver struct{}

// Gated increments the decision counter of function.
func (GateObserver) Gated(function string, admitted bool) {
	outcome := OutcomeGated
	if admitted {
		outcome = OutcomeAdmitted
	}
	GateDecisions.WithLabelValues(function, outcome).Inc()
}

// RecordDispatch records one produced envelope.
func RecordDispatch(function string, payloadSize int) {
	Dispatches.WithLabelValues(function).Inc()
	PayloadSize.WithLabelValues(function).Observe(float64(payloadSize))
}

// RecordUncommittedDispatch records an envelope that went out without its gate writes.
// Its items are admitted again by the next invocation.
func RecordUncommittedDispatch(function string) {
	UncommittedDispatches.WithLabelValues(function).Inc()
}

// RecordFailure records a failed invocation.
func RecordFailure(errorType string) {
	Failures.WithLabelValues(errorType).Inc()
}

// SetBackendHealthy records the result of a backend health check.
func SetBackendHealthy(healthy bool) {
	if healthy {
		BackendHealthy.Set(1)
		return
	}
	BackendHealthy.Set(0)
}
