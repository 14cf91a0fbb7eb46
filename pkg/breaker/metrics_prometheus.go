package breaker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
//
// All metrics use a custom registry for better testability and isolation.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// callsTotal tracks completed calls by circuit and outcome.
	// Labels:
	//   - circuit: Breaker name
	//   - outcome: "success" or "failure"
	callsTotal *prometheus.CounterVec

	// callDuration tracks the duration of protected calls.
	// Labels:
	//   - circuit: Breaker name
	//
	// Buckets span fast cache hits through slow inference calls.
	callDuration *prometheus.HistogramVec

	// rejectedTotal tracks calls rejected while the circuit was open.
	// Labels:
	//   - circuit: Breaker name
	rejectedTotal *prometheus.CounterVec

	// circuitState tracks the breaker state.
	// Labels:
	//   - circuit: Breaker name
	//
	// Values:
	//   - 0: Closed (normal operation)
	//   - 1: Open (failing fast)
	//   - 2: Half-Open (testing recovery)
	circuitState *prometheus.GaugeVec

	// windowSize tracks the number of records in the sliding window.
	// Labels:
	//   - circuit: Breaker name
	windowSize *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance with a
// custom registry.
//
// Using a custom registry (instead of the global prometheus.DefaultRegisterer)
// provides isolated metrics per test, no metric conflicts when running
// multiple instances, and explicit metric lifecycle management.
// The registry can be passed to promhttp.HandlerFor() to expose metrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	callsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_calls_total",
			Help: "Total completed calls by circuit and outcome",
		},
		[]string{"circuit", "outcome"},
	)

	callDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "circuit_breaker_call_duration_seconds",
			Help:    "Duration of calls executed through a circuit breaker",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"circuit"},
	)

	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Calls rejected because the circuit was open",
		},
		[]string{"circuit"},
	)

	circuitState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit"},
	)

	windowSize := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_window_size",
			Help: "Current number of records in the sliding window",
		},
		[]string{"circuit"},
	)

	// Register all metrics with the custom registry
	registry.MustRegister(
		callsTotal,
		callDuration,
		rejectedTotal,
		circuitState,
		windowSize,
	)

	return &PrometheusMetrics{
		registry:      registry,
		callsTotal:    callsTotal,
		callDuration:  callDuration,
		rejectedTotal: rejectedTotal,
		circuitState:  circuitState,
		windowSize:    windowSize,
	}
}

// Registry returns the Prometheus registry containing all breaker metrics.
//
// This can be used with promhttp.HandlerFor() to expose metrics:
//
//	metrics := NewPrometheusMetrics()
//	http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordState records a breaker's current state.
func (m *PrometheusMetrics) RecordState(circuit string, state State) {
	m.circuitState.WithLabelValues(circuit).Set(float64(state))
}

// RecordCall records a completed call and its duration.
func (m *PrometheusMetrics) RecordCall(circuit string, outcome string, duration time.Duration) {
	m.callsTotal.WithLabelValues(circuit, outcome).Inc()
	m.callDuration.WithLabelValues(circuit).Observe(duration.Seconds())
}

// RecordRejection records a call rejected while the circuit was open.
func (m *PrometheusMetrics) RecordRejection(circuit string) {
	m.rejectedTotal.WithLabelValues(circuit).Inc()
}

// RecordWindowSize records the current sliding window occupancy.
func (m *PrometheusMetrics) RecordWindowSize(circuit string, size int) {
	m.windowSize.WithLabelValues(circuit).Set(float64(size))
}
