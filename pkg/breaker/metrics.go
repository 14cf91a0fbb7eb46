package breaker

import "time"

// Metrics defines the interface for recording circuit breaker metrics.
//
// Implementations can use Prometheus, StatsD, or custom metrics systems.
// All methods must be safe for concurrent use; they are invoked while the
// owning breaker's lock is held and must not block.
type Metrics interface {
	// RecordState records a breaker's current state.
	//
	// Parameters:
	//   - circuit: Breaker name
	//   - state: The state the breaker is now in
	RecordState(circuit string, state State)

	// RecordCall records a completed call and its duration.
	//
	// Parameters:
	//   - circuit: Breaker name
	//   - outcome: "success" or "failure"
	//   - duration: How long the call took
	RecordCall(circuit string, outcome string, duration time.Duration)

	// RecordRejection records a call rejected while the circuit was open.
	// The protected operation was never invoked.
	RecordRejection(circuit string)

	// RecordWindowSize records the current number of records retained in a
	// breaker's sliding window.
	RecordWindowSize(circuit string, size int)
}

// Call outcome labels used with RecordCall.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// NoOpMetrics is a Metrics implementation that discards all measurements.
//
// It is used as the default when no metrics implementation is configured,
// avoiding nil checks throughout the breaker core.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new no-op metrics recorder.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// RecordState does nothing.
func (m *NoOpMetrics) RecordState(circuit string, state State) {}

// RecordCall does nothing.
func (m *NoOpMetrics) RecordCall(circuit string, outcome string, duration time.Duration) {}

// RecordRejection does nothing.
func (m *NoOpMetrics) RecordRejection(circuit string) {}

// RecordWindowSize does nothing.
func (m *NoOpMetrics) RecordWindowSize(circuit string, size int) {}
