package breaker

// State represents the current state of a circuit breaker.
type State int

const (
	// StateClosed indicates the circuit is closed and calls are executed normally.
	// This is the normal operating state.
	StateClosed State = iota

	// StateOpen indicates the circuit has tripped due to failures.
	// Calls are rejected immediately until the open timeout elapses.
	StateOpen

	// StateHalfOpen indicates the circuit is testing recovery.
	// Probe calls are allowed through to check whether the dependency has recovered.
	StateHalfOpen
)

// String returns a string representation of the circuit state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
