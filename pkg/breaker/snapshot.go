package breaker

import "time"

// Snapshot is an immutable view of a breaker's state and statistics,
// safe to serialize for monitoring and health endpoints.
type Snapshot struct {
	// Name is the breaker's dependency name.
	Name string `json:"name"`

	// State is the current circuit state ("closed", "open", "half-open").
	State string `json:"state"`

	// TotalCalls is the cumulative number of completed calls.
	TotalCalls uint64 `json:"total_calls"`

	// TotalSuccesses is the cumulative number of successful calls.
	TotalSuccesses uint64 `json:"total_successes"`

	// TotalFailures is the cumulative number of failed calls.
	TotalFailures uint64 `json:"total_failures"`

	// SuccessRate is TotalSuccesses / TotalCalls, or 0 when no calls
	// have completed.
	SuccessRate float64 `json:"success_rate"`

	// ConsecutiveFailures is the current run of failed calls.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// ConsecutiveSuccesses is the current run of successful calls.
	ConsecutiveSuccesses int `json:"consecutive_successes"`

	// LastFailure is the time of the most recent failure, zero if none.
	LastFailure time.Time `json:"last_failure,omitempty"`

	// LastStateChange is the time of the most recent state transition.
	LastStateChange time.Time `json:"last_state_change"`

	// WindowSize is the number of call records currently retained in the
	// sliding window.
	WindowSize int `json:"window_size"`
}

// Snapshot returns an immutable view of the breaker's current state,
// cumulative counters, and window occupancy.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	successRate := 0.0
	if b.totalCalls > 0 {
		successRate = float64(b.totalSuccesses) / float64(b.totalCalls)
	}

	return Snapshot{
		Name:                 b.name,
		State:                b.state.String(),
		TotalCalls:           b.totalCalls,
		TotalSuccesses:       b.totalSuccesses,
		TotalFailures:        b.totalFailures,
		SuccessRate:          successRate,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		LastFailure:          b.lastFailure,
		LastStateChange:      b.lastStateChange,
		WindowSize:           b.window.size(),
	}
}
