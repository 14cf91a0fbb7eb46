package breaker

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned when a call is rejected because the circuit
	// is open and the open timeout has not yet elapsed. The protected
	// operation is never invoked in this case.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrOperationTimeout is returned when the protected operation exceeds
	// its call timeout. The call is recorded as a failure; any result the
	// operation eventually produces is discarded.
	ErrOperationTimeout = errors.New("operation timed out")
)

// ConfigError describes an invalid circuit breaker configuration value.
// It is returned at construction time, never during call processing.
type ConfigError struct {
	// Field is the configuration field that failed validation.
	Field string

	// Reason describes why the value is invalid.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid circuit breaker config: %s %s", e.Field, e.Reason)
}

// ExcludeFunc classifies errors that must not count toward breaker failure
// accounting. Excluded errors still propagate to the caller unchanged.
//
// Typical exclusions are faults that are not the dependency's fault, such as
// input validation errors or a cache miss reported as an error value.
type ExcludeFunc func(error) bool

// openError wraps ErrCircuitOpen with the breaker name for log correlation.
func openError(name string) error {
	return fmt.Errorf("circuit %q: %w", name, ErrCircuitOpen)
}

// timeoutError wraps ErrOperationTimeout with the breaker name.
func timeoutError(name string) error {
	return fmt.Errorf("circuit %q: %w", name, ErrOperationTimeout)
}
