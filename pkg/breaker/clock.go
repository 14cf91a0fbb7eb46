package breaker

import "time"

// Clock provides time abstraction for testing.
//
// Production code should use SystemClock. Tests can inject a fake clock
// to control time-based state transitions deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
