package config

import (
	"fmt"
	"time"
)

// ValidatePositiveDuration reports an error unless d is greater than zero.
// Used for operation timeouts where zero would disable the bound entirely.
//
//	if err := ValidatePositiveDuration(opTimeout); err != nil {
//	    return fmt.Errorf("operation timeout: %w", err)
//	}
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateNonNegativeDuration reports an error when d is negative. Zero is
// allowed so that callers can treat the zero value as "use the default".
func ValidateNonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %v", d)
	}
	return nil
}
