package breaker

import "time"

// Config holds the configuration for a single circuit breaker.
//
// A Config is immutable once a breaker is constructed from it. Zero values
// are replaced with defaults at construction time; out-of-range values are
// rejected with a ConfigError.
type Config struct {
	// ConsecutiveFailureThreshold is the number of consecutive failures
	// that trips a closed circuit. Default: 5.
	ConsecutiveFailureThreshold int

	// SuccessThreshold is the number of consecutive successful probe calls
	// required to close a half-open circuit. Default: 2.
	SuccessThreshold int

	// OpenTimeout is how long an open circuit rejects calls before the
	// next call is allowed through as a probe. Default: 30 seconds.
	OpenTimeout time.Duration

	// SlowCallDuration is the duration at or above which a call counts as
	// slow, independent of its outcome. Default: 1 second.
	SlowCallDuration time.Duration

	// FailureRateThreshold is the failure ratio over the sliding window
	// that trips a closed circuit, in the range (0, 1].
	// For example, 0.5 means 50% failure rate. Default: 0.5.
	//
	// The zero value selects the default, so an exact threshold of 0
	// cannot be configured. To trip on any failure, use a value small
	// enough that a single failure crosses it, such as 0.001.
	FailureRateThreshold float64

	// SlowCallRateThreshold is the slow-call ratio over the sliding window
	// that trips a closed circuit, in the range (0, 1]. Default: 0.8.
	// As with FailureRateThreshold, zero selects the default.
	SlowCallRateThreshold float64

	// MinimumCalls is the minimum number of records the sliding window
	// must hold before rate-based trip conditions are evaluated.
	// Default: 10.
	MinimumCalls int

	// WindowSize is the maximum number of call records retained in the
	// sliding window. Default: 50.
	WindowSize int

	// Clock provides time abstraction for testing.
	// Default: SystemClock.
	Clock Clock

	// Metrics records breaker state changes and call outcomes.
	// Default: NoOpMetrics.
	Metrics Metrics
}

// DefaultConfig returns a balanced configuration suitable for most
// external dependencies.
func DefaultConfig() Config {
	return Config{
		ConsecutiveFailureThreshold: 5,
		SuccessThreshold:            2,
		OpenTimeout:                 30 * time.Second,
		SlowCallDuration:            1 * time.Second,
		FailureRateThreshold:        0.5,
		SlowCallRateThreshold:       0.8,
		MinimumCalls:                10,
		WindowSize:                  50,
	}
}

// ModelAPIConfig returns configuration optimized for model-inference API
// calls. Inference endpoints are slow by nature, so the slow-call threshold
// is generous and the open timeout long enough for provider-side recovery.
func ModelAPIConfig() Config {
	return Config{
		ConsecutiveFailureThreshold: 5,
		SuccessThreshold:            2,
		OpenTimeout:                 60 * time.Second,
		SlowCallDuration:            30 * time.Second,
		FailureRateThreshold:        0.6,
		SlowCallRateThreshold:       0.9,
		MinimumCalls:                5,
		WindowSize:                  30,
	}
}

// VectorStoreConfig returns configuration optimized for vector similarity
// queries. Queries should be fast; sustained slowness is treated as a
// dependency fault well before hard failures appear.
func VectorStoreConfig() Config {
	return Config{
		ConsecutiveFailureThreshold: 5,
		SuccessThreshold:            3,
		OpenTimeout:                 30 * time.Second,
		SlowCallDuration:            500 * time.Millisecond,
		FailureRateThreshold:        0.5,
		SlowCallRateThreshold:       0.7,
		MinimumCalls:                10,
		WindowSize:                  50,
	}
}

// DatabaseConfig returns configuration optimized for relational database
// operations. More tolerant of consecutive failures since transient
// connection issues should not immediately trip the breaker.
func DatabaseConfig() Config {
	return Config{
		ConsecutiveFailureThreshold: 10,
		SuccessThreshold:            3,
		OpenTimeout:                 30 * time.Second,
		SlowCallDuration:            1 * time.Second,
		FailureRateThreshold:        0.6,
		SlowCallRateThreshold:       0.8,
		MinimumCalls:                15,
		WindowSize:                  100,
	}
}

// CacheConfig returns configuration optimized for cache backends.
// Caches are expected to answer in single-digit milliseconds, and a failing
// cache should trip fast so callers fall back to the source of truth.
func CacheConfig() Config {
	return Config{
		ConsecutiveFailureThreshold: 3,
		SuccessThreshold:            2,
		OpenTimeout:                 10 * time.Second,
		SlowCallDuration:            50 * time.Millisecond,
		FailureRateThreshold:        0.4,
		SlowCallRateThreshold:       0.6,
		MinimumCalls:                10,
		WindowSize:                  50,
	}
}

// WebhookConfig returns configuration optimized for outbound webhook
// delivery. Receivers are third-party endpoints with unpredictable uptime,
// so the breaker tolerates a higher failure rate before tripping.
func WebhookConfig() Config {
	return Config{
		ConsecutiveFailureThreshold: 5,
		SuccessThreshold:            2,
		OpenTimeout:                 120 * time.Second,
		SlowCallDuration:            5 * time.Second,
		FailureRateThreshold:        0.7,
		SlowCallRateThreshold:       0.9,
		MinimumCalls:                5,
		WindowSize:                  30,
	}
}

// withDefaults returns a copy of the config with zero values replaced by
// defaults. Negative and out-of-range values are left untouched so that
// Validate can reject them.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.ConsecutiveFailureThreshold == 0 {
		c.ConsecutiveFailureThreshold = def.ConsecutiveFailureThreshold
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = def.OpenTimeout
	}
	if c.SlowCallDuration == 0 {
		c.SlowCallDuration = def.SlowCallDuration
	}
	if c.FailureRateThreshold == 0 {
		c.FailureRateThreshold = def.FailureRateThreshold
	}
	if c.SlowCallRateThreshold == 0 {
		c.SlowCallRateThreshold = def.SlowCallRateThreshold
	}
	if c.MinimumCalls == 0 {
		c.MinimumCalls = def.MinimumCalls
	}
	if c.WindowSize == 0 {
		c.WindowSize = def.WindowSize
	}
	if c.Clock == nil {
		c.Clock = &SystemClock{}
	}
	if c.Metrics == nil {
		c.Metrics = NewNoOpMetrics()
	}

	return c
}

// Validate checks the configuration for out-of-range values.
// It returns a ConfigError describing the first invalid field found.
func (c Config) Validate() error {
	if c.ConsecutiveFailureThreshold < 0 {
		return &ConfigError{Field: "ConsecutiveFailureThreshold", Reason: "must not be negative"}
	}
	if c.SuccessThreshold < 0 {
		return &ConfigError{Field: "SuccessThreshold", Reason: "must not be negative"}
	}
	if c.OpenTimeout < 0 {
		return &ConfigError{Field: "OpenTimeout", Reason: "must not be negative"}
	}
	if c.SlowCallDuration < 0 {
		return &ConfigError{Field: "SlowCallDuration", Reason: "must not be negative"}
	}
	if c.FailureRateThreshold < 0 || c.FailureRateThreshold > 1 {
		return &ConfigError{Field: "FailureRateThreshold", Reason: "must be in the range [0, 1]"}
	}
	if c.SlowCallRateThreshold < 0 || c.SlowCallRateThreshold > 1 {
		return &ConfigError{Field: "SlowCallRateThreshold", Reason: "must be in the range [0, 1]"}
	}
	if c.MinimumCalls < 0 {
		return &ConfigError{Field: "MinimumCalls", Reason: "must not be negative"}
	}
	if c.WindowSize < 0 {
		return &ConfigError{Field: "WindowSize", Reason: "must not be negative"}
	}

	return nil
}
