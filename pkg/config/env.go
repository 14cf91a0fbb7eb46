// Package config provides small configuration helpers shared by the daemon
// and the guarded infrastructure clients: typed environment lookups with
// logged fallbacks, and duration validators used by config loading.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// GetEnvString returns the environment value for key, or defaultValue when
// the variable is unset or empty.
//
//	addr := GetEnvString("ADMIN_ADDR", ":8080")
func GetEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt parses the environment value for key as an integer. An unset
// variable yields defaultValue silently; an unparseable one yields
// defaultValue with a warning, so a typo in deployment config surfaces in
// the logs instead of as a mystery default.
//
//	maxConns := GetEnvInt("DB_MAX_OPEN_CONNS", 25)
func GetEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Int("default", defaultValue),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// GetEnvBool parses the environment value for key as a boolean, accepting
// the forms strconv.ParseBool accepts ("1", "t", "true", "TRUE", ...).
// Unset yields defaultValue silently; an invalid value yields defaultValue
// with a warning.
//
//	enabled := GetEnvBool("PROBE_ENABLED", true)
func GetEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("invalid boolean value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Bool("default", defaultValue))
		return defaultValue
	}
	return value
}

// GetEnvDuration parses the environment value for key with
// time.ParseDuration ("30s", "1m", "1h30m"). Unset yields defaultValue
// silently; an invalid value yields defaultValue with a warning.
//
//	lifetime := GetEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour)
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}
