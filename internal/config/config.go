// Package config loads the daemon configuration from a YAML file with
// environment variable overrides for listen addresses. Per-circuit breaker
// tuning lives in the file; operational knobs that differ per deployment
// come from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"breakerkit/pkg/breaker"
	pkgconfig "breakerkit/pkg/config"
)

// Config is the full daemon configuration.
type Config struct {
	Server   ServerConfig             `yaml:"server"`
	Defaults BreakerConfig            `yaml:"defaults"`
	Circuits map[string]BreakerConfig `yaml:"circuits"`
	Probe    ProbeConfig              `yaml:"probe"`
	Webhook  WebhookConfig            `yaml:"webhook"`
}

// ServerConfig holds listen addresses for the operational surfaces.
type ServerConfig struct {
	// AdminAddr is the HTTP listen address for health, metrics, and
	// breaker administration. Override with ADMIN_ADDR.
	AdminAddr string `yaml:"admin_addr"`

	// GRPCAddr is the gRPC health service listen address. Override with
	// GRPC_ADDR. Empty disables the gRPC listener.
	GRPCAddr string `yaml:"grpc_addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BreakerConfig mirrors breaker.Config in YAML form. Zero fields inherit
// the library defaults.
type BreakerConfig struct {
	ConsecutiveFailureThreshold int           `yaml:"consecutive_failure_threshold"`
	SuccessThreshold            int           `yaml:"success_threshold"`
	OpenTimeout                 time.Duration `yaml:"open_timeout"`
	SlowCallDuration            time.Duration `yaml:"slow_call_duration"`
	FailureRateThreshold        float64       `yaml:"failure_rate_threshold"`
	SlowCallRateThreshold       float64       `yaml:"slow_call_rate_threshold"`
	MinimumCalls                int           `yaml:"minimum_calls"`
	WindowSize                  int           `yaml:"window_size"`
}

// ProbeConfig holds the active recovery probe schedule.
type ProbeConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Schedule      string        `yaml:"schedule"`
	Timezone      string        `yaml:"timezone"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
}

// WebhookConfig holds outbound state-change notification settings.
type WebhookConfig struct {
	Enabled           bool          `yaml:"enabled"`
	URL               string        `yaml:"url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// Breaker converts the YAML form into a breaker.Config.
func (b BreakerConfig) Breaker() breaker.Config {
	return breaker.Config{
		ConsecutiveFailureThreshold: b.ConsecutiveFailureThreshold,
		SuccessThreshold:            b.SuccessThreshold,
		OpenTimeout:                 b.OpenTimeout,
		SlowCallDuration:            b.SlowCallDuration,
		FailureRateThreshold:        b.FailureRateThreshold,
		SlowCallRateThreshold:       b.SlowCallRateThreshold,
		MinimumCalls:                b.MinimumCalls,
		WindowSize:                  b.WindowSize,
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			AdminAddr:       ":8080",
			GRPCAddr:        ":9090",
			ShutdownTimeout: 15 * time.Second,
		},
		Circuits: make(map[string]BreakerConfig),
		Probe: ProbeConfig{
			Enabled:  true,
			Schedule: "* * * * *",
			Timezone: "UTC",
			Timeout:  5 * time.Second,
		},
	}
}

// Load reads the configuration from path and applies environment
// overrides. An empty path returns the defaults with overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 -- path comes from a CLI flag, not user input
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.AdminAddr = pkgconfig.GetEnvString("ADMIN_ADDR", c.Server.AdminAddr)
	c.Server.GRPCAddr = pkgconfig.GetEnvString("GRPC_ADDR", c.Server.GRPCAddr)
	c.Webhook.URL = pkgconfig.GetEnvString("WEBHOOK_URL", c.Webhook.URL)
	c.Probe.Enabled = pkgconfig.GetEnvBool("PROBE_ENABLED", c.Probe.Enabled)
}

// Validate checks the loaded configuration, including every per-circuit
// breaker block.
func (c *Config) Validate() error {
	if c.Server.AdminAddr == "" {
		return fmt.Errorf("server admin_addr is required")
	}
	if err := pkgconfig.ValidateNonNegativeDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server shutdown_timeout: %w", err)
	}
	if err := pkgconfig.ValidateNonNegativeDuration(c.Probe.Timeout); err != nil {
		return fmt.Errorf("probe timeout: %w", err)
	}
	if err := pkgconfig.ValidateNonNegativeDuration(c.Webhook.Timeout); err != nil {
		return fmt.Errorf("webhook timeout: %w", err)
	}

	if err := c.Defaults.Breaker().Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for name, bc := range c.Circuits {
		if err := bc.Breaker().Validate(); err != nil {
			return fmt.Errorf("circuit %q: %w", name, err)
		}
	}

	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("webhook url is required when webhook is enabled")
	}

	return nil
}

// Registry builds a breaker registry from the defaults and creates one
// breaker per configured circuit. All breakers share the given metrics
// recorder; pass nil for no-op metrics.
func (c *Config) Registry(metrics breaker.Metrics) (*breaker.Registry, error) {
	defaults := c.Defaults.Breaker()
	defaults.Metrics = metrics

	reg, err := breaker.NewRegistry(defaults)
	if err != nil {
		return nil, err
	}

	for name, bc := range c.Circuits {
		bcfg := bc.Breaker()
		bcfg.Metrics = metrics
		if _, err := reg.Configure(name, bcfg); err != nil {
			return nil, fmt.Errorf("circuit %q: %w", name, err)
		}
	}

	return reg, nil
}
