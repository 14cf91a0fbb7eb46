package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"breakerkit/pkg/breaker"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "breakerd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.AdminAddr != ":8080" {
		t.Errorf("admin addr = %q, want :8080", cfg.Server.AdminAddr)
	}
	if cfg.Server.GRPCAddr != ":9090" {
		t.Errorf("grpc addr = %q, want :9090", cfg.Server.GRPCAddr)
	}
	if !cfg.Probe.Enabled {
		t.Error("probe should be enabled by default")
	}
	if cfg.Webhook.Enabled {
		t.Error("webhook should be disabled by default")
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  admin_addr: ":7000"
  shutdown_timeout: 5s
defaults:
  consecutive_failure_threshold: 7
circuits:
  anthropic:
    consecutive_failure_threshold: 3
    open_timeout: 45s
  cache:
    minimum_calls: 20
probe:
  enabled: true
  schedule: "*/5 * * * *"
webhook:
  enabled: true
  url: "https://hooks.example.com/breakers"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.AdminAddr != ":7000" {
		t.Errorf("admin addr = %q, want :7000", cfg.Server.AdminAddr)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("shutdown timeout = %v, want 5s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Defaults.ConsecutiveFailureThreshold != 7 {
		t.Errorf("defaults threshold = %d, want 7", cfg.Defaults.ConsecutiveFailureThreshold)
	}
	wantCircuits := map[string]BreakerConfig{
		"anthropic": {ConsecutiveFailureThreshold: 3, OpenTimeout: 45 * time.Second},
		"cache":     {MinimumCalls: 20},
	}
	if diff := cmp.Diff(wantCircuits, cfg.Circuits); diff != "" {
		t.Errorf("circuits mismatch (-want +got):\n%s", diff)
	}
	if cfg.Probe.Schedule != "*/5 * * * *" {
		t.Errorf("probe schedule = %q", cfg.Probe.Schedule)
	}
	if !cfg.Webhook.Enabled || cfg.Webhook.URL == "" {
		t.Errorf("webhook = %+v, want enabled with url", cfg.Webhook)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/breakerd.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_InvalidCircuit(t *testing.T) {
	path := writeConfig(t, `
circuits:
  bad:
    failure_rate_threshold: 1.5
`)
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for out-of-range threshold")
	}
}

func TestLoad_WebhookRequiresURL(t *testing.T) {
	path := writeConfig(t, `
webhook:
  enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for enabled webhook without url")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_ADDR", ":6060")
	t.Setenv("GRPC_ADDR", ":6061")
	t.Setenv("PROBE_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.AdminAddr != ":6060" {
		t.Errorf("admin addr = %q, want :6060", cfg.Server.AdminAddr)
	}
	if cfg.Server.GRPCAddr != ":6061" {
		t.Errorf("grpc addr = %q, want :6061", cfg.Server.GRPCAddr)
	}
	if cfg.Probe.Enabled {
		t.Error("probe enabled, want disabled via PROBE_ENABLED")
	}
}

func TestConfig_Registry(t *testing.T) {
	path := writeConfig(t, `
defaults:
  consecutive_failure_threshold: 4
circuits:
  database:
    consecutive_failure_threshold: 12
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	reg, err := cfg.Registry(nil)
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}

	if _, exists := reg.Get("database"); !exists {
		t.Error("expected configured circuit to be pre-created")
	}

	// Uncreated names fall back to the defaults block.
	b := reg.GetOrCreate("other")
	if b.State() != breaker.StateClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}
