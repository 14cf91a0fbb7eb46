package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"breakerkit/internal/handler/http/requestid"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("LOG_LEVEL="+tt.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.value)
			if got := levelFromEnv(); got != tt.want {
				t.Errorf("levelFromEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	logger := NewLogger()
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be suppressed at warn level")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be enabled at warn level")
	}
}

// jsonLine decodes the single record a test logger wrote.
func jsonLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	return record
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := requestid.WithRequestID(context.Background(), "req-breaker-7")
	WithRequestID(ctx, base).Info("circuit opened")

	record := jsonLine(t, &buf)
	if record["request_id"] != "req-breaker-7" {
		t.Errorf("request_id = %v, want req-breaker-7", record["request_id"])
	}
}

func TestWithRequestID_NoIDIsPassThrough(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	got := WithRequestID(context.Background(), base)
	if got != base {
		t.Error("logger without a request ID should be returned unchanged")
	}
}

func TestWithCircuit(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	WithCircuit(base, "vector-store").Warn("trip")

	record := jsonLine(t, &buf)
	if record["circuit"] != "vector-store" {
		t.Errorf("circuit = %v, want vector-store", record["circuit"])
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	stored := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), stored)
	if FromContext(ctx) != stored {
		t.Error("FromContext should return the stored logger")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Error("FromContext without a logger should fall back to the default")
	}
}
