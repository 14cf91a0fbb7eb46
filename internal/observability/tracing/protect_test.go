package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"breakerkit/pkg/breaker"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
	})

	// Re-initialize global tracer with new provider
	tracer = otel.Tracer("breakerkit")

	return exporter
}

func newTestRegistry(t *testing.T) *breaker.Registry {
	t.Helper()

	reg, err := breaker.NewRegistry(breaker.Config{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func TestTraced_RecordsSpanOnSuccess(t *testing.T) {
	exporter := setupTestTracer(t)
	reg := newTestRegistry(t)

	result, err := Traced(context.Background(), reg, "llm", 0, func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Traced() error = %v", err)
	}
	if result.(string) != "ok" {
		t.Errorf("result = %v, want ok", result)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	span := spans[0]
	if span.Name != "breaker.protect llm" {
		t.Errorf("span name = %q, want %q", span.Name, "breaker.protect llm")
	}

	attrs := attributeMap(span)
	if attrs["circuit.name"] != "llm" {
		t.Errorf("circuit.name = %q, want llm", attrs["circuit.name"])
	}
	if attrs["circuit.state"] != "closed" {
		t.Errorf("circuit.state = %q, want closed", attrs["circuit.state"])
	}
}

func TestTraced_RecordsRejection(t *testing.T) {
	exporter := setupTestTracer(t)
	reg := newTestRegistry(t)

	reg.GetOrCreate("down").ForceOpen()

	_, err := Traced(context.Background(), reg, "down", 0, func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, breaker.ErrCircuitOpen) {
		t.Fatalf("Traced() error = %v, want ErrCircuitOpen", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	attrs := attributeMap(spans[0])
	if attrs["circuit.rejected"] != "true" {
		t.Errorf("circuit.rejected = %q, want true", attrs["circuit.rejected"])
	}
	if attrs["circuit.state"] != "open" {
		t.Errorf("circuit.state = %q, want open", attrs["circuit.state"])
	}
}

func TestTraced_RecordsOperationError(t *testing.T) {
	exporter := setupTestTracer(t)
	reg := newTestRegistry(t)

	errBoom := errors.New("boom")
	_, err := Traced(context.Background(), reg, "flaky", 0, func(ctx context.Context) (any, error) {
		return nil, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Traced() error = %v, want %v", err, errBoom)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected an error event recorded on the span")
	}

	attrs := attributeMap(spans[0])
	if attrs["circuit.rejected"] != "false" {
		t.Errorf("circuit.rejected = %q, want false", attrs["circuit.rejected"])
	}
}

// attributeMap flattens span attributes into a string map for assertions.
func attributeMap(span tracetest.SpanStub) map[string]string {
	attrs := make(map[string]string)
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	return attrs
}
