package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installTestTracer wires an in-memory exporter into the global tracer and
// restores a fresh provider when the test ends.
func installTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracer = otel.Tracer("breakerkit")

	t.Cleanup(func() {
		_ = tp.ForceFlush(context.Background())
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
		tracer = otel.Tracer("breakerkit")
	})
	return exporter
}

func serveTraced(t *testing.T, status int, target string, header http.Header) (*httptest.ResponseRecorder, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := installTestTracer(t)
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, exporter
}

func attrLookup(spans tracetest.SpanStubs, key string) (any, bool) {
	for _, attr := range spans[0].Attributes {
		if string(attr.Key) == key {
			return attr.Value.AsInterface(), true
		}
	}
	return nil, false
}

func TestMiddleware_RecordsRequestSpan(t *testing.T) {
	_, exporter := serveTraced(t, http.StatusServiceUnavailable, "/healthz", nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name != "GET /healthz" {
		t.Errorf("span name = %q, want GET /healthz", spans[0].Name)
	}

	if got, ok := attrLookup(spans, "http.status_code"); !ok || got.(int64) != 503 {
		t.Errorf("http.status_code = %v (present=%v), want 503", got, ok)
	}
	if got, ok := attrLookup(spans, "http.path"); !ok || got.(string) != "/healthz" {
		t.Errorf("http.path = %v (present=%v), want /healthz", got, ok)
	}
	// 503 from the health surface is still an error span.
	if got, ok := attrLookup(spans, "error"); !ok || got.(bool) != true {
		t.Errorf("error attr = %v (present=%v), want true", got, ok)
	}
}

func TestMiddleware_NoErrorFlagBelow500(t *testing.T) {
	_, exporter := serveTraced(t, http.StatusNotFound, "/breakers/unknown", nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if _, ok := attrLookup(spans, "error"); ok {
		t.Error("error attr present for a 404")
	}
}

func TestMiddleware_EchoesTraceID(t *testing.T) {
	rec, exporter := serveTraced(t, http.StatusOK, "/breakers", nil)

	traceID := rec.Header().Get(TraceIDHeader)
	if len(traceID) != 32 {
		t.Fatalf("trace ID header = %q, want 32 hex chars", traceID)
	}
	spans := exporter.GetSpans()
	if got := spans[0].SpanContext.TraceID().String(); got != traceID {
		t.Errorf("span trace ID %q != header %q", got, traceID)
	}
}

func TestMiddleware_ContinuesCallerTrace(t *testing.T) {
	header := http.Header{}
	header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	_, exporter := serveTraced(t, http.StatusOK, "/breakers", header)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if got := spans[0].SpanContext.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace ID = %q, want the caller's", got)
	}
}
