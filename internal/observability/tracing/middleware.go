package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"breakerkit/internal/handler/http/responsewriter"
)

// TraceIDHeader carries the span's trace ID back to the caller so a manual
// breaker control can be matched to its trace.
const TraceIDHeader = "X-Trace-Id"

// Middleware traces admin surface requests. It picks up W3C trace context
// from the caller's headers, opens a server span named after the route,
// echoes the trace ID on the response, and tags the span with method, path,
// and final status. A 5xx (a degraded health response, for instance) marks
// the span as an error.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(
			r.Context(),
			propagation.HeaderCarrier(r.Header),
		)

		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		w.Header().Set(TraceIDHeader, span.SpanContext().TraceID().String())

		rec := responsewriter.Wrap(w)
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
			attribute.Int("http.status_code", rec.StatusCode()),
		)
		if rec.StatusCode() >= http.StatusInternalServerError {
			span.SetAttributes(attribute.Bool("error", true))
		}
	})
}
