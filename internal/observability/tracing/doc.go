// Package tracing provides OpenTelemetry tracing integration.
//
// It exposes the application tracer, HTTP middleware for the admin surface,
// and a span wrapper that records circuit breaker metadata (circuit name,
// state, outcome) around protected dependency calls.
//
// Example usage:
//
//	result, err := tracing.Traced(ctx, reg, "vector-store", timeout, op)
//
//	mux := http.NewServeMux()
//	handler := tracing.Middleware(mux)
package tracing
