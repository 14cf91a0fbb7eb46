package tracing

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"breakerkit/pkg/breaker"
)

// Traced executes op through the named breaker with a client span around
// the call.
//
// The span records the circuit name, the breaker state observed after the
// call, and whether the call was rejected by an open circuit. The breaker's
// error semantics are unchanged; the span is purely observational.
func Traced(ctx context.Context, reg *breaker.Registry, name string, timeout time.Duration, op breaker.Operation, opts ...breaker.CallOption) (any, error) {
	ctx, span := tracer.Start(ctx, "breaker.protect "+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("circuit.name", name)),
	)
	defer span.End()

	result, err := breaker.Execute(ctx, reg, name, timeout, op, opts...)

	if b, exists := reg.Get(name); exists {
		span.SetAttributes(attribute.String("circuit.state", b.State().String()))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.Bool("circuit.rejected", errors.Is(err, breaker.ErrCircuitOpen)),
			attribute.Bool("circuit.timeout", errors.Is(err, breaker.ErrOperationTimeout)),
		)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}
