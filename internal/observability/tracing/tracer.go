package tracing

import "go.opentelemetry.io/otel"

// tracer emits the spans for admin requests and guarded calls. It resolves
// through the globally registered provider, so embedding applications
// control where spans go.
var tracer = otel.Tracer("breakerkit")
