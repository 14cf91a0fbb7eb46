// Package observability provides production-grade observability infrastructure
// including structured logging and OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Request tracing across service boundaries
//   - Structured logging with context propagation
//   - Span-level visibility into protected dependency calls
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - tracing: OpenTelemetry tracing integration for circuit-guarded calls
//
// Example usage:
//
//	import "breakerkit/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//	}
package observability
