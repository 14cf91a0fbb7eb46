// Package llm provides circuit breaker protected clients for hosted model
// inference APIs. Each provider routes its calls through a named breaker so
// a provider outage fails fast instead of stalling every caller on a
// 60-second timeout.
package llm

import "context"

// Completer generates a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// clientFaultStatus reports whether an HTTP status indicates a problem with
// the request rather than the provider. Such errors must not count against
// the breaker: a malformed prompt or bad API key says nothing about
// provider health. 408 and 429 stay in because timeouts and throttling are
// exactly the overload signals the breaker exists to react to.
func clientFaultStatus(code int) bool {
	return code >= 400 && code < 500 && code != 408 && code != 429
}
