// Package requestid assigns each admin request a correlation ID so a
// manual breaker control (force-open, reset) can be traced from the
// response header back through the request log.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the request and response header carrying the ID.
const Header = "X-Request-ID"

// ctxKey is unexported so only this package can place the ID in a context.
type ctxKey struct{}

// FromContext returns the request ID stored in ctx, or "" when absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithRequestID returns a context carrying the given ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Middleware propagates an incoming X-Request-ID or mints a UUID when the
// client sent none. The ID is echoed on the response and stored in the
// request context for the logging middleware.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(Header, id)

		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}
