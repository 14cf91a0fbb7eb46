package breaker

import (
	"context"
	"time"
)

// callOptions holds per-call settings attached by CallOption values.
type callOptions struct {
	exclude ExcludeFunc
	config  *Config
}

// CallOption customizes a single adapter call or a wrapped operation.
type CallOption func(*callOptions)

// WithExclude attaches an exclusion predicate. Errors it matches propagate
// to the caller but never count as breaker failures.
func WithExclude(exclude ExcludeFunc) CallOption {
	return func(o *callOptions) {
		o.exclude = exclude
	}
}

// WithConfig supplies the configuration used if the named breaker does not
// exist yet. It has no effect on an already-created breaker.
func WithConfig(cfg Config) CallOption {
	return func(o *callOptions) {
		o.config = &cfg
	}
}

// Execute routes op through the named breaker from the registry, bounded
// by timeout. The breaker is created on first use.
//
// This is the untyped form of the adapter, for heterogeneous call sites;
// prefer Do for typed results.
func Execute(ctx context.Context, reg *Registry, name string, timeout time.Duration, op Operation, opts ...CallOption) (any, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	b, err := resolve(reg, name, &o)
	if err != nil {
		return nil, err
	}

	return b.ProtectExcluding(ctx, timeout, o.exclude, op)
}

// Do routes a typed operation through the named breaker from the registry,
// bounded by timeout. The breaker is created on first use.
//
// On failure the zero value of T is returned along with the error: the
// original operation error, an error wrapping ErrOperationTimeout, or an
// error wrapping ErrCircuitOpen when the call was rejected without
// invoking op.
func Do[T any](ctx context.Context, reg *Registry, name string, timeout time.Duration, op func(ctx context.Context) (T, error), opts ...CallOption) (T, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	var zero T

	b, err := resolve(reg, name, &o)
	if err != nil {
		return zero, err
	}

	result, err := b.ProtectExcluding(ctx, timeout, o.exclude, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		// Excluded errors may carry a partial result through unchanged.
		if typed, ok := result.(T); ok {
			return typed, err
		}
		return zero, err
	}

	return result.(T), nil
}

// Wrap returns a callable pre-bound to the named breaker, so call sites can
// attach protection once and invoke the wrapped operation repeatedly.
func Wrap[T any](reg *Registry, name string, timeout time.Duration, op func(ctx context.Context) (T, error), opts ...CallOption) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, reg, name, timeout, op, opts...)
	}
}

// resolve looks up or creates the named breaker, honoring a per-call
// config override for first creation.
func resolve(reg *Registry, name string, o *callOptions) (*Breaker, error) {
	if o.config != nil {
		return reg.Configure(name, *o.config)
	}
	return reg.GetOrCreate(name), nil
}
