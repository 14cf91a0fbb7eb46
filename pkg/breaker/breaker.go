// Package breaker provides a per-dependency circuit breaker with
// sliding-window failure and latency statistics.
//
// This package implements the circuit breaker pattern using a three-state
// machine (closed, open, half-open), a bounded window of recent call
// outcomes for rate-based trip decisions, a named registry for managing
// many independent breakers, and a generic call adapter. It is designed to
// be reusable across different contexts (HTTP clients, database pools,
// model-inference APIs, background jobs).
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Operation is a deferred unit of work executed through a breaker.
//
// It receives a context bounded by the call timeout and returns a result or
// an error. Blocking and non-blocking call sites both reduce to this shape;
// the breaker never needs to know what the operation does.
type Operation func(ctx context.Context) (any, error)

// Breaker is a circuit breaker guarding one external dependency.
//
// A Breaker decides, for each call, whether to execute it or fail fast, and
// updates its state from the outcomes it observes. All mutable state is
// guarded by a single mutex; the protected operation itself always executes
// outside the lock, so bookkeeping never blocks on slow I/O.
//
// Automatic transitions follow closed->open, open->half-open,
// half-open->closed and half-open->open only. Manual controls (ForceOpen,
// ForceClose, Reset) bypass the automatic logic and may force any edge.
type Breaker struct {
	name string
	cfg  Config

	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	lastFailure          time.Time
	lastStateChange      time.Time
	totalCalls           uint64
	totalSuccesses       uint64
	totalFailures        uint64
	window               *slidingWindow
}

// New creates a circuit breaker for the named dependency.
//
// Zero-value config fields are replaced with defaults; out-of-range values
// (negative timeouts, rate thresholds outside [0, 1]) are rejected with a
// ConfigError.
func New(name string, cfg Config) (*Breaker, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Breaker{
		name:            name,
		cfg:             cfg,
		state:           StateClosed,
		lastStateChange: cfg.Clock.Now(),
		window:          newSlidingWindow(cfg.WindowSize),
	}

	cfg.Metrics.RecordState(name, b.state)

	return b, nil
}

// Name returns the breaker's dependency name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen returns true if the circuit is currently open.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

// Protect executes op through the breaker, bounded by timeout.
//
// If the circuit is open and the open timeout has not elapsed, op is never
// invoked and an error wrapping ErrCircuitOpen is returned. If the open
// timeout has elapsed the circuit transitions to half-open and op runs as a
// probe. A timeout expiry is recorded as a failure and returned as an error
// wrapping ErrOperationTimeout. Any other error from op propagates to the
// caller unchanged and is recorded as a failure.
//
// A timeout of zero or less means the call is bounded only by ctx.
//
// Multiple concurrent callers may all observe the half-open state and all
// be allowed to probe. This is intentional: a single failing probe reopens
// the circuit and successful probes accumulate toward the close threshold,
// so restricting probing to one in-flight call buys nothing but complexity.
func (b *Breaker) Protect(ctx context.Context, timeout time.Duration, op Operation) (any, error) {
	return b.ProtectExcluding(ctx, timeout, nil, op)
}

// ProtectExcluding behaves like Protect, but errors matched by exclude
// bypass failure accounting entirely while still propagating to the caller.
//
// Exclusion is a pure pass-through: no counters move, no window record is
// written, and the breaker state never changes because of an excluded error.
func (b *Breaker) ProtectExcluding(ctx context.Context, timeout time.Duration, exclude ExcludeFunc, op Operation) (any, error) {
	if err := b.admit(); err != nil {
		return nil, err
	}

	// Execute outside the lock so a slow dependency never blocks
	// bookkeeping for other callers of this breaker.
	start := b.cfg.Clock.Now()
	result, err := b.execute(ctx, timeout, op)
	elapsed := b.cfg.Clock.Now().Sub(start)

	if err != nil {
		if exclude != nil && exclude(err) {
			return result, err
		}
		b.onFailure(elapsed)
		return nil, err
	}

	b.onSuccess(elapsed)
	return result, nil
}

// admit decides whether the call may proceed, transitioning an open circuit
// to half-open when the open timeout has elapsed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}

	now := b.cfg.Clock.Now()
	if now.Sub(b.lastStateChange) < b.cfg.OpenTimeout {
		b.cfg.Metrics.RecordRejection(b.name)
		return openError(b.name)
	}

	b.transitionLocked(StateHalfOpen, now)
	b.consecutiveSuccesses = 0

	return nil
}

// execute runs op bounded by timeout. The operation runs in its own
// goroutine so an expired deadline abandons it; a result produced after the
// timeout is discarded.
func (b *Breaker) execute(ctx context.Context, timeout time.Duration, op Operation) (any, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type callResult struct {
		value any
		err   error
	}

	done := make(chan callResult, 1)
	go func() {
		value, err := op(ctx)
		done <- callResult{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, timeoutError(b.name)
		}
		return nil, ctx.Err()
	}
}

// onSuccess records a successful call and runs the post-call transition
// logic for the success path.
func (b *Breaker) onSuccess(elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.cfg.Clock.Now()
	b.window.record(callRecord{timestamp: now, duration: elapsed, failure: false})
	b.totalCalls++
	b.totalSuccesses++
	b.consecutiveSuccesses++
	b.consecutiveFailures = 0

	b.cfg.Metrics.RecordCall(b.name, OutcomeSuccess, elapsed)
	b.cfg.Metrics.RecordWindowSize(b.name, b.window.size())

	switch b.state {
	case StateHalfOpen:
		if b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			b.transitionLocked(StateClosed, now)
			b.consecutiveFailures = 0
			b.consecutiveSuccesses = 0
		}
	case StateClosed:
		// A slow dependency can degrade without a single hard failure;
		// the slow-call rate catches that on the success path.
		if b.slowCallRateTrippedLocked() {
			b.transitionLocked(StateOpen, now)
		}
	}
}

// onFailure records a failed call and runs the post-call transition logic
// for the failure path.
func (b *Breaker) onFailure(elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.cfg.Clock.Now()
	b.window.record(callRecord{timestamp: now, duration: elapsed, failure: true})
	b.totalCalls++
	b.totalFailures++
	b.consecutiveFailures++
	b.consecutiveSuccesses = 0
	b.lastFailure = now

	b.cfg.Metrics.RecordCall(b.name, OutcomeFailure, elapsed)
	b.cfg.Metrics.RecordWindowSize(b.name, b.window.size())

	switch b.state {
	case StateHalfOpen:
		// Any failed probe immediately reopens the circuit.
		b.transitionLocked(StateOpen, now)
		b.consecutiveFailures = 0
		b.consecutiveSuccesses = 0
	case StateClosed:
		if b.consecutiveFailures >= b.cfg.ConsecutiveFailureThreshold || b.failureRateTrippedLocked() {
			b.transitionLocked(StateOpen, now)
		}
	}
}

// failureRateTrippedLocked reports whether the failure-rate trip condition
// is met. Rate conditions are skipped until the window holds at least
// MinimumCalls records.
func (b *Breaker) failureRateTrippedLocked() bool {
	if b.window.size() < b.cfg.MinimumCalls {
		return false
	}
	return b.window.failureRate() >= b.cfg.FailureRateThreshold
}

// slowCallRateTrippedLocked reports whether the slow-call-rate trip
// condition is met, subject to the same minimum sample size.
func (b *Breaker) slowCallRateTrippedLocked() bool {
	if b.window.size() < b.cfg.MinimumCalls {
		return false
	}
	return b.window.slowCallRate(b.cfg.SlowCallDuration) >= b.cfg.SlowCallRateThreshold
}

// transitionLocked moves the breaker to the given state, recording the
// change time and emitting the state-change log and metric.
// The caller must hold b.mu.
func (b *Breaker) transitionLocked(to State, now time.Time) {
	from := b.state
	b.state = to
	b.lastStateChange = now

	b.cfg.Metrics.RecordState(b.name, to)

	slog.Warn("circuit breaker state changed",
		slog.String("circuit", b.name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("consecutive_failures", b.consecutiveFailures))
}

// ForceOpen opens the circuit immediately, regardless of recent history.
// Subsequent calls fail fast until the open timeout elapses or the breaker
// is manually closed or reset.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		return
	}
	b.transitionLocked(StateOpen, b.cfg.Clock.Now())
}

// ForceClose closes the circuit immediately and resets the consecutive
// counters. Cumulative totals and window history are kept.
func (b *Breaker) ForceClose() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	if b.state != StateClosed {
		b.transitionLocked(StateClosed, b.cfg.Clock.Now())
	}
}

// Reset returns the breaker to the closed state with all counters at zero
// and the window history cleared. Useful for test teardown or manual
// administrative recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.totalCalls = 0
	b.totalSuccesses = 0
	b.totalFailures = 0
	b.lastFailure = time.Time{}
	b.window.reset()

	b.cfg.Metrics.RecordWindowSize(b.name, 0)

	if b.state != StateClosed {
		b.transitionLocked(StateClosed, b.cfg.Clock.Now())
	}
}
