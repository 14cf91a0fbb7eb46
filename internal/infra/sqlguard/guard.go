// Package sqlguard wraps a database connection with circuit breaker
// protection so relational storage outages fail fast instead of piling up
// blocked queries.
package sqlguard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"breakerkit/pkg/breaker"
	pkgconfig "breakerkit/pkg/config"
)

// DefaultOpTimeout bounds a single guarded database operation.
const DefaultOpTimeout = 5 * time.Second

// Guard wraps a *sql.DB with a circuit breaker. When the database becomes
// unavailable or slow, queries are rejected immediately with an error
// wrapping breaker.ErrCircuitOpen instead of waiting on a dead connection
// pool.
type Guard struct {
	db        *sql.DB
	cb        *breaker.Breaker
	opTimeout time.Duration
}

// New creates a Guard named "database" with the database preset
// configuration, registering its breaker in reg.
func New(reg *breaker.Registry, db *sql.DB) (*Guard, error) {
	return NewWithConfig(reg, "database", db, breaker.DatabaseConfig(), DefaultOpTimeout)
}

// NewWithConfig creates a Guard with its own circuit name, breaker
// configuration, and per-operation timeout. The breaker is registered in
// reg so it shows up on the monitoring surface. A zero opTimeout falls
// back to DefaultOpTimeout. Distinct stores on the same database should
// use distinct names so one failing workload does not trip the other.
func NewWithConfig(reg *breaker.Registry, name string, db *sql.DB, cfg breaker.Config, opTimeout time.Duration) (*Guard, error) {
	cb, err := reg.Configure(name, cfg)
	if err != nil {
		return nil, err
	}
	if opTimeout == 0 {
		opTimeout = DefaultOpTimeout
	}
	if err := pkgconfig.ValidatePositiveDuration(opTimeout); err != nil {
		return nil, fmt.Errorf("operation timeout: %w", err)
	}
	return &Guard{db: db, cb: cb, opTimeout: opTimeout}, nil
}

// excludeRowErrors keeps result-shape errors from counting against the
// breaker. A query that finds no rows is a business outcome, not a sign
// the database is down.
func excludeRowErrors(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// QueryContext executes a query with circuit breaker protection.
// If the circuit is open, it returns immediately without hitting the database.
func (g *Guard) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	result, err := g.cb.ProtectExcluding(ctx, g.opTimeout, excludeRowErrors, func(ctx context.Context) (any, error) {
		return g.db.QueryContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*sql.Rows), nil
}

// ExecContext executes a statement with circuit breaker protection.
func (g *Guard) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := g.cb.ProtectExcluding(ctx, g.opTimeout, excludeRowErrors, func(ctx context.Context) (any, error) {
		return g.db.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(sql.Result), nil
}

// PingContext verifies the connection with circuit breaker protection.
// It is the natural probe operation for recovery checks.
func (g *Guard) PingContext(ctx context.Context) error {
	_, err := g.cb.Protect(ctx, g.opTimeout, func(ctx context.Context) (any, error) {
		return nil, g.db.PingContext(ctx)
	})
	return err
}

// QueryRowContext executes a single-row query. sql.Row defers its error
// until Scan is called, so the breaker cannot observe the outcome and the
// call bypasses protection entirely.
func (g *Guard) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return g.db.QueryRowContext(ctx, query, args...)
}

// Breaker returns the guard's circuit breaker for monitoring and manual
// control.
func (g *Guard) Breaker() *breaker.Breaker {
	return g.cb
}

// DB returns the underlying database connection. Calls made through it
// bypass circuit breaker protection.
func (g *Guard) DB() *sql.DB {
	return g.db
}
