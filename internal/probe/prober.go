// Package probe actively checks dependencies behind open circuit breakers.
// Passive recovery needs caller traffic to trigger the half-open probe; for
// low-traffic dependencies that can take a long time. The prober runs
// health checks on a cron schedule and force-closes a breaker as soon as
// its dependency answers again.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"breakerkit/pkg/breaker"
)

// Func checks one dependency directly, bypassing its breaker. A nil return
// means the dependency is healthy.
type Func func(ctx context.Context) error

// Config controls the probe schedule and execution bounds.
type Config struct {
	// Schedule is the cron expression for probe runs.
	// Default: every minute.
	Schedule string

	// Timezone is the IANA timezone name for the schedule. Default: UTC.
	Timezone string

	// Timeout bounds a single probe function. Default: 5 seconds.
	Timeout time.Duration

	// MaxConcurrent limits how many probes run at once. Default: 4.
	MaxConcurrent int
}

func (c Config) withDefaults() Config {
	if c.Schedule == "" {
		c.Schedule = "* * * * *"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	return c
}

// Prober periodically probes dependencies whose breakers are open and
// force-closes a breaker when its dependency recovers.
type Prober struct {
	reg    *breaker.Registry
	config Config
	cron   *cron.Cron

	mu     sync.RWMutex
	probes map[string]Func
}

// New creates a Prober against the given registry.
func New(reg *breaker.Registry, config Config) (*Prober, error) {
	config = config.withDefaults()

	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid probe timezone %q: %w", config.Timezone, err)
	}

	return &Prober{
		reg:    reg,
		config: config,
		cron:   cron.New(cron.WithLocation(loc)),
		probes: make(map[string]Func),
	}, nil
}

// Register attaches a probe function to a circuit name. Breakers without a
// registered probe recover only through caller traffic.
func (p *Prober) Register(circuit string, fn Func) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[circuit] = fn
}

// Start schedules periodic probe runs. It returns an error when the cron
// expression does not parse.
func (p *Prober) Start() error {
	_, err := p.cron.AddFunc(p.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout*2)
		defer cancel()
		p.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", p.config.Schedule, err)
	}

	p.cron.Start()
	slog.Info("prober started",
		slog.String("schedule", p.config.Schedule),
		slog.String("timezone", p.config.Timezone))

	return nil
}

// Stop stops the scheduler and waits for a running probe cycle to finish.
func (p *Prober) Stop() {
	<-p.cron.Stop().Done()
}

// RunOnce probes every open breaker that has a registered probe function.
// A successful probe force-closes the breaker; a failed probe leaves it
// open for the next cycle.
func (p *Prober) RunOnce(ctx context.Context) {
	open := p.reg.ListOpen()
	if len(open) == 0 {
		return
	}

	slog.InfoContext(ctx, "probing open circuits", slog.Any("circuits", open))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.config.MaxConcurrent)

	for _, name := range open {
		p.mu.RLock()
		fn, registered := p.probes[name]
		p.mu.RUnlock()

		if !registered {
			slog.DebugContext(ctx, "no probe registered for open circuit",
				slog.String("circuit", name))
			continue
		}

		eg.Go(func() error {
			p.probeOne(egCtx, name, fn)
			return nil
		})
	}

	_ = eg.Wait()
}

func (p *Prober) probeOne(ctx context.Context, name string, fn Func) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "dependency probe failed",
			slog.String("circuit", name),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		return
	}

	b, exists := p.reg.Get(name)
	if !exists || !b.IsOpen() {
		return
	}

	b.ForceClose()
	slog.InfoContext(ctx, "dependency recovered, circuit closed by probe",
		slog.String("circuit", name),
		slog.Duration("elapsed", elapsed))
}
