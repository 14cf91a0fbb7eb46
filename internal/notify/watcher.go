// Package notify publishes circuit state changes to interested receivers.
// The breaker library itself only logs transitions; this watcher polls the
// registry and turns observed changes into webhook events.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"breakerkit/pkg/breaker"
)

// EventType is the webhook event type for circuit state transitions.
const EventType = "breaker.state_changed"

// DefaultInterval is how often the watcher compares registry state.
const DefaultInterval = time.Second

// Sender delivers one event payload. *webhook.Sender satisfies this.
type Sender interface {
	Send(ctx context.Context, eventType string, data json.RawMessage) error
}

// Snapshotter yields the current state of every breaker. *breaker.Registry
// satisfies this.
type Snapshotter interface {
	Snapshots() []breaker.Snapshot
}

// StateChange is the JSON payload of a state change event.
type StateChange struct {
	Circuit             string    `json:"circuit"`
	From                string    `json:"from"`
	To                  string    `json:"to"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	ObservedAt          time.Time `json:"observed_at"`
}

// Watcher polls breaker snapshots and emits an event per state transition.
// Polling trades a small detection delay for keeping the breaker hot path
// free of notification work.
type Watcher struct {
	source   Snapshotter
	sender   Sender
	interval time.Duration
	last     map[string]string
}

// NewWatcher creates a Watcher over the given snapshot source. A
// non-positive interval falls back to DefaultInterval.
func NewWatcher(source Snapshotter, sender Sender, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		source:   source,
		sender:   sender,
		interval: interval,
		last:     make(map[string]string),
	}
}

// Run polls until ctx is canceled. The first poll only records baseline
// states; transitions are reported from the second poll on.
func (w *Watcher) Run(ctx context.Context) {
	w.CheckOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.CheckOnce(ctx)
		}
	}
}

// CheckOnce compares current breaker states against the previous poll and
// emits one event per observed transition.
func (w *Watcher) CheckOnce(ctx context.Context) {
	now := time.Now().UTC()

	for _, snap := range w.source.Snapshots() {
		prev, seen := w.last[snap.Name]
		w.last[snap.Name] = snap.State

		if !seen || prev == snap.State {
			continue
		}

		change := StateChange{
			Circuit:             snap.Name,
			From:                prev,
			To:                  snap.State,
			ConsecutiveFailures: snap.ConsecutiveFailures,
			ObservedAt:          now,
		}

		payload, err := json.Marshal(change)
		if err != nil {
			slog.ErrorContext(ctx, "failed to encode state change event",
				slog.String("circuit", snap.Name),
				slog.String("error", err.Error()))
			continue
		}

		if err := w.sender.Send(ctx, EventType, payload); err != nil {
			slog.WarnContext(ctx, "state change notification failed",
				slog.String("circuit", snap.Name),
				slog.String("to", snap.State),
				slog.String("error", err.Error()))
			continue
		}

		slog.InfoContext(ctx, "state change notification sent",
			slog.String("circuit", snap.Name),
			slog.String("from", prev),
			slog.String("to", snap.State))
	}
}
