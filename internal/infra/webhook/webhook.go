// Package webhook delivers JSON event notifications to external HTTP
// endpoints. Delivery runs through a circuit breaker per destination plus a
// token bucket rate limit, and transient failures are retried with
// exponential backoff. The breaker never retries on its own; retry here is
// the caller side of that contract.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"breakerkit/internal/resilience/retry"
	"breakerkit/pkg/breaker"
)

// Circuit is the breaker name used for webhook delivery.
const Circuit = "webhook"

// Config contains configuration for webhook delivery.
type Config struct {
	// URL is the destination endpoint.
	URL string

	// Timeout is the HTTP request timeout for a single delivery attempt.
	Timeout time.Duration

	// RequestsPerSecond is the sustained delivery rate. Zero means 1 req/s.
	RequestsPerSecond float64

	// Burst is the token bucket burst capacity. Zero means 1.
	Burst int
}

// Event is the payload delivered to the endpoint.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Sender delivers events to a single webhook endpoint.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	reg        *breaker.Registry
	retryCfg   retry.Config
}

// NewSender creates a Sender for the configured endpoint, registering its
// breaker in reg.
func NewSender(reg *breaker.Registry, config Config) (*Sender, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("webhook url cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 1.0
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	if _, err := reg.Configure(Circuit, breaker.WebhookConfig()); err != nil {
		return nil, err
	}

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		reg:        reg,
		retryCfg:   retry.WebhookConfig(),
	}, nil
}

// Send delivers the event, retrying transient failures with backoff. While
// the breaker is open the first attempt fails fast and no retries follow.
func (s *Sender) Send(ctx context.Context, eventType string, data json.RawMessage) error {
	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	deliverErr := retry.WithBackoff(ctx, s.retryCfg, func() error {
		return s.deliver(ctx, event.ID, payload)
	})
	if deliverErr != nil {
		return fmt.Errorf("webhook delivery failed: %w", deliverErr)
	}

	slog.InfoContext(ctx, "webhook delivered",
		slog.String("event_id", event.ID),
		slog.String("event_type", eventType))

	return nil
}

// deliver performs one rate-limited, breaker-guarded delivery attempt.
func (s *Sender) deliver(ctx context.Context, eventID string, payload []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	_, err := breaker.Execute(ctx, s.reg, Circuit, s.config.Timeout, func(ctx context.Context) (any, error) {
		return nil, s.post(ctx, payload)
	})
	if err != nil {
		slog.WarnContext(ctx, "webhook delivery attempt failed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
	}
	return err
}

func (s *Sender) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return nil
}
