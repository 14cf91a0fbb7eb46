package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"breakerkit/pkg/breaker"
)

// AnthropicCircuit is the breaker name used for Anthropic API calls.
const AnthropicCircuit = "anthropic"

// AnthropicConfig holds configuration parameters for the Anthropic client.
type AnthropicConfig struct {
	// Model is the API model identifier to use for completions.
	Model string

	// MaxTokens is the maximum number of tokens for the API response.
	MaxTokens int

	// Timeout is the maximum duration for a single completion call.
	Timeout time.Duration

	// BaseURL overrides the API endpoint. Empty means the production API.
	BaseURL string
}

// DefaultAnthropicConfig returns the default Anthropic client configuration.
func DefaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{
		Model:     string(anthropic.ModelClaudeSonnet4_5_20250929),
		MaxTokens: 1024,
		Timeout:   60 * time.Second,
	}
}

// Anthropic implements Completer using Anthropic's Messages API, with every
// call routed through the shared registry's "anthropic" breaker.
type Anthropic struct {
	client anthropic.Client
	reg    *breaker.Registry
	config AnthropicConfig
}

// NewAnthropic creates an Anthropic client with default configuration.
func NewAnthropic(apiKey string, reg *breaker.Registry) (*Anthropic, error) {
	return NewAnthropicWithConfig(apiKey, reg, DefaultAnthropicConfig())
}

// NewAnthropicWithConfig creates an Anthropic client with custom
// configuration. The "anthropic" breaker is registered immediately so it
// shows up on the admin surface before the first completion runs.
func NewAnthropicWithConfig(apiKey string, reg *breaker.Registry, config AnthropicConfig) (*Anthropic, error) {
	if _, err := reg.Configure(AnthropicCircuit, breaker.ModelAPIConfig()); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	slog.Info("initialized anthropic client",
		slog.String("model", config.Model),
		slog.Int("max_tokens", config.MaxTokens))

	return &Anthropic{
		client: anthropic.NewClient(opts...),
		reg:    reg,
		config: config,
	}, nil
}

// Complete generates a completion for the prompt. While the breaker is open
// it returns an error wrapping breaker.ErrCircuitOpen without contacting the
// API. Client-fault responses (4xx other than 408/429) propagate to the
// caller but never count as breaker failures.
func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	return breaker.Do(ctx, a.reg, AnthropicCircuit, a.config.Timeout, a.complete(prompt),
		breaker.WithConfig(breaker.ModelAPIConfig()),
		breaker.WithExclude(anthropicCallerFault))
}

func (a *Anthropic) complete(prompt string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		requestID := uuid.New().String()

		slog.InfoContext(ctx, "starting anthropic completion",
			slog.String("request_id", requestID),
			slog.String("model", a.config.Model),
			slog.Int("prompt_length", len(prompt)))

		start := time.Now()
		message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.config.Model),
			MaxTokens: int64(a.config.MaxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(prompt),
				),
			},
		})
		duration := time.Since(start)

		if err != nil {
			slog.ErrorContext(ctx, "anthropic completion failed",
				slog.String("request_id", requestID),
				slog.Duration("duration", duration),
				slog.String("error", err.Error()))
			return "", fmt.Errorf("anthropic api error: %w", err)
		}

		if len(message.Content) == 0 {
			return "", fmt.Errorf("anthropic api returned empty response")
		}

		textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
		if !ok {
			return "", fmt.Errorf("anthropic api returned unexpected response type")
		}

		slog.InfoContext(ctx, "anthropic completion finished",
			slog.String("request_id", requestID),
			slog.Int("completion_length", len(textBlock.Text)),
			slog.Duration("duration", duration))

		return textBlock.Text, nil
	}
}

// anthropicCallerFault reports whether the error is a client-side API fault.
func anthropicCallerFault(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return clientFaultStatus(apiErr.StatusCode)
	}
	return false
}
