package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"breakerkit/pkg/breaker"
)

// OpenAICircuit is the breaker name used for OpenAI API calls.
const OpenAICircuit = "openai"

// OpenAIConfig holds configuration parameters for the OpenAI client.
type OpenAIConfig struct {
	// Model is the API model identifier to use for completions.
	Model string

	// MaxTokens is the maximum number of tokens for the API response.
	MaxTokens int

	// Timeout is the maximum duration for a single completion call.
	Timeout time.Duration

	// BaseURL overrides the API endpoint. Empty means the production API.
	BaseURL string
}

// Validate checks the configuration for usable values.
func (c *OpenAIConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// DefaultOpenAIConfig returns the default OpenAI client configuration.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:     openai.GPT4oMini,
		MaxTokens: 1024,
		Timeout:   60 * time.Second,
	}
}

// OpenAI implements Completer using OpenAI's chat completion API, with
// every call routed through the shared registry's "openai" breaker.
type OpenAI struct {
	client *openai.Client
	reg    *breaker.Registry
	config OpenAIConfig
}

// NewOpenAI creates an OpenAI client, or an error when the configuration is
// invalid. The "openai" breaker is registered immediately so it shows up on
// the admin surface before the first completion runs.
func NewOpenAI(apiKey string, reg *breaker.Registry, config OpenAIConfig) (*OpenAI, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid openai configuration: %w", err)
	}
	if _, err := reg.Configure(OpenAICircuit, breaker.ModelAPIConfig()); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	slog.Info("initialized openai client",
		slog.String("model", config.Model),
		slog.Int("max_tokens", config.MaxTokens))

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		reg:    reg,
		config: config,
	}, nil
}

// Complete generates a completion for the prompt. While the breaker is open
// it returns an error wrapping breaker.ErrCircuitOpen without contacting the
// API. Client-fault responses (4xx other than 408/429) propagate to the
// caller but never count as breaker failures.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	return breaker.Do(ctx, o.reg, OpenAICircuit, o.config.Timeout, o.complete(prompt),
		breaker.WithConfig(breaker.ModelAPIConfig()),
		breaker.WithExclude(openAICallerFault))
}

func (o *OpenAI) complete(prompt string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		start := time.Now()
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     o.config.Model,
			MaxTokens: o.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		duration := time.Since(start)

		if err != nil {
			slog.ErrorContext(ctx, "openai completion failed",
				slog.Duration("duration", duration),
				slog.String("error", err.Error()))
			return "", fmt.Errorf("openai api error: %w", err)
		}

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("openai api returned empty response")
		}

		slog.InfoContext(ctx, "openai completion finished",
			slog.Int("completion_length", len(resp.Choices[0].Message.Content)),
			slog.Duration("duration", duration))

		return resp.Choices[0].Message.Content, nil
	}
}

// openAICallerFault reports whether the error is a client-side API fault.
func openAICallerFault(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return clientFaultStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return clientFaultStatus(reqErr.HTTPStatusCode)
	}

	return false
}
