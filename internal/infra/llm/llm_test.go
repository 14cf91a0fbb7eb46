package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"

	"breakerkit/pkg/breaker"
)

func newRegistry(t *testing.T) *breaker.Registry {
	t.Helper()

	reg, err := breaker.NewRegistry(breaker.Config{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func TestClientFaultStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{400, true},
		{401, true},
		{404, true},
		{408, false}, // request timeout signals overload
		{422, true},
		{429, false}, // throttling signals overload
		{500, false},
		{503, false},
		{200, false},
	}

	for _, tt := range tests {
		if got := clientFaultStatus(tt.code); got != tt.want {
			t.Errorf("clientFaultStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestOpenAICallerFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"api error 401", &openai.APIError{HTTPStatusCode: 401}, true},
		{"api error 429", &openai.APIError{HTTPStatusCode: 429}, false},
		{"api error 500", &openai.APIError{HTTPStatusCode: 500}, false},
		{"request error 400", &openai.RequestError{HTTPStatusCode: 400}, true},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := openAICallerFault(tt.err); got != tt.want {
				t.Errorf("openAICallerFault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnthropicCallerFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid request", &anthropic.Error{StatusCode: 400}, true},
		{"rate limited", &anthropic.Error{StatusCode: 429}, false},
		{"overloaded", &anthropic.Error{StatusCode: 529}, false},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := anthropicCallerFault(tt.err); got != tt.want {
				t.Errorf("anthropicCallerFault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenAI_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "pong"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	reg := newRegistry(t)
	cfg := DefaultOpenAIConfig()
	cfg.BaseURL = server.URL

	client, err := NewOpenAI("test-key", reg, cfg)
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}

	got, err := client.Complete(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "pong" {
		t.Errorf("Complete() = %q, want %q", got, "pong")
	}

	b, exists := reg.Get(OpenAICircuit)
	if !exists {
		t.Fatal("expected openai breaker to be registered")
	}
	if snap := b.Snapshot(); snap.TotalSuccesses != 1 {
		t.Errorf("total successes = %d, want 1", snap.TotalSuccesses)
	}
}

func TestOpenAI_CompleteTripsOnServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}))
	defer server.Close()

	reg := newRegistry(t)

	cbCfg := breaker.ModelAPIConfig()
	cbCfg.ConsecutiveFailureThreshold = 2
	if _, err := reg.Configure(OpenAICircuit, cbCfg); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	cfg := DefaultOpenAIConfig()
	cfg.BaseURL = server.URL

	client, err := NewOpenAI("test-key", reg, cfg)
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.Complete(ctx, "ping"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	b, _ := reg.Get(OpenAICircuit)
	if b.State() != breaker.StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	_, err = client.Complete(ctx, "ping")
	if !errors.Is(err, breaker.ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
}

func TestOpenAI_ClientFaultDoesNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	}))
	defer server.Close()

	reg := newRegistry(t)

	cbCfg := breaker.ModelAPIConfig()
	cbCfg.ConsecutiveFailureThreshold = 1
	if _, err := reg.Configure(OpenAICircuit, cbCfg); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	cfg := DefaultOpenAIConfig()
	cfg.BaseURL = server.URL

	client, err := NewOpenAI("bad-key", reg, cfg)
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := client.Complete(context.Background(), "ping"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	b, _ := reg.Get(OpenAICircuit)
	if b.State() != breaker.StateClosed {
		t.Errorf("state = %s, want closed after excluded client faults", b.State())
	}
}

func TestNewOpenAI_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  OpenAIConfig
	}{
		{"empty model", OpenAIConfig{MaxTokens: 10, Timeout: time.Second}},
		{"zero max tokens", OpenAIConfig{Model: "gpt-4o-mini", Timeout: time.Second}},
		{"zero timeout", OpenAIConfig{Model: "gpt-4o-mini", MaxTokens: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewOpenAI("key", newRegistry(t), tt.cfg); err == nil {
				t.Error("expected configuration error")
			}
		})
	}
}

func TestAnthropic_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5-20250929",
			"content": [{"type": "text", "text": "pong"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	}))
	defer server.Close()

	reg := newRegistry(t)
	cfg := DefaultAnthropicConfig()
	cfg.BaseURL = server.URL

	client, err := NewAnthropicWithConfig("test-key", reg, cfg)
	if err != nil {
		t.Fatalf("NewAnthropicWithConfig() error = %v", err)
	}

	got, err := client.Complete(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "pong" {
		t.Errorf("Complete() = %q, want %q", got, "pong")
	}

	b, exists := reg.Get(AnthropicCircuit)
	if !exists {
		t.Fatal("expected anthropic breaker to be registered")
	}
	if snap := b.Snapshot(); snap.TotalSuccesses != 1 {
		t.Errorf("total successes = %d, want 1", snap.TotalSuccesses)
	}
}

func TestAnthropic_FailsFastWhenOpen(t *testing.T) {
	reg := newRegistry(t)

	client, err := NewAnthropic("test-key", reg)
	if err != nil {
		t.Fatalf("NewAnthropic() error = %v", err)
	}
	reg.GetOrCreate(AnthropicCircuit).ForceOpen()

	_, err = client.Complete(context.Background(), "ping")
	if !errors.Is(err, breaker.ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
}

func TestNewClients_RegisterCircuitsEagerly(t *testing.T) {
	reg := newRegistry(t)

	if _, err := NewAnthropic("test-key", reg); err != nil {
		t.Fatalf("NewAnthropic() error = %v", err)
	}
	if _, err := NewOpenAI("test-key", reg, DefaultOpenAIConfig()); err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}

	for _, circuit := range []string{AnthropicCircuit, OpenAICircuit} {
		if _, exists := reg.Get(circuit); !exists {
			t.Errorf("circuit %q should be registered before any completion runs", circuit)
		}
	}
}
