// Package llm adapts hosted language models to a single JSON-returning call.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/config"
)

var (
	// ErrMissingCredential means the configured provider has no API key.
	ErrMissingCredential = errors.New("llm credential missing")
	// ErrEmptyResponse means the provider answered without any content.
	ErrEmptyResponse = errors.New("llm returned empty response")
	// ErrNoModel means a step that needs inference was built without a model.
	ErrNoModel = errors.New("no text inference provider is configured")
)

// Schema describes the JSON document the model must return.
type Schema struct {
	Name        string
	Description string
	JSON        json.RawMessage
}

// Request is a single structured completion.
type Request struct {
	System string
	Prompt string
	Schema Schema
}

// Model completes a prompt and returns the JSON document it produced.
type Model interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// New builds the model selected by cfg.Provider.
func New(cfg config.LLMConfig, logger *zap.Logger) (Model, error) {
	switch cfg.Provider {
	case "", "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrMissingCredential)
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
		}, logger), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrMissingCredential)
		}
		return NewAnthropic(AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// Decode runs req and unmarshals the returned document into T.
func Decode[T any](ctx context.Context, m Model, req Request) (T, error) {
	var out T
	raw, err := m.Complete(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("unmarshal %s response: %w", req.Schema.Name, err)
	}
	return out, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
