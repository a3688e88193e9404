package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/logging"
)

// OpenAIConfig configures an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAI talks to any OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAI builds an OpenAI-compatible model.
func NewOpenAI(cfg OpenAIConfig, logger *zap.Logger) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logging.OrNop(logger).Named("llm.openai"),
	}
}

// Complete requests a JSON document constrained by req.Schema.
func (m *OpenAI) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	ctx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: 0.1,
	}
	if len(req.Schema.JSON) > 0 {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      req.Schema.JSON,
			},
		}
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		m.logger.Warn("completion failed",
			zap.String("schema", req.Schema.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai completion: %w", ErrEmptyResponse)
	}

	m.logger.Debug("completion done",
		zap.String("schema", req.Schema.Name),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	doc, err := ExtractJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	return json.RawMessage(doc), nil
}

var _ Model = (*OpenAI)(nil)
