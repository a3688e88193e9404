package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/logging"
)

const anthropicMaxTokens = 2048

// AnthropicConfig configures the Anthropic messages API.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Anthropic talks to the Anthropic messages API. The schema is given to the
// model as instructions and the JSON is pulled out of its text answer.
type Anthropic struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnthropic builds an Anthropic model.
func NewAnthropic(cfg AnthropicConfig, logger *zap.Logger) *Anthropic {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &Anthropic{
		client:  anthropic.NewClient(cfg.APIKey, opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logging.OrNop(logger).Named("llm.anthropic"),
	}
}

// Complete asks the model for a JSON document matching req.Schema.
func (m *Anthropic) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	ctx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()

	system := req.System
	if len(req.Schema.JSON) > 0 {
		system += "\n\nRespond with a single JSON object matching this JSON schema and nothing else:\n" + string(req.Schema.JSON)
	}
	prompt := req.Prompt

	start := time.Now()
	resp, err := m.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(m.model),
		MaxTokens: anthropicMaxTokens,
		System:    system,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		m.logger.Warn("completion failed",
			zap.String("schema", req.Schema.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return nil, fmt.Errorf("anthropic completion: %w", ErrEmptyResponse)
	}
	m.logger.Debug("completion done",
		zap.String("schema", req.Schema.Name),
		zap.Duration("elapsed", time.Since(start)))

	doc, err := ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}
	return json.RawMessage(doc), nil
}

func firstText(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}

var _ Model = (*Anthropic)(nil)
