package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/domain"
	"github.com/kailas-cloud/chatdex/internal/metrics"
)

const anthropicMaxTokens = 1024

// AnthropicGenerator produces grounded answers through the Anthropic
// Messages API.
type AnthropicGenerator struct {
	client   *anthropic.Client
	model    string
	provider string
	logger   *zap.Logger
}

// NewAnthropicGenerator creates a generator backed by the Anthropic API.
func NewAnthropicGenerator(cfg *Config) *AnthropicGenerator {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicGenerator{
		client:   anthropic.NewClient(cfg.APIKey, opts...),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	prompt := BuildGenerationPrompt(req)

	start := time.Now()

	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(g.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: anthropicMaxTokens,
		Tools: []anthropic.ToolDefinition{{
			Name:        responseToolName,
			Description: responseToolDescription,
			InputSchema: responseToolSchema(),
		}},
	})

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("create messages: %w: %w", domain.ErrGenerationFailed, err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())

	for _, content := range resp.Content {
		if content.Type != anthropic.MessagesContentTypeToolUse || content.MessageContentToolUse == nil {
			continue
		}
		if content.MessageContentToolUse.Name != responseToolName {
			continue
		}
		result, err := parseToolArguments(content.MessageContentToolUse.Input)
		if err != nil {
			g.logger.Warn("Malformed tool use input, falling back to text",
				zap.String("provider", g.provider), zap.Error(err))
			break
		}
		return result, nil
	}

	for _, content := range resp.Content {
		if content.Text != nil && *content.Text != "" {
			return parsePlainContent(*content.Text), nil
		}
	}

	return domain.GenerationResult{}, fmt.Errorf("message without tool use or text: %w", domain.ErrGenerationFailed)
}
