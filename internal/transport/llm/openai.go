package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/domain"
	"github.com/kailas-cloud/chatdex/internal/metrics"
)

// GroqBaseURL is the OpenAI-compatible endpoint Groq exposes.
const GroqBaseURL = "https://api.groq.com/openai/v1"

const generationTemperature = 0.7

// Config holds the settings for one chat-completion provider.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// OpenAIGenerator produces grounded answers through any OpenAI-compatible
// chat completion API. Groq is served by the same implementation with its
// base URL swapped in.
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// NewOpenAIGenerator creates a generator for an OpenAI-compatible provider.
func NewOpenAIGenerator(cfg *Config) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Generate implements domain.Generator. The model is offered the response
// tool; a plain text completion is accepted as fallback.
func (g *OpenAIGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	prompt := BuildGenerationPrompt(req)

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: generationTemperature,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        responseToolName,
				Description: responseToolDescription,
				Parameters:  responseToolSchema(),
			},
		}},
	})

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("chat completion: %w: %w", domain.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty completion response: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())

	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name != responseToolName {
			continue
		}
		result, err := parseToolArguments([]byte(call.Function.Arguments))
		if err != nil {
			g.logger.Warn("Malformed tool call arguments, falling back to content",
				zap.String("provider", g.provider), zap.Error(err))
			break
		}
		return result, nil
	}

	if msg.Content == "" {
		return domain.GenerationResult{}, fmt.Errorf("completion without tool call or content: %w", domain.ErrGenerationFailed)
	}
	return parsePlainContent(msg.Content), nil
}
