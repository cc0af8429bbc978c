package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

const summarizationTemperature = 0.3

// Summarizer condenses a chat history into one standalone query via an
// OpenAI-compatible chat completion. Cheaper models than the answering one
// are usually configured here.
type Summarizer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewSummarizer creates a query summarizer.
func NewSummarizer(cfg *Config) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Summarizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Summarize implements domain.Summarizer. An empty history yields an empty
// summary without calling the provider.
func (s *Summarizer) Summarize(ctx context.Context, history []domain.Message) (string, error) {
	if len(history) == 0 {
		return "", nil
	}

	prompt := BuildSummarizationPrompt(history)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: summarizationTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("summarize query: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarize query: empty response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
