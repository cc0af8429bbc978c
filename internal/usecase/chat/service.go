// Package chat orchestrates one conversational turn: conversation state,
// query summarization, context retrieval and grounded answer generation.
// Retrieval and summarization degrade gracefully; only generation failure is
// surfaced to the caller, and even then as a failsafe answer rather than an
// error.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/domain"
	"github.com/kailas-cloud/chatdex/internal/logger"
)

// MaxQueryLength bounds a single user query.
const MaxQueryLength = 10000

// failsafeAnswer is returned when the generation provider fails.
const failsafeAnswer = "An error occurred while generating the response!"

// Request is one user turn.
type Request struct {
	ConversationID  string
	Query           string
	EnableReasoning bool
}

// Evaluations carries the retrieval quality statistics attached to a turn.
// Pointers are nil when the corresponding statistic could not be computed.
type Evaluations struct {
	MeanInterDocSimilarity   *float64 `json:"retrieved_examples_mean_similarity"`
	MedianInterDocSimilarity *float64 `json:"retrieved_examples_median_similarity"`
	MeanQuerySimilarity      *float64 `json:"query_mean_similarity"`
	MedianQuerySimilarity    *float64 `json:"query_median_similarity"`
}

// Result is the outcome of one processed turn.
type Result struct {
	ConversationID  string
	Answer          string
	Reasoning       string
	SummarizedQuery string
	Documents       []domain.ScoredCandidate
	Evaluations     Evaluations
	Success         bool
}

// Service implements the conversational pipeline.
type Service struct {
	retriever     Retriever
	generator     domain.Generator
	summarizer    domain.Summarizer
	conversations Conversations
	collection    string
	topK          int
}

// New creates the chat service.
func New(
	retriever Retriever,
	generator domain.Generator,
	summarizer domain.Summarizer,
	conversations Conversations,
	collection string,
	topK int,
) *Service {
	return &Service{
		retriever:     retriever,
		generator:     generator,
		summarizer:    summarizer,
		conversations: conversations,
		collection:    collection,
		topK:          topK,
	}
}

// ProcessChat runs one turn. A missing conversation ID starts a new
// conversation; an unknown one fails with domain.ErrConversationNotFound.
func (s *Service) ProcessChat(ctx context.Context, req Request) (Result, error) {
	log := logger.FromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Result{}, domain.ErrEmptyQuery
	}
	if len(query) > MaxQueryLength {
		return Result{}, fmt.Errorf("%w: %d characters (max %d)", domain.ErrQueryTooLong, len(query), MaxQueryLength)
	}

	conv, err := s.loadOrCreate(ctx, req.ConversationID)
	if err != nil {
		return Result{}, err
	}
	conv.Messages = append(conv.Messages, domain.Message{Role: domain.RoleUser, Content: query})

	summary := s.summarize(ctx, conv.Messages, query)

	retrieval, err := s.retriever.Retrieve(ctx, s.collection, summary, s.topK)
	if err != nil {
		// Degraded turn: the generator answers from chat history alone and
		// the grounding instructions force a refusal when that is not enough.
		log.Warn("retrieval degraded, generating without context",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		retrieval = domain.RetrievalResult{}
	}

	result := Result{
		ConversationID:  conv.ID,
		SummarizedQuery: summary,
		Documents:       retrieval.Candidates,
		Evaluations: Evaluations{
			MeanInterDocSimilarity:   retrieval.MeanInterDocSimilarity,
			MedianInterDocSimilarity: retrieval.MedianInterDocSimilarity,
			MeanQuerySimilarity:      retrieval.MeanQuerySimilarity,
			MedianQuerySimilarity:    retrieval.MedianQuerySimilarity,
		},
	}

	gen, err := s.generator.Generate(ctx, domain.GenerationRequest{
		History:         conv.Messages,
		Documents:       retrieval.Candidates,
		SummarizedQuery: summary,
		EnableReasoning: req.EnableReasoning,
	})
	if err != nil {
		log.Error("answer generation failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		result.Answer = failsafeAnswer
		if req.EnableReasoning {
			result.Reasoning = fmt.Sprintf("An error occurred while generating the response: %v", err)
		}
	} else {
		result.Answer = gen.Answer
		if req.EnableReasoning {
			result.Reasoning = gen.Reasoning
		}
		result.Success = true
	}

	conv.Messages = append(conv.Messages, domain.Message{Role: domain.RoleAssistant, Content: result.Answer})
	if err := s.conversations.Save(ctx, conv); err != nil {
		// The user still gets the answer; only persistence of this turn is lost.
		log.Error("failed to persist conversation",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	return result, nil
}

func (s *Service) loadOrCreate(ctx context.Context, id string) (domain.Conversation, error) {
	if id == "" {
		return domain.Conversation{ID: uuid.NewString()}, nil
	}
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("load conversation: %w", err)
	}
	return conv, nil
}

// summarize condenses the history into a standalone query, falling back to
// the raw user query when the summarizer fails or returns nothing.
func (s *Service) summarize(ctx context.Context, history []domain.Message, query string) string {
	log := logger.FromContext(ctx)

	summary, err := s.summarizer.Summarize(ctx, history)
	if err != nil {
		log.Warn("query summarization failed, using raw query", zap.Error(err))
		return query
	}
	if strings.TrimSpace(summary) == "" {
		return query
	}
	return strings.TrimSpace(summary)
}
