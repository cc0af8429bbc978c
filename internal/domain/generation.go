package domain

import "context"

// Generator produces a grounded answer from chat history and retrieved context.
// One implementation exists per LLM provider, selected at construction time.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// Summarizer condenses a chat history into a single standalone query.
type Summarizer interface {
	Summarize(ctx context.Context, history []Message) (string, error)
}

// GenerationRequest carries everything the generator needs to answer.
type GenerationRequest struct {
	History         []Message
	Documents       []ScoredCandidate
	SummarizedQuery string
	EnableReasoning bool
}

// GenerationResult is the generated answer, with step-by-step reasoning when
// the request asked for it and the provider returned a structured response.
type GenerationResult struct {
	Answer    string
	Reasoning string
}
