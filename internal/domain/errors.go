package domain

import "errors"

var (
	// ErrEmbeddingUnavailable signals that the embedding provider failed to load or encode.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrIndexUnavailable signals that the vector index is unreachable.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrCollectionNotFound signals a missing index collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrConversationNotFound signals a missing conversation.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrEmptyQuery signals an empty or whitespace-only user query.
	ErrEmptyQuery = errors.New("user query is empty")
	// ErrQueryTooLong signals a user query over the accepted length limit.
	ErrQueryTooLong = errors.New("user query is too long")
	// ErrNoUserMessage signals a chat history without any user message.
	ErrNoUserMessage = errors.New("no user message in chat history")
	// ErrGenerationFailed signals an LLM generation failure.
	ErrGenerationFailed = errors.New("response generation failed")
)
