package chat

import (
	"context"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

// Retriever fetches and filters context documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, collection, query string, topK int) (domain.RetrievalResult, error)
}

// Conversations persists chat histories.
type Conversations interface {
	Get(ctx context.Context, id string) (domain.Conversation, error)
	Save(ctx context.Context, conv domain.Conversation) error
}
