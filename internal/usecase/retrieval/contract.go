package retrieval

import (
	"context"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

// SearchIndex is the vector index capability retrieval depends on.
type SearchIndex interface {
	Search(
		ctx context.Context, collection string,
		vector []float32, limit int, scoreThreshold float64,
	) ([]domain.ScoredCandidate, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// BatchEmbedder re-embeds document composite texts for pairwise statistics.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
