package dedup

import (
	"context"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

// Index is the vector index capability the grouping engine depends on.
type Index interface {
	Exists(ctx context.Context, collection string) (bool, error)
	Count(ctx context.Context, collection string) (uint64, error)
	Scroll(
		ctx context.Context, collection string, limit int, offset string,
	) ([]domain.IndexedDocument, string, error)
	Search(
		ctx context.Context, collection string,
		vector []float32, limit int, scoreThreshold float64,
	) ([]domain.ScoredCandidate, error)
}
