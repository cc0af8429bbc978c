package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/domain"
	"github.com/kailas-cloud/chatdex/internal/logger"
)

// Service turns a free-text query into a filtered, scored set of supporting
// documents annotated with similarity statistics.
type Service struct {
	index       SearchIndex
	embed       Embedder
	batch       BatchEmbedder
	topP        float64
	temperature float64
}

// New creates a retrieval service with default nucleus filtering parameters.
// embed vectorizes queries; batch re-embeds document composites for the
// pairwise statistics.
func New(index SearchIndex, embed Embedder, batch BatchEmbedder) *Service {
	return &Service{
		index:       index,
		embed:       embed,
		batch:       batch,
		topP:        DefaultTopP,
		temperature: DefaultTemperature,
	}
}

// WithNucleus overrides the top-p filtering parameters.
func (s *Service) WithNucleus(p, temperature float64) *Service {
	s.topP = p
	s.temperature = temperature
	return s
}

// Retrieve embeds the query, searches the collection and assembles the
// annotated result. Pairwise statistics run over the raw hit set before
// filtering; query statistics over the kept candidates after it.
//
// On embedding or index failure Retrieve returns an empty result alongside
// the typed error, so callers can log the cause while still treating missing
// context as a valid degraded state.
func (s *Service) Retrieve(
	ctx context.Context, collection, query string, topK int,
) (domain.RetrievalResult, error) {
	log := logger.FromContext(ctx)

	embRes, err := s.embed.Embed(ctx, query)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		log.Warn("query embedding failed, retrieval degraded", zap.Error(err))
		return domain.RetrievalResult{}, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, collection, embRes.Embedding, topK, 0)
	if err != nil {
		if !errors.Is(err, domain.ErrIndexUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		log.Warn("index search failed, retrieval degraded", zap.Error(err))
		return domain.RetrievalResult{}, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		return domain.RetrievalResult{}, nil
	}

	// Neighborhood cohesion over the raw hits. Losing the statistics is not
	// worth losing the candidates, so a failure here only drops the stats.
	meanDoc, medianDoc, err := PairwiseStats(ctx, s.batch, hits)
	if err != nil {
		log.Warn("pairwise statistics unavailable", zap.Error(err))
	}

	candidates := TopPFilter(hits, s.topP, s.temperature)
	meanQuery, medianQuery := QueryStats(candidates)

	return domain.RetrievalResult{
		Candidates:               candidates,
		MeanInterDocSimilarity:   meanDoc,
		MedianInterDocSimilarity: medianDoc,
		MeanQuerySimilarity:      meanQuery,
		MedianQuerySimilarity:    medianQuery,
	}, nil
}
