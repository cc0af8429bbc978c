package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

// PairwiseStats re-embeds the candidates' composite texts in a single batch
// and summarizes the off-diagonal of the pairwise cosine similarity matrix.
// Both outputs are nil when fewer than two documents exist.
//
// The matrix is symmetric, so every unordered pair contributes two values.
// That double counting does not bias the mean, and it is kept for the median
// too so results stay reproducible against historical reports.
func PairwiseStats(
	ctx context.Context, embedder BatchEmbedder, docs []domain.ScoredCandidate,
) (meanSim, medianSim *float64, err error) {
	if len(docs) < 2 {
		return nil, nil, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.CompositeText()
	}

	res, err := embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("embed composites: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(res.Embeddings), len(texts))
	}

	values := make([]float64, 0, len(docs)*(len(docs)-1))
	for i := range res.Embeddings {
		for j := range res.Embeddings {
			if i == j {
				continue
			}
			values = append(values, cosine(res.Embeddings[i], res.Embeddings[j]))
		}
	}

	mv := mean(values)
	dv := median(values)
	return &mv, &dv, nil
}

// QueryStats summarizes the similarity scores of an already filtered candidate
// list. Both outputs are nil when the list is empty.
func QueryStats(candidates []domain.ScoredCandidate) (meanSim, medianSim *float64) {
	if len(candidates) == 0 {
		return nil, nil
	}

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}

	mv := mean(scores)
	dv := median(scores)
	return &mv, &dv
}

// cosine is the dot product of two vectors divided by the product of their
// norms. Zero vectors yield 0.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
