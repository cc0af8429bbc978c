package retrieval

import (
	"math"
	"sort"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

// Default nucleus filtering parameters. Similarity scores cluster tightly, so
// the low temperature sharpens the softmax enough that only the clearly
// strongest candidates pass.
const (
	DefaultTopP        = 0.9
	DefaultTemperature = 0.1
)

// TopPFilter converts candidate scores into a probability distribution via
// temperature-scaled softmax, then keeps the smallest probability-sorted
// prefix whose cumulative mass reaches p. The candidate that crosses the
// threshold is included; ties keep their original order. A single candidate
// always survives (its probability is 1).
func TopPFilter(candidates []domain.ScoredCandidate, p, temperature float64) []domain.ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}
	if temperature != 1.0 {
		for i := range scores {
			scores[i] /= temperature
		}
	}

	// Softmax, subtracting the max scaled score before exponentiating to
	// avoid overflow.
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	filtered := make([]domain.ScoredCandidate, 0, len(candidates))
	var cumulative float64
	for _, idx := range order {
		filtered = append(filtered, candidates[idx])
		cumulative += probs[idx]
		if cumulative >= p {
			break
		}
	}
	return filtered
}
