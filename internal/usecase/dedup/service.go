// Package dedup clusters near-duplicate corpus entries by breadth-first
// expansion over the vector index: an edge exists between two documents when
// their cosine similarity reaches the threshold, and groups are the connected
// components reachable from the seed set. The full N×N similarity matrix is
// never materialized; the index answers one neighborhood query per visited
// document instead.
package dedup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

// Default paging and neighborhood limits, overridable via WithLimits.
const (
	DefaultScrollLimit = 10000
	DefaultSearchLimit = 1000
)

// progressEvery controls how often seed progress is logged.
const progressEvery = 100

// Service is the offline duplicate grouping engine. It runs outside the
// request-serving path; a full run issues one scroll pass plus one search per
// visited document and can take hours on a large corpus.
type Service struct {
	index       Index
	logger      *zap.Logger
	scrollLimit int
	searchLimit int
}

// New creates a grouping service.
func New(index Index, logger *zap.Logger) *Service {
	return &Service{
		index:       index,
		logger:      logger,
		scrollLimit: DefaultScrollLimit,
		searchLimit: DefaultSearchLimit,
	}
}

// WithLimits overrides the scroll page size and the per-document neighbor
// search limit.
func (s *Service) WithLimits(scrollLimit, searchLimit int) *Service {
	if scrollLimit > 0 {
		s.scrollLimit = scrollLimit
	}
	if searchLimit > 0 {
		s.searchLimit = searchLimit
	}
	return s
}

// GroupDuplicates labels every document reachable from the first seedLimit
// scanned documents with a connected-component group. Documents reachable
// only from unseeded starting points beyond the limit are never explored in a
// given run; that incompleteness is a deliberate scalability trade-off, so
// seedLimit is a caller decision, not something the engine second-guesses.
//
// Cancelling the context aborts between expansion steps; groups assigned so
// far remain valid and the partial report is returned alongside the context
// error. Index failure mid-run is fatal to the run.
func (s *Service) GroupDuplicates(
	ctx context.Context, collection string, threshold float64, seedLimit int,
) (*Report, error) {
	ok, err := s.index.Exists(ctx, collection)
	if err != nil {
		s.logger.Error("Failed to check collection", zap.String("collection", collection), zap.Error(err))
		return &Report{}, fmt.Errorf("check collection %q: %w", collection, err)
	}
	if !ok {
		s.logger.Error("Collection not found", zap.String("collection", collection))
		return &Report{}, fmt.Errorf("%w: %q", domain.ErrCollectionNotFound, collection)
	}

	total, err := s.index.Count(ctx, collection)
	if err != nil {
		return &Report{}, fmt.Errorf("count %q: %w", collection, err)
	}
	s.logger.Info("Starting duplicate grouping",
		zap.String("collection", collection),
		zap.Uint64("documents", total),
		zap.Float64("threshold", threshold),
		zap.Int("seed_limit", seedLimit),
	)

	if threshold <= 0 {
		// Proceed anyway: a degenerate run is the operator's call, the
		// engine only makes the consequence visible.
		s.logger.Warn("Similarity threshold is not positive; every document will "+
			"collapse into one group regardless of actual similarity",
			zap.Float64("threshold", threshold),
		)
	}

	docs, err := s.scrollAll(ctx, collection)
	if err != nil {
		return &Report{}, err
	}
	if len(docs) == 0 {
		s.logger.Info("No documents in collection")
		return &Report{}, nil
	}

	return s.expand(ctx, collection, docs, threshold, seedLimit)
}

// scrollAll pages through the whole collection. This is the only full-scan
// operation in the system.
func (s *Service) scrollAll(ctx context.Context, collection string) ([]domain.IndexedDocument, error) {
	var docs []domain.IndexedDocument
	offset := ""
	for {
		page, next, err := s.index.Scroll(ctx, collection, s.scrollLimit, offset)
		if err != nil {
			return nil, fmt.Errorf("scroll %q: %w", collection, err)
		}
		docs = append(docs, page...)
		s.logger.Info("Scrolled documents", zap.Int("retrieved", len(docs)))
		if next == "" {
			return docs, nil
		}
		offset = next
	}
}

// expand runs the seeded breadth-first search and assembles the report.
func (s *Service) expand(
	ctx context.Context, collection string,
	docs []domain.IndexedDocument, threshold float64, seedLimit int,
) (*Report, error) {
	idToIdx := make(map[string]int, len(docs))
	for i, d := range docs {
		idToIdx[d.ID] = i
	}

	labels := make([]int, len(docs)) // 0 = unassigned
	edges := make([][]Edge, len(docs))
	counter := 1

	seeds := min(seedLimit, len(docs))
	searchLimit := min(s.searchLimit, len(docs))

	for seed := 0; seed < seeds; seed++ {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Grouping cancelled", zap.Int("seeds_done", seed), zap.Int("groups", counter-1))
			return s.buildReport(docs, labels, edges), err
		}
		if seed > 0 && seed%progressEvery == 0 {
			s.logger.Info("Grouping progress",
				zap.Int("seeds_done", seed),
				zap.Int("seeds_total", seeds),
				zap.Int("groups", counter-1),
			)
		}
		if labels[seed] != 0 {
			continue
		}

		labels[seed] = counter
		queue := []int{seed}

		for len(queue) > 0 {
			if err := ctx.Err(); err != nil {
				s.logger.Warn("Grouping cancelled mid-expansion", zap.Int("group", counter))
				return s.buildReport(docs, labels, edges), err
			}

			current := queue[0]
			queue = queue[1:]

			// The index applies the threshold server-side, so every hit is
			// already an edge.
			hits, err := s.index.Search(ctx, collection, docs[current].Vector, searchLimit, threshold)
			if err != nil {
				// Dropping documents into a false "ungrouped" state would be
				// worse than failing, so index loss mid-run kills the run.
				s.logger.Error("Index search failed mid-run", zap.Error(err))
				return nil, fmt.Errorf("neighborhood search: %w", err)
			}

			for _, hit := range hits {
				neighbor, known := idToIdx[hit.ID]
				if !known {
					continue
				}
				switch {
				case labels[neighbor] == 0:
					labels[neighbor] = counter
					queue = append(queue, neighbor)
					edges[current] = append(edges[current], Edge{NeighborID: hit.ID, Score: hit.Score})
					edges[neighbor] = append(edges[neighbor], Edge{NeighborID: docs[current].ID, Score: hit.Score})
				case labels[neighbor] == counter:
					// Already in this group; record the edge for symmetry but
					// do not re-enqueue, otherwise cycles never terminate.
					edges[current] = append(edges[current], Edge{NeighborID: hit.ID, Score: hit.Score})
				}
			}
		}

		counter++
	}

	report := s.buildReport(docs, labels, edges)
	s.logger.Info("Grouping complete",
		zap.Int("groups", counter-1),
		zap.Int("visited", len(report.Rows)),
		zap.Int("scanned", len(docs)),
	)
	return report, nil
}

// buildReport keeps visited documents in scan order, deduplicating recorded
// edges per document (highest score wins, self-edges dropped).
func (s *Service) buildReport(docs []domain.IndexedDocument, labels []int, edges [][]Edge) *Report {
	report := &Report{}
	for i, d := range docs {
		if labels[i] == 0 {
			continue
		}
		report.Rows = append(report.Rows, Row{
			ID:        d.ID,
			Question:  d.Question,
			Answer:    d.Answer,
			Group:     labels[i],
			Neighbors: dedupeEdges(d.ID, edges[i]),
		})
	}
	return report
}

func dedupeEdges(selfID string, in []Edge) []Edge {
	if len(in) == 0 {
		return nil
	}
	best := make(map[string]float64, len(in))
	order := make([]string, 0, len(in))
	for _, e := range in {
		if e.NeighborID == selfID {
			continue
		}
		score, seen := best[e.NeighborID]
		if !seen {
			order = append(order, e.NeighborID)
		}
		if !seen || e.Score > score {
			best[e.NeighborID] = e.Score
		}
	}
	out := make([]Edge, 0, len(order))
	for _, id := range order {
		out = append(out, Edge{NeighborID: id, Score: best[id]})
	}
	return out
}
