// Package qdrant adapts the Qdrant gRPC client to the narrow vector index
// capability the retrieval and grouping services consume.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

// Config holds Qdrant connection settings.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// Index is a Qdrant-backed vector index.
type Index struct {
	client *qdrant.Client
}

// NewIndex connects to Qdrant. The underlying gRPC channel is lazy; the first
// RPC establishes the connection.
func NewIndex(cfg Config) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &Index{client: client}, nil
}

// Close tears down the gRPC connection.
func (i *Index) Close() error {
	return i.client.Close()
}

// HealthCheck verifies the index is reachable.
func (i *Index) HealthCheck(ctx context.Context) error {
	if _, err := i.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Exists reports whether the collection is present.
func (i *Index) Exists(ctx context.Context, collection string) (bool, error) {
	ok, err := i.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("collection exists %q: %w: %w", collection, domain.ErrIndexUnavailable, err)
	}
	return ok, nil
}

// Create creates a collection with cosine distance and the given dimensionality.
func (i *Index) Create(ctx context.Context, collection string, vectorSize int) error {
	err := i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w: %w", collection, domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Count returns the exact number of points in the collection.
func (i *Index) Count(ctx context.Context, collection string) (uint64, error) {
	n, err := i.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count %q: %w: %w", collection, domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

// Search runs a kNN query and returns scored candidates, most similar first.
// A positive scoreThreshold makes the index drop hits below it, so the edge
// filter runs server-side.
func (i *Index) Search(
	ctx context.Context, collection string,
	vector []float32, limit int, scoreThreshold float64,
) ([]domain.ScoredCandidate, error) {
	req := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreThreshold > 0 {
		req.ScoreThreshold = qdrant.PtrOf(float32(scoreThreshold))
	}

	points, err := i.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w: %w", collection, domain.ErrIndexUnavailable, err)
	}

	candidates := make([]domain.ScoredCandidate, 0, len(points))
	for _, p := range points {
		candidates = append(candidates, domain.ScoredCandidate{
			ID:       pointIDToString(p.GetId()),
			Score:    float64(p.GetScore()),
			Question: payloadString(p.GetPayload(), "question"),
			Answer:   payloadString(p.GetPayload(), "answer"),
		})
	}
	return candidates, nil
}

// Scroll pages through the collection, vectors and payloads included.
// An empty offset starts from the beginning; the returned offset is empty when
// the scan is complete.
func (i *Index) Scroll(
	ctx context.Context, collection string, limit int, offset string,
) ([]domain.IndexedDocument, string, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	}
	if offset != "" {
		req.Offset = stringToPointID(offset)
	}

	// The high-level Scroll drops the next page offset, so go through the
	// points client directly.
	resp, err := i.client.GetPointsClient().Scroll(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("scroll %q: %w: %w", collection, domain.ErrIndexUnavailable, err)
	}

	docs := make([]domain.IndexedDocument, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		docs = append(docs, domain.IndexedDocument{
			ID:       pointIDToString(p.GetId()),
			Question: payloadString(p.GetPayload(), "question"),
			Answer:   payloadString(p.GetPayload(), "answer"),
			Vector:   p.GetVectors().GetVector().GetData(),
		})
	}

	next := ""
	if off := resp.GetNextPageOffset(); off != nil {
		next = pointIDToString(off)
	}
	return docs, next, nil
}

// Upsert writes documents, replacing any existing points with the same ids.
func (i *Index) Upsert(ctx context.Context, collection string, docs []domain.IndexedDocument) error {
	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, d := range docs {
		points = append(points, &qdrant.PointStruct{
			Id:      stringToPointID(d.ID),
			Vectors: qdrant.NewVectors(d.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"question": d.Question,
				"answer":   d.Answer,
			}),
		})
	}

	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert %q: %w: %w", collection, domain.ErrIndexUnavailable, err)
	}
	return nil
}
