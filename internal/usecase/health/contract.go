package health

import "context"

// DBPinger checks conversation store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker checks vector index availability.
type IndexChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
