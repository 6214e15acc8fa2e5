package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// EvidenceClient looks up published evidence for a substance and condition.
// Implementations must honor ctx cancellation; callers treat any error as
// "use local data only".
type EvidenceClient interface {
	LookupEvidence(ctx context.Context, substance, condition string) (*EvidenceSummary, error)
}

// LoadResult is the outcome of reading a catalog source. Rejected records
// never abort the load of the others.
type LoadResult struct {
	Items    []CatalogItem
	Rejected []*CatalogLoadError
}

// CatalogSource reads raw catalog records at startup
type CatalogSource interface {
	Load(ctx context.Context) (*LoadResult, error)
}

// GraphExporter persists a built interaction graph for downstream rendering
type GraphExporter interface {
	ExportGraph(ctx context.Context, graph *InteractionGraph) error
}
