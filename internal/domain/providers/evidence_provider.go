package providers

import (
	"context"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

// SearchOptions tunes a free-text search request.
type SearchOptions struct {
	Num    int
	Region string
	Lang   string
}

// FreeTextSearchProvider queries an external web search index.
// Failures are reported inside the snapshot, never as an error.
type FreeTextSearchProvider interface {
	Search(ctx context.Context, query string, opts SearchOptions) *entities.FreeTextSnapshot
	// SearchTrusted scopes the seed to the trusted medical domains first and
	// falls back to the unscoped seed when that yields nothing.
	SearchTrusted(ctx context.Context, seed string, opts SearchOptions) *entities.FreeTextSnapshot
}

// DrugRegistryProvider looks up records in a structured drug registry.
// A clean miss and a degraded lookup are both reported inside the snapshot.
type DrugRegistryProvider interface {
	FetchLabelSnapshot(ctx context.Context, query entities.RegistryQuery) *entities.LabelSnapshot
	FetchNDCSnapshot(ctx context.Context, query entities.RegistryQuery) *entities.NDCSnapshot
}
