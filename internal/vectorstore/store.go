package vectorstore

import (
	"context"

	"tutor-rag/internal/models"
)

// Store is the similarity-searchable chunk index. Implementations must
// upsert on Add and return at most k results from Query, each with
// similarity >= threshold, in descending order. Querying an empty
// store returns an empty slice, not an error. RemoveSource drops every
// chunk ingested from one document and is a no-op for unknown sources.
type Store interface {
	Add(ctx context.Context, chunks []models.Chunk) error
	Query(ctx context.Context, text string, k int, threshold float32) ([]models.RetrievedChunk, error)
	RemoveSource(ctx context.Context, source string) error
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}
