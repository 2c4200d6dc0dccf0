package contract

import (
	"context"

	"sales-copilot-be/internal/entity"
)

// ScoredManualChunk pairs a chunk with its cosine similarity to a query.
type ScoredManualChunk struct {
	Chunk      *entity.ManualChunk
	Similarity float64
}

type ManualChunkRepository interface {
	// ReplaceForProduct deletes every chunk stored for the product and
	// inserts the new set in one transaction, so the index always reflects
	// exactly one ingested document version. Returns the inserted count.
	ReplaceForProduct(ctx context.Context, productId string, chunks []*entity.ManualChunk) (int, error)

	// SearchSimilarWithScore returns chunks with similarity >= threshold,
	// ordered by descending similarity, truncated to limit. A nil productId
	// searches across all products. An empty result is not an error.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, productId *string, threshold float64, limit int) ([]*ScoredManualChunk, error)

	CountByProduct(ctx context.Context, productId string) (int64, error)
}
