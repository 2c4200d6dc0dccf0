package entity

import (
	"time"

	"github.com/google/uuid"
)

// ManualChunk is a retrieval-sized passage of a product manual together
// with its embedding. Chunks for a product are replaced wholesale on
// re-ingestion, never patched.
type ManualChunk struct {
	Id         uuid.UUID
	ProductId  string
	ChunkTitle *string
	ChunkText  string
	SourceRef  string
	Embedding  []float32
	CreatedAt  time.Time
}
