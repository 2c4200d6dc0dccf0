package embedding

import "errors"

// ErrRateLimited marks quota/rate-limit failures from the embedding
// backend. Callers use it to pick the degraded path instead of failing
// the turn outright.
var ErrRateLimited = errors.New("embedding: rate limited")

type EmbeddingResponse struct {
	Values []float32
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(text string) (*EmbeddingResponse, error)

	// GenerateBatch embeds every input and returns vectors in input order,
	// regardless of how the backend orders its results.
	GenerateBatch(texts []string) ([][]float32, error)
}
