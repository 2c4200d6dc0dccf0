package dto

import "github.com/google/uuid"

type IngestManualRequest struct {
	ProductId  string `json:"product_id" validate:"required"`
	ManualText string `json:"manual_text" validate:"required"`
}

type IngestManualResponse struct {
	Count int `json:"count"`
}

type SearchManualRequest struct {
	ProductId *string `json:"product_id"`
	Query     string  `json:"query" validate:"required"`
}

type ManualChunkResponse struct {
	Id         uuid.UUID `json:"id"`
	ProductId  string    `json:"product_id"`
	ChunkTitle *string   `json:"chunk_title"`
	ChunkText  string    `json:"chunk_text"`
	SourceRef  string    `json:"source_ref"`
	Similarity float64   `json:"similarity"`
}

type SearchManualResponse struct {
	Chunks []ManualChunkResponse `json:"chunks"`
}
