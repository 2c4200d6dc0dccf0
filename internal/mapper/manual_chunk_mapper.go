package mapper

import (
	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ManualChunkMapper struct{}

func NewManualChunkMapper() *ManualChunkMapper {
	return &ManualChunkMapper{}
}

func (m *ManualChunkMapper) ToEntity(c *model.ManualChunk) *entity.ManualChunk {
	if c == nil {
		return nil
	}
	return &entity.ManualChunk{
		Id:         c.Id,
		ProductId:  c.ProductId,
		ChunkTitle: c.ChunkTitle,
		ChunkText:  c.ChunkText,
		SourceRef:  c.SourceRef,
		Embedding:  c.Embedding.Slice(),
		CreatedAt:  c.CreatedAt,
	}
}

func (m *ManualChunkMapper) ToModel(e *entity.ManualChunk) *model.ManualChunk {
	if e == nil {
		return nil
	}
	return &model.ManualChunk{
		Id:         e.Id,
		ProductId:  e.ProductId,
		ChunkTitle: e.ChunkTitle,
		ChunkText:  e.ChunkText,
		SourceRef:  e.SourceRef,
		Embedding:  pgvector.NewVector(e.Embedding),
		CreatedAt:  e.CreatedAt,
	}
}
