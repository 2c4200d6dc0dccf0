package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type ManualChunk struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductId  string          `gorm:"type:text;not null;index"`
	ChunkTitle *string         `gorm:"type:text"`
	ChunkText  string          `gorm:"type:text;not null"`
	SourceRef  string          `gorm:"type:text;not null"`
	Embedding  pgvector.Vector `gorm:"type:vector(1536)"` // text-embedding-3-small uses 1536 dimensions
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (ManualChunk) TableName() string {
	return "manual_chunks"
}
