package implementation

import (
	"context"

	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/mapper"
	"sales-copilot-be/internal/model"
	"sales-copilot-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ManualChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ManualChunkMapper
}

func NewManualChunkRepository(db *gorm.DB) contract.ManualChunkRepository {
	return &ManualChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewManualChunkMapper(),
	}
}

func (r *ManualChunkRepositoryImpl) ReplaceForProduct(ctx context.Context, productId string, chunks []*entity.ManualChunk) (int, error) {
	models := make([]*model.ManualChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.mapper.ToModel(c)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productId).Delete(&model.ManualChunk{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.Create(models).Error
	})
	if err != nil {
		return 0, err
	}

	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return len(models), nil
}

func (r *ManualChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, productId *string, threshold float64, limit int) ([]*contract.ScoredManualChunk, error) {
	if limit <= 0 {
		limit = 8
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding <=> query_vector) recovers the similarity.
	type result struct {
		model.ManualChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("manual_chunks").
		Select("manual_chunks.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold)

	if productId != nil {
		query = query.Where("product_id = ?", *productId)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredManualChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredManualChunk{
			Chunk:      r.mapper.ToEntity(&res.ManualChunk),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (r *ManualChunkRepositoryImpl) CountByProduct(ctx context.Context, productId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ManualChunk{}).
		Where("product_id = ?", productId).
		Count(&count).Error
	return count, err
}
