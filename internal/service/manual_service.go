package service

import (
	"context"
	"fmt"

	"sales-copilot-be/internal/dto"
	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/pkg/apperror"
	"sales-copilot-be/internal/pkg/logger"
	"sales-copilot-be/internal/repository/unitofwork"
	"sales-copilot-be/pkg/chunker"
	"sales-copilot-be/pkg/embedding"
	"sales-copilot-be/pkg/events"

	"github.com/google/uuid"
)

type IManualService interface {
	Ingest(ctx context.Context, req *dto.IngestManualRequest) (*dto.IngestManualResponse, error)
	Search(ctx context.Context, req *dto.SearchManualRequest) (*dto.SearchManualResponse, error)
}

type manualService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	publisher         IPublisherService
	retrievalOptions  RetrievalOptions
	sysLogger         logger.ILogger
}

// RetrievalOptions carries the tunable knobs of a similarity search.
type RetrievalOptions struct {
	Threshold float64
	TopK      int
}

func NewManualService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	publisher IPublisherService,
	retrievalOptions RetrievalOptions,
	sysLogger logger.ILogger,
) IManualService {
	return &manualService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		publisher:         publisher,
		retrievalOptions:  retrievalOptions,
		sysLogger:         sysLogger,
	}
}

// Ingest chunks a manual, embeds every chunk and replaces the product's
// stored set wholesale. Chunk order, titles and source refs are
// deterministic for a given input, so re-ingesting the same document is
// idempotent.
func (ms *manualService) Ingest(ctx context.Context, req *dto.IngestManualRequest) (*dto.IngestManualResponse, error) {
	chunks := chunker.Split(req.ManualText, chunker.DefaultMinChars, chunker.DefaultMaxChars)
	if len(chunks) == 0 {
		return nil, apperror.NewValidation("manual text produced no chunks")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ms.embeddingProvider.GenerateBatch(texts)
	if err != nil {
		return nil, apperror.NewRetrieval(err)
	}
	if len(vectors) != len(chunks) {
		return nil, apperror.NewRetrieval(fmt.Errorf("embedding batch returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	entities := make([]*entity.ManualChunk, len(chunks))
	for i, c := range chunks {
		sourceRef := fmt.Sprintf("%s chunk %d", req.ProductId, i+1)
		var title *string
		if c.Title != "" {
			t := c.Title
			title = &t
			sourceRef = fmt.Sprintf("%s %s", req.ProductId, c.Title)
		}
		entities[i] = &entity.ManualChunk{
			Id:         uuid.New(),
			ProductId:  req.ProductId,
			ChunkTitle: title,
			ChunkText:  c.Text,
			SourceRef:  sourceRef,
			Embedding:  vectors[i],
		}
	}

	uow := ms.uowFactory.NewUnitOfWork(ctx)
	count, err := uow.ManualChunkRepository().ReplaceForProduct(ctx, req.ProductId, entities)
	if err != nil {
		return nil, apperror.NewStorage(err)
	}

	if err := ms.publisher.Publish(ctx, events.NewManualIngested(req.ProductId, count)); err != nil {
		ms.sysLogger.Warn("manual", "Failed to publish manual ingested event", map[string]interface{}{
			"product_id": req.ProductId,
			"error":      err.Error(),
		})
	}

	ms.sysLogger.Info("manual", "Manual ingested", map[string]interface{}{
		"product_id": req.ProductId,
		"chunks":     count,
	})

	return &dto.IngestManualResponse{Count: count}, nil
}

func (ms *manualService) Search(ctx context.Context, req *dto.SearchManualRequest) (*dto.SearchManualResponse, error) {
	embedded, err := ms.embeddingProvider.Generate(req.Query)
	if err != nil {
		return nil, apperror.NewRetrieval(err)
	}

	uow := ms.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.ManualChunkRepository().SearchSimilarWithScore(
		ctx, embedded.Values, req.ProductId, ms.retrievalOptions.Threshold, ms.retrievalOptions.TopK)
	if err != nil {
		return nil, apperror.NewRetrieval(err)
	}

	results := make([]dto.ManualChunkResponse, len(scored))
	for i, s := range scored {
		results[i] = dto.ManualChunkResponse{
			Id:         s.Chunk.Id,
			ProductId:  s.Chunk.ProductId,
			ChunkTitle: s.Chunk.ChunkTitle,
			ChunkText:  s.Chunk.ChunkText,
			SourceRef:  s.Chunk.SourceRef,
			Similarity: s.Similarity,
		}
	}

	return &dto.SearchManualResponse{Chunks: results}, nil
}
