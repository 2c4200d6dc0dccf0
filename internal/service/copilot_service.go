package service

import (
	"context"
	"errors"
	"strings"

	"sales-copilot-be/internal/config"
	"sales-copilot-be/internal/dto"
	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/pkg/apperror"
	"sales-copilot-be/internal/pkg/logger"
	"sales-copilot-be/internal/pkg/sessionlock"
	"sales-copilot-be/internal/repository/specification"
	"sales-copilot-be/internal/repository/unitofwork"
	"sales-copilot-be/pkg/copilot"
	"sales-copilot-be/pkg/embedding"
	"sales-copilot-be/pkg/events"
	"sales-copilot-be/pkg/llm"
	"sales-copilot-be/pkg/product"
)

const (
	// Last N lead utterances used as the retrieval query seed.
	queryLeadWindow = 5
	// Fallback window over any speaker when the lead has not spoken yet.
	queryAnyWindow = 3
	// Transcript window handed to the reasoning prompt.
	promptWindow = 20
)

type ICopilotService interface {
	Update(ctx context.Context, req *dto.UpdateCopilotRequest) (*entity.Suggestion, error)
}

type copilotService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	llmProvider       llm.LLMProvider
	productLoader     *product.Loader
	publisher         IPublisherService
	cycleGuard        *sessionlock.Keyed
	aiConfig          config.AIConfig
	sysLogger         logger.ILogger
}

func NewCopilotService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	productLoader *product.Loader,
	publisher IPublisherService,
	cycleGuard *sessionlock.Keyed,
	aiConfig config.AIConfig,
	sysLogger logger.ILogger,
) ICopilotService {
	return &copilotService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		llmProvider:       llmProvider,
		productLoader:     productLoader,
		publisher:         publisher,
		cycleGuard:        cycleGuard,
		aiConfig:          aiConfig,
		sysLogger:         sysLogger,
	}
}

// Update runs one suggestion cycle for a session: seed a retrieval query
// from the recent transcript, embed it, fetch manual passages, ask the
// reasoning service, normalize, merge the field updates and persist the
// result. At most one cycle runs per session; an overlapping trigger is
// rejected rather than queued, since its input window is already stale.
func (cp *copilotService) Update(ctx context.Context, req *dto.UpdateCopilotRequest) (*entity.Suggestion, error) {
	if !cp.cycleGuard.TryLock(req.SessionId) {
		return nil, apperror.NewCycleInFlight("suggestion cycle already in flight")
	}
	defer cp.cycleGuard.Unlock(req.SessionId)

	uow := cp.uowFactory.NewUnitOfWork(ctx)
	repo := uow.CallSessionRepository()

	session, err := repo.FindOne(ctx, specification.ByID{ID: req.SessionId})
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	if session == nil {
		return nil, apperror.NewNotFound("session not found")
	}
	if session.Ended() {
		return nil, apperror.NewTerminalState("session already ended")
	}
	if len(session.Transcript) == 0 {
		return entity.EmptySuggestion(), nil
	}

	productId := product.DefaultProductId
	if session.ProductId != nil && *session.ProductId != "" {
		productId = *session.ProductId
	}
	productConfig, err := cp.productLoader.Get(productId)
	if err != nil {
		return nil, apperror.NewStorage(err)
	}

	query := buildQuerySeed(session.Transcript)
	cp.sysLogger.Debug("copilot", "Suggestion cycle started", map[string]interface{}{
		"session_id": session.Id,
		"phase":      "build_query",
		"query":      query,
	})

	passages, err := cp.retrievePassages(ctx, uow, query, productId)
	if err != nil {
		if errors.Is(err, embedding.ErrRateLimited) {
			return cp.degrade(ctx, session, productConfig, productId, err)
		}
		cp.sysLogger.Error("copilot", "Passage retrieval failed", map[string]interface{}{
			"session_id": session.Id,
			"phase":      "retrieve",
			"error":      err.Error(),
		})
		return nil, err
	}
	cp.sysLogger.Debug("copilot", "Manual passages retrieved", map[string]interface{}{
		"session_id": session.Id,
		"phase":      "retrieve",
		"count":      len(passages),
	})

	window := session.Transcript
	if len(window) > promptWindow {
		window = window[len(window)-promptWindow:]
	}
	systemPrompt, userPrompt, err := copilot.BuildSuggestionPrompts(window, productConfig, session.ExtractedFields, passages)
	if err != nil {
		return nil, apperror.NewReasoning(err)
	}

	response, err := cp.llmProvider.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}, llm.WithTemperature(0.3), llm.WithJSONMode())
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			return cp.degrade(ctx, session, productConfig, productId, err)
		}
		cp.sysLogger.Error("copilot", "Reasoning call failed", map[string]interface{}{
			"session_id": session.Id,
			"phase":      "complete",
			"error":      err.Error(),
		})
		return nil, apperror.NewReasoning(err)
	}
	cp.sysLogger.Debug("copilot", "Reasoning call completed", map[string]interface{}{
		"session_id": session.Id,
		"phase":      "complete",
	})

	suggestion, merged, err := copilot.Normalize([]byte(response), productConfig, session.ExtractedFields)
	if err != nil {
		cp.sysLogger.Error("copilot", "Reasoning response unparsable", map[string]interface{}{
			"session_id": session.Id,
			"phase":      "merge",
			"error":      err.Error(),
		})
		return nil, apperror.NewUnparsable(err)
	}

	applied, err := repo.UpdateState(ctx, session.Id, merged, suggestion)
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	if !applied {
		return nil, apperror.NewTerminalState("session already ended")
	}
	cp.sysLogger.Info("copilot", "Suggestion cycle merged", map[string]interface{}{
		"session_id":     session.Id,
		"phase":          "merge",
		"field_updates":  len(suggestion.ExtractedFieldsUpdates),
		"missing_fields": len(suggestion.MissingRequiredFields),
	})

	cp.publishUpdated(ctx, session, productId, false)
	return suggestion, nil
}

// degrade builds the local-only payload after a rate-limited backend. The
// session is re-read so the synthesized questions reflect the freshest
// field map; nothing is merged or persisted.
func (cp *copilotService) degrade(ctx context.Context, session *entity.CallSession, productConfig *entity.ProductConfig, productId string, cause error) (*entity.Suggestion, error) {
	cp.sysLogger.Warn("copilot", "Suggestion cycle degraded", map[string]interface{}{
		"session_id": session.Id,
		"error":      cause.Error(),
	})

	fields := session.ExtractedFields
	fresh, err := cp.uowFactory.NewUnitOfWork(ctx).CallSessionRepository().FindOne(ctx, specification.ByID{ID: session.Id})
	if err == nil && fresh != nil {
		fields = fresh.ExtractedFields
	}

	suggestion := copilot.DegradedSuggestion(productConfig, fields)
	cp.publishUpdated(ctx, session, productId, true)
	return suggestion, nil
}

func (cp *copilotService) retrievePassages(ctx context.Context, uow unitofwork.UnitOfWork, query, productId string) ([]copilot.Passage, error) {
	embedded, err := cp.embeddingProvider.Generate(query)
	if err != nil {
		if errors.Is(err, embedding.ErrRateLimited) {
			return nil, err
		}
		return nil, apperror.NewRetrieval(err)
	}

	scored, err := uow.ManualChunkRepository().SearchSimilarWithScore(
		ctx, embedded.Values, &productId, cp.aiConfig.RetrievalThreshold, cp.aiConfig.RetrievalTopK)
	if err != nil {
		return nil, apperror.NewRetrieval(err)
	}

	passages := make([]copilot.Passage, len(scored))
	for i, s := range scored {
		passages[i] = copilot.Passage{Text: s.Chunk.ChunkText, SourceRef: s.Chunk.SourceRef}
	}
	return passages, nil
}

func (cp *copilotService) publishUpdated(ctx context.Context, session *entity.CallSession, productId string, degraded bool) {
	if err := cp.publisher.Publish(ctx, events.NewSuggestionUpdated(session.Id, productId, degraded)); err != nil {
		cp.sysLogger.Warn("copilot", "Failed to publish suggestion updated event", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
	}
}

// buildQuerySeed joins the last few lead utterances into the retrieval
// query; if the lead has not spoken yet it falls back to the last few
// utterances from either speaker.
func buildQuerySeed(transcript []entity.Utterance) string {
	leadTexts := []string{}
	for _, u := range transcript {
		if u.Speaker == entity.SpeakerLead {
			leadTexts = append(leadTexts, u.Text)
		}
	}
	if len(leadTexts) > 0 {
		if len(leadTexts) > queryLeadWindow {
			leadTexts = leadTexts[len(leadTexts)-queryLeadWindow:]
		}
		return strings.Join(leadTexts, " ")
	}

	window := transcript
	if len(window) > queryAnyWindow {
		window = window[len(window)-queryAnyWindow:]
	}
	texts := make([]string, len(window))
	for i, u := range window {
		texts[i] = u.Text
	}
	return strings.Join(texts, " ")
}
