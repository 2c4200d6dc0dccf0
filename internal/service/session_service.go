package service

import (
	"context"
	"errors"
	"time"

	"sales-copilot-be/internal/dto"
	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/pkg/apperror"
	"sales-copilot-be/internal/pkg/logger"
	"sales-copilot-be/internal/pkg/sessionlock"
	"sales-copilot-be/internal/repository/specification"
	"sales-copilot-be/internal/repository/unitofwork"
	"sales-copilot-be/pkg/copilot"
	"sales-copilot-be/pkg/events"
	"sales-copilot-be/pkg/llm"
	"sales-copilot-be/pkg/product"

	"github.com/google/uuid"
)

type ISessionService interface {
	Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	Ingest(ctx context.Context, req *dto.IngestUtteranceRequest) error
	GetState(ctx context.Context, sessionId uuid.UUID) (*dto.SessionStateResponse, error)
	End(ctx context.Context, req *dto.EndSessionRequest) (*entity.CallSummary, error)
}

type sessionService struct {
	uowFactory    unitofwork.RepositoryFactory
	llmProvider   llm.LLMProvider
	productLoader *product.Loader
	publisher     IPublisherService
	sessionLocks  *sessionlock.Keyed
	sysLogger     logger.ILogger
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	productLoader *product.Loader,
	publisher IPublisherService,
	sessionLocks *sessionlock.Keyed,
	sysLogger logger.ILogger,
) ISessionService {
	return &sessionService{
		uowFactory:    uowFactory,
		llmProvider:   llmProvider,
		productLoader: productLoader,
		publisher:     publisher,
		sessionLocks:  sessionLocks,
		sysLogger:     sysLogger,
	}
}

func (ss *sessionService) Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	session := &entity.CallSession{
		Id:              uuid.New(),
		ProductId:       req.ProductId,
		LeadIdentifier:  req.LeadIdentifier,
		Transcript:      []entity.Utterance{},
		ExtractedFields: map[string]string{},
	}

	uow := ss.uowFactory.NewUnitOfWork(ctx)
	if err := uow.CallSessionRepository().Create(ctx, session); err != nil {
		return nil, apperror.NewStorage(err)
	}

	ss.sysLogger.Info("session", "Call session started", map[string]interface{}{
		"session_id": session.Id,
		"product_id": req.ProductId,
	})

	return &dto.StartSessionResponse{SessionId: session.Id}, nil
}

func (ss *sessionService) Ingest(ctx context.Context, req *dto.IngestUtteranceRequest) error {
	speaker, err := entity.ParseSpeaker(req.Speaker)
	if err != nil {
		return apperror.NewValidation(err.Error())
	}

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	// Append is a read-modify-write over the transcript column; the
	// session lock serializes it against concurrent appends.
	ss.sessionLocks.Lock(req.SessionId)
	defer ss.sessionLocks.Unlock(req.SessionId)

	uow := ss.uowFactory.NewUnitOfWork(ctx)
	repo := uow.CallSessionRepository()

	session, err := repo.FindOne(ctx, specification.ByID{ID: req.SessionId})
	if err != nil {
		return apperror.NewStorage(err)
	}
	if session == nil {
		return apperror.NewNotFound("session not found")
	}
	if session.Ended() {
		return apperror.NewTerminalState("session already ended")
	}

	transcript := append(session.Transcript, entity.Utterance{
		Speaker:   speaker,
		Text:      req.Text,
		Timestamp: timestamp,
	})

	applied, err := repo.UpdateTranscript(ctx, req.SessionId, transcript)
	if err != nil {
		return apperror.NewStorage(err)
	}
	if !applied {
		return apperror.NewTerminalState("session already ended")
	}

	return nil
}

func (ss *sessionService) GetState(ctx context.Context, sessionId uuid.UUID) (*dto.SessionStateResponse, error) {
	uow := ss.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.CallSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	if session == nil {
		return nil, apperror.NewNotFound("session not found")
	}

	return &dto.SessionStateResponse{
		ProductId:       session.ProductId,
		Transcript:      session.Transcript,
		ExtractedFields: session.ExtractedFields,
		LastSuggestion:  session.LastSuggestion,
		Summary:         session.Summary,
		EndedAt:         session.EndedAt,
	}, nil
}

func (ss *sessionService) End(ctx context.Context, req *dto.EndSessionRequest) (*entity.CallSummary, error) {
	ss.sessionLocks.Lock(req.SessionId)
	defer ss.sessionLocks.Unlock(req.SessionId)

	uow := ss.uowFactory.NewUnitOfWork(ctx)
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

	productId := product.DefaultProductId
	if session.ProductId != nil && *session.ProductId != "" {
		productId = *session.ProductId
	}
	productConfig, err := ss.productLoader.Get(productId)
	if err != nil {
		return nil, apperror.NewStorage(err)
	}

	missing := productConfig.MissingRequiredFields(session.ExtractedFields)
	result := ss.generateSummary(ctx, session, missing)

	summary := &entity.CallSummary{
		ProductId:            productId,
		LeadSummary:          result.LeadSummary,
		CollectedFields:      session.ExtractedFields,
		MissingFields:        missing,
		RecommendedNextSteps: result.RecommendedNextSteps,
	}

	applied, err := repo.End(ctx, req.SessionId, summary, time.Now().UTC())
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	if !applied {
		return nil, apperror.NewTerminalState("session already ended")
	}

	if err := ss.publisher.Publish(ctx, events.NewSessionEnded(req.SessionId, productId, missing)); err != nil {
		ss.sysLogger.Warn("session", "Failed to publish session ended event", map[string]interface{}{
			"session_id": req.SessionId,
			"error":      err.Error(),
		})
	}

	ss.sysLogger.Info("session", "Call session ended", map[string]interface{}{
		"session_id":     req.SessionId,
		"product_id":     productId,
		"missing_fields": missing,
	})

	return summary, nil
}

// generateSummary asks the reasoning service for the end-of-call summary
// and falls back to the deterministic substitute whenever the call fails
// or the response does not parse. Ending a call never fails on the
// reasoning service.
func (ss *sessionService) generateSummary(ctx context.Context, session *entity.CallSession, missing []string) *copilot.SummaryResult {
	systemPrompt, userPrompt, err := copilot.BuildSummaryPrompts(session.Transcript, session.ExtractedFields, missing)
	if err != nil {
		return copilot.FallbackSummary(missing)
	}

	response, err := ss.llmProvider.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}, llm.WithTemperature(0.3), llm.WithJSONMode())
	if err != nil {
		level := "summary reasoning call failed"
		if errors.Is(err, llm.ErrRateLimited) {
			level = "summary reasoning rate limited"
		}
		ss.sysLogger.Warn("session", "Falling back to deterministic summary: "+level, map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
		return copilot.FallbackSummary(missing)
	}

	result, err := copilot.ParseSummary([]byte(response))
	if err != nil {
		ss.sysLogger.Warn("session", "Summary response unparsable, using fallback", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
		return copilot.FallbackSummary(missing)
	}
	return result
}
