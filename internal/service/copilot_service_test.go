package service

import (
	"context"
	"fmt"
	"testing"

	"sales-copilot-be/internal/config"
	"sales-copilot-be/internal/dto"
	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/pkg/apperror"
	"sales-copilot-be/internal/pkg/sessionlock"
	"sales-copilot-be/internal/repository/contract"
	"sales-copilot-be/pkg/embedding"
	"sales-copilot-be/pkg/events"
	"sales-copilot-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type copilotFixture struct {
	service    ICopilotService
	factory    *fakeUowFactory
	embed      *fakeEmbeddingProvider
	llm        *fakeLLMProvider
	publisher  *fakePublisher
	cycleGuard *sessionlock.Keyed
}

func newCopilotFixture(t *testing.T) *copilotFixture {
	t.Helper()
	factory := newFakeUowFactory()
	embed := &fakeEmbeddingProvider{vector: []float32{0.1, 0.2, 0.3}}
	llmProvider := &fakeLLMProvider{response: `{
		"suggested_questions": [{"field": "property_state", "question": "Which state is the property in?"}],
		"extracted_fields_updates": {"loan_amount": "500000"},
		"missing_required_fields": ["property_state", "credit_score"],
		"answer_suggestions": [],
		"agent_actions": []
	}`}
	publisher := &fakePublisher{}
	cycleGuard := sessionlock.NewKeyed()

	svc := NewCopilotService(
		factory,
		embed,
		llmProvider,
		testProductLoader(t),
		publisher,
		cycleGuard,
		config.AIConfig{RetrievalThreshold: 0.5, RetrievalTopK: 8},
		noopLogger{},
	)
	return &copilotFixture{
		service:    svc,
		factory:    factory,
		embed:      embed,
		llm:        llmProvider,
		publisher:  publisher,
		cycleGuard: cycleGuard,
	}
}

func (f *copilotFixture) seedSession(t *testing.T, transcript []entity.Utterance, fields map[string]string) uuid.UUID {
	t.Helper()
	if fields == nil {
		fields = map[string]string{}
	}
	session := &entity.CallSession{
		Id:              uuid.New(),
		Transcript:      transcript,
		ExtractedFields: fields,
	}
	require.NoError(t, f.factory.uow.sessions.Create(context.Background(), session))
	return session.Id
}

func leadSays(texts ...string) []entity.Utterance {
	utterances := make([]entity.Utterance, len(texts))
	for i, text := range texts {
		utterances[i] = entity.Utterance{Speaker: entity.SpeakerLead, Text: text}
	}
	return utterances
}

func TestUpdateMergesSuggestion(t *testing.T) {
	f := newCopilotFixture(t)
	id := f.seedSession(t, leadSays("I need 500k for a ground up build in Texas."), nil)
	f.factory.uow.manuals.results = []*contract.ScoredManualChunk{
		{Chunk: &entity.ManualChunk{ChunkText: "Loans from 100k to 3M.", SourceRef: "ground_up_construction Loan terms"}, Similarity: 0.82},
	}

	suggestion, err := f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	require.NoError(t, err)

	assert.False(t, suggestion.Degraded)
	assert.Equal(t, map[string]string{"loan_amount": "500000"}, suggestion.ExtractedFieldsUpdates)
	assert.Equal(t, []string{"property_state", "credit_score"}, suggestion.MissingRequiredFields)

	// Merge is persisted.
	stored, err := f.factory.uow.sessions.FindOne(context.Background(), byIDSpec(id))
	require.NoError(t, err)
	assert.Equal(t, "500000", stored.ExtractedFields["loan_amount"])
	require.NotNil(t, stored.LastSuggestion)
	assert.Equal(t, suggestion.SuggestedQuestions, stored.LastSuggestion.SuggestedQuestions)

	assert.Equal(t, []string{events.TypeSuggestionUpdated}, f.publisher.types())
}

func TestUpdateMergeIsIdempotent(t *testing.T) {
	f := newCopilotFixture(t)
	id := f.seedSession(t, leadSays("Need 500k."), nil)

	_, err := f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	require.NoError(t, err)
	_, err = f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	require.NoError(t, err)

	stored, err := f.factory.uow.sessions.FindOne(context.Background(), byIDSpec(id))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"loan_amount": "500000"}, stored.ExtractedFields)
}

func TestUpdateEmptyTranscriptShortCircuits(t *testing.T) {
	f := newCopilotFixture(t)
	id := f.seedSession(t, nil, nil)

	suggestion, err := f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	require.NoError(t, err)

	assert.Equal(t, entity.EmptySuggestion(), suggestion)
	assert.Zero(t, f.embed.calls)
	assert.Zero(t, f.llm.calls)
	assert.Empty(t, f.publisher.types())
}

func TestUpdateDegradedOnReasoningRateLimit(t *testing.T) {
	f := newCopilotFixture(t)
	f.llm.err = fmt.Errorf("insufficient_quota: %w", llm.ErrRateLimited)
	id := f.seedSession(t, leadSays("Need 500k."), map[string]string{"loan_amount": "500000"})

	suggestion, err := f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	require.NoError(t, err)

	assert.True(t, suggestion.Degraded)
	assert.Empty(t, suggestion.ExtractedFieldsUpdates)
	assert.Equal(t, []string{"property_state", "credit_score"}, suggestion.MissingRequiredFields)
	require.Len(t, suggestion.SuggestedQuestions, 2)
	assert.Equal(t, "property_state", suggestion.SuggestedQuestions[0].Field)

	// Nothing was merged or persisted.
	stored, err := f.factory.uow.sessions.FindOne(context.Background(), byIDSpec(id))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"loan_amount": "500000"}, stored.ExtractedFields)
	assert.Nil(t, stored.LastSuggestion)
}

func TestUpdateDegradedOnEmbeddingRateLimit(t *testing.T) {
	f := newCopilotFixture(t)
	f.embed.err = embedding.ErrRateLimited
	id := f.seedSession(t, leadSays("Need 500k."), nil)

	suggestion, err := f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	require.NoError(t, err)

	assert.True(t, suggestion.Degraded)
	assert.Zero(t, f.llm.calls)
}

func TestUpdateUnparsableResponse(t *testing.T) {
	f := newCopilotFixture(t)
	f.llm.response = "I'd suggest asking about their timeline."
	id := f.seedSession(t, leadSays("Need 500k."), map[string]string{"credit_score": "720"})

	_, err := f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	assert.True(t, apperror.Is(err, apperror.CodeUnparsable))

	// A failed turn never mutates the session.
	stored, findErr := f.factory.uow.sessions.FindOne(context.Background(), byIDSpec(id))
	require.NoError(t, findErr)
	assert.Equal(t, map[string]string{"credit_score": "720"}, stored.ExtractedFields)
	assert.Nil(t, stored.LastSuggestion)
}

func TestUpdateReasoningFailure(t *testing.T) {
	f := newCopilotFixture(t)
	f.llm.err = fmt.Errorf("connection refused")
	id := f.seedSession(t, leadSays("Need 500k."), nil)

	_, err := f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	assert.True(t, apperror.Is(err, apperror.CodeReasoning))
}

func TestUpdateCycleAlreadyInFlight(t *testing.T) {
	f := newCopilotFixture(t)
	id := f.seedSession(t, leadSays("Need 500k."), nil)

	require.True(t, f.cycleGuard.TryLock(id))
	defer f.cycleGuard.Unlock(id)

	_, err := f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	assert.True(t, apperror.Is(err, apperror.CodeCycleInFlight))
}

func TestUpdateEndedSession(t *testing.T) {
	f := newCopilotFixture(t)
	id := f.seedSession(t, leadSays("Need 500k."), nil)
	applied, err := f.factory.uow.sessions.End(context.Background(), id, nil, nowUTC())
	require.NoError(t, err)
	require.True(t, applied)

	_, err = f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: id})
	assert.True(t, apperror.Is(err, apperror.CodeTerminalState))
}

func TestBuildQuerySeed(t *testing.T) {
	t.Run("joins recent lead utterances", func(t *testing.T) {
		transcript := []entity.Utterance{
			{Speaker: entity.SpeakerLead, Text: "one"},
			{Speaker: entity.SpeakerAgent, Text: "noise"},
			{Speaker: entity.SpeakerLead, Text: "two"},
			{Speaker: entity.SpeakerLead, Text: "three"},
			{Speaker: entity.SpeakerLead, Text: "four"},
			{Speaker: entity.SpeakerLead, Text: "five"},
			{Speaker: entity.SpeakerLead, Text: "six"},
		}
		assert.Equal(t, "two three four five six", buildQuerySeed(transcript))
	})

	t.Run("falls back to any speaker", func(t *testing.T) {
		transcript := []entity.Utterance{
			{Speaker: entity.SpeakerAgent, Text: "hello"},
			{Speaker: entity.SpeakerAgent, Text: "from"},
			{Speaker: entity.SpeakerAgent, Text: "our"},
			{Speaker: entity.SpeakerAgent, Text: "team"},
		}
		assert.Equal(t, "from our team", buildQuerySeed(transcript))
	})
}

func TestUpdateUnknownSession(t *testing.T) {
	f := newCopilotFixture(t)

	_, err := f.service.Update(context.Background(), &dto.UpdateCopilotRequest{SessionId: uuid.New()})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}
