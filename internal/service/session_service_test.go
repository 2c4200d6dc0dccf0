package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sales-copilot-be/internal/dto"
	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/pkg/apperror"
	"sales-copilot-be/internal/pkg/sessionlock"
	"sales-copilot-be/pkg/events"
	"sales-copilot-be/pkg/llm"
	"sales-copilot-be/pkg/product"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProductConfig = `{
	"product_id": "ground_up_construction",
	"product_name": "Ground Up Construction Loan",
	"eligibility": {"states_allowed": ["TX", "FL"], "notes": "Investment only"},
	"required_fields": [
		{"key": "loan_amount", "label": "Loan amount", "question": "How much are you looking to borrow?"},
		{"key": "property_state", "label": "Property state", "question": "Which state is the property in?"},
		{"key": "credit_score", "label": "Credit score", "question": "Do you know your credit score?"}
	]
}`

func testProductLoader(t *testing.T) *product.Loader {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, product.DefaultProductId+".json")
	require.NoError(t, os.WriteFile(path, []byte(testProductConfig), 0o644))
	return product.NewLoader(dir)
}

type sessionFixture struct {
	service   ISessionService
	factory   *fakeUowFactory
	llm       *fakeLLMProvider
	publisher *fakePublisher
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	factory := newFakeUowFactory()
	llmProvider := &fakeLLMProvider{response: `{"lead_summary": "Texas investor.", "recommended_next_steps": ["Send terms"]}`}
	publisher := &fakePublisher{}

	svc := NewSessionService(
		factory,
		llmProvider,
		testProductLoader(t),
		publisher,
		sessionlock.NewKeyed(),
		noopLogger{},
	)
	return &sessionFixture{service: svc, factory: factory, llm: llmProvider, publisher: publisher}
}

func (f *sessionFixture) mustStart(t *testing.T) uuid.UUID {
	t.Helper()
	res, err := f.service.Start(context.Background(), &dto.StartSessionRequest{})
	require.NoError(t, err)
	return res.SessionId
}

func TestStartSession(t *testing.T) {
	f := newSessionFixture(t)

	id := f.mustStart(t)

	state, err := f.service.GetState(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, state.Transcript)
	assert.Empty(t, state.ExtractedFields)
	assert.Nil(t, state.EndedAt)
}

func TestIngestAppendsUtterance(t *testing.T) {
	f := newSessionFixture(t)
	id := f.mustStart(t)

	// Numeric channel codes resolve to speakers at the boundary.
	err := f.service.Ingest(context.Background(), &dto.IngestUtteranceRequest{
		SessionId: id, Speaker: "0", Text: "I need 500k for a build in Texas.",
	})
	require.NoError(t, err)

	err = f.service.Ingest(context.Background(), &dto.IngestUtteranceRequest{
		SessionId: id, Speaker: "agent", Text: "Happy to help.", Timestamp: "2026-08-01T10:00:00Z",
	})
	require.NoError(t, err)

	state, err := f.service.GetState(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, state.Transcript, 2)
	assert.Equal(t, entity.SpeakerLead, state.Transcript[0].Speaker)
	assert.NotEmpty(t, state.Transcript[0].Timestamp)
	assert.Equal(t, entity.SpeakerAgent, state.Transcript[1].Speaker)
	assert.Equal(t, "2026-08-01T10:00:00Z", state.Transcript[1].Timestamp)
}

func TestIngestUnknownSpeaker(t *testing.T) {
	f := newSessionFixture(t)
	id := f.mustStart(t)

	err := f.service.Ingest(context.Background(), &dto.IngestUtteranceRequest{
		SessionId: id, Speaker: "customer", Text: "hello",
	})
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestIngestUnknownSession(t *testing.T) {
	f := newSessionFixture(t)

	err := f.service.Ingest(context.Background(), &dto.IngestUtteranceRequest{
		SessionId: uuid.New(), Speaker: "lead", Text: "hello",
	})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestIngestAfterEndRejected(t *testing.T) {
	f := newSessionFixture(t)
	id := f.mustStart(t)

	_, err := f.service.End(context.Background(), &dto.EndSessionRequest{SessionId: id})
	require.NoError(t, err)

	err = f.service.Ingest(context.Background(), &dto.IngestUtteranceRequest{
		SessionId: id, Speaker: "lead", Text: "one more thing",
	})
	assert.True(t, apperror.Is(err, apperror.CodeTerminalState))
}

func TestGetStateUnknownSession(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.service.GetState(context.Background(), uuid.New())
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestEndGeneratesSummary(t *testing.T) {
	f := newSessionFixture(t)
	id := f.mustStart(t)

	require.NoError(t, f.service.Ingest(context.Background(), &dto.IngestUtteranceRequest{
		SessionId: id, Speaker: "lead", Text: "Texas duplex, 500k.",
	}))

	summary, err := f.service.End(context.Background(), &dto.EndSessionRequest{SessionId: id})
	require.NoError(t, err)

	assert.Equal(t, product.DefaultProductId, summary.ProductId)
	assert.Equal(t, "Texas investor.", summary.LeadSummary)
	assert.Equal(t, []string{"Send terms"}, summary.RecommendedNextSteps)
	// Nothing was merged, so every required field is still missing.
	assert.Equal(t, []string{"loan_amount", "property_state", "credit_score"}, summary.MissingFields)

	state, err := f.service.GetState(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, state.EndedAt)
	require.NotNil(t, state.Summary)
	assert.Equal(t, "Texas investor.", state.Summary.LeadSummary)

	assert.Contains(t, f.publisher.types(), events.TypeSessionEnded)
}

func TestEndFallsBackOnReasoningFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.llm.err = errors.New("backend down")
	id := f.mustStart(t)

	summary, err := f.service.End(context.Background(), &dto.EndSessionRequest{SessionId: id})
	require.NoError(t, err)

	assert.Equal(t, "No summary generated.", summary.LeadSummary)
	assert.Equal(t, []string{
		"Follow up to obtain loan_amount.",
		"Follow up to obtain property_state.",
		"Follow up to obtain credit_score.",
	}, summary.RecommendedNextSteps)
}

func TestEndFallsBackOnUnparsableSummary(t *testing.T) {
	f := newSessionFixture(t)
	f.llm.response = "sorry, no json today"
	id := f.mustStart(t)

	summary, err := f.service.End(context.Background(), &dto.EndSessionRequest{SessionId: id})
	require.NoError(t, err)
	assert.Equal(t, "No summary generated.", summary.LeadSummary)
}

func TestEndFallsBackOnRateLimit(t *testing.T) {
	f := newSessionFixture(t)
	f.llm.err = llm.ErrRateLimited
	id := f.mustStart(t)

	summary, err := f.service.End(context.Background(), &dto.EndSessionRequest{SessionId: id})
	require.NoError(t, err)
	assert.Equal(t, "No summary generated.", summary.LeadSummary)
}

func TestEndTwiceRejected(t *testing.T) {
	f := newSessionFixture(t)
	id := f.mustStart(t)

	_, err := f.service.End(context.Background(), &dto.EndSessionRequest{SessionId: id})
	require.NoError(t, err)

	_, err = f.service.End(context.Background(), &dto.EndSessionRequest{SessionId: id})
	assert.True(t, apperror.Is(err, apperror.CodeTerminalState))

	// The summary from the first end is untouched.
	state, err := f.service.GetState(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Texas investor.", state.Summary.LeadSummary)
}

func TestEndKeepsCollectedFields(t *testing.T) {
	f := newSessionFixture(t)
	id := f.mustStart(t)

	// Simulate a prior merge.
	applied, err := f.factory.uow.sessions.UpdateState(context.Background(), id,
		map[string]string{"loan_amount": "500000", "property_state": "TX"}, nil)
	require.NoError(t, err)
	require.True(t, applied)

	summary, err := f.service.End(context.Background(), &dto.EndSessionRequest{SessionId: id})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"loan_amount": "500000", "property_state": "TX"}, summary.CollectedFields)
	assert.Equal(t, []string{"credit_score"}, summary.MissingFields)
}

func TestEndedAtIsUTC(t *testing.T) {
	f := newSessionFixture(t)
	id := f.mustStart(t)

	before := time.Now().UTC()
	_, err := f.service.End(context.Background(), &dto.EndSessionRequest{SessionId: id})
	require.NoError(t, err)

	state, err := f.service.GetState(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, state.EndedAt)
	assert.False(t, state.EndedAt.Before(before))
}
