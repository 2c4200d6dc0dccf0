package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/repository/contract"
	"sales-copilot-be/internal/repository/specification"
	"sales-copilot-be/internal/repository/unitofwork"
	"sales-copilot-be/pkg/embedding"
	"sales-copilot-be/pkg/events"
	"sales-copilot-be/pkg/llm"

	"github.com/google/uuid"
)

// In-memory doubles for the storage and AI backends. They mirror the
// contracts exactly, including the ended_at fence on session mutations.

type fakeCallSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.CallSession
}

func newFakeCallSessionRepo() *fakeCallSessionRepo {
	return &fakeCallSessionRepo{sessions: map[uuid.UUID]*entity.CallSession{}}
}

func (r *fakeCallSessionRepo) Create(ctx context.Context, session *entity.CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.Id] = &copied
	return nil
}

func (r *fakeCallSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if s, found := r.sessions[byID.ID]; found {
				copied := *s
				return &copied, nil
			}
			return nil, nil
		}
	}
	return nil, fmt.Errorf("unsupported specification")
}

func (r *fakeCallSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sessions)), nil
}

func (r *fakeCallSessionRepo) UpdateTranscript(ctx context.Context, id uuid.UUID, transcript []entity.Utterance) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.sessions[id]
	if !found || s.EndedAt != nil {
		return false, nil
	}
	s.Transcript = transcript
	return true, nil
}

func (r *fakeCallSessionRepo) UpdateState(ctx context.Context, id uuid.UUID, fields map[string]string, suggestion *entity.Suggestion) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.sessions[id]
	if !found || s.EndedAt != nil {
		return false, nil
	}
	s.ExtractedFields = fields
	s.LastSuggestion = suggestion
	return true, nil
}

func (r *fakeCallSessionRepo) End(ctx context.Context, id uuid.UUID, summary *entity.CallSummary, endedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.sessions[id]
	if !found || s.EndedAt != nil {
		return false, nil
	}
	s.Summary = summary
	s.EndedAt = &endedAt
	return true, nil
}

type fakeManualChunkRepo struct {
	mu      sync.Mutex
	chunks  map[string][]*entity.ManualChunk
	results []*contract.ScoredManualChunk
	err     error
}

func newFakeManualChunkRepo() *fakeManualChunkRepo {
	return &fakeManualChunkRepo{chunks: map[string][]*entity.ManualChunk{}}
}

func (r *fakeManualChunkRepo) ReplaceForProduct(ctx context.Context, productId string, chunks []*entity.ManualChunk) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.chunks[productId] = chunks
	return len(chunks), nil
}

func (r *fakeManualChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, productId *string, threshold float64, limit int) ([]*contract.ScoredManualChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.results, nil
}

func (r *fakeManualChunkRepo) CountByProduct(ctx context.Context, productId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.chunks[productId])), nil
}

type fakeUnitOfWork struct {
	sessions *fakeCallSessionRepo
	manuals  *fakeManualChunkRepo
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error                   { return nil }
func (u *fakeUnitOfWork) Rollback() error                 { return nil }

func (u *fakeUnitOfWork) CallSessionRepository() contract.CallSessionRepository {
	return u.sessions
}

func (u *fakeUnitOfWork) ManualChunkRepository() contract.ManualChunkRepository {
	return u.manuals
}

type fakeUowFactory struct {
	uow *fakeUnitOfWork
}

func newFakeUowFactory() *fakeUowFactory {
	return &fakeUowFactory{uow: &fakeUnitOfWork{
		sessions: newFakeCallSessionRepo(),
		manuals:  newFakeManualChunkRepo(),
	}}
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

type fakeEmbeddingProvider struct {
	vector   []float32
	err      error
	batchErr error
	calls    int
}

func (p *fakeEmbeddingProvider) Generate(text string) (*embedding.EmbeddingResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &embedding.EmbeddingResponse{Values: p.vector}, nil
}

func (p *fakeEmbeddingProvider) GenerateBatch(texts []string) ([][]float32, error) {
	p.calls++
	if p.batchErr != nil {
		return nil, p.batchErr
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = p.vector
	}
	return vectors, nil
}

type fakeLLMProvider struct {
	response string
	err      error
	calls    int
}

func (p *fakeLLMProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *fakeLLMProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.published))
	for i, e := range p.published {
		types[i] = e.EventType()
	}
	return types
}

func byIDSpec(id uuid.UUID) specification.Specification {
	return specification.ByID{ID: id}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }
