package contract

import (
	"context"
	"time"

	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/repository/specification"

	"github.com/google/uuid"
)

// CallSessionRepository persists per-call session state. All mutating
// operations are fenced with "ended_at IS NULL": they report applied=false
// instead of touching a terminal session, which keeps end-of-call
// idempotency enforced at the storage layer even if a caller races past
// the service-level check.
type CallSessionRepository interface {
	Create(ctx context.Context, session *entity.CallSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CallSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// UpdateTranscript overwrites the transcript column with the appended
	// sequence. The read-modify-write around it must hold the session lock.
	UpdateTranscript(ctx context.Context, id uuid.UUID, transcript []entity.Utterance) (applied bool, err error)

	// UpdateState persists the merged field map and the latest suggestion
	// snapshot in a single write.
	UpdateState(ctx context.Context, id uuid.UUID, fields map[string]string, suggestion *entity.Suggestion) (applied bool, err error)

	// End sets ended_at and the summary atomically. Returns applied=false
	// when the session is already terminal.
	End(ctx context.Context, id uuid.UUID, summary *entity.CallSummary, endedAt time.Time) (applied bool, err error)
}
