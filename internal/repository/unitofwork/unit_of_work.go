package unitofwork

import (
	"context"

	"sales-copilot-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	CallSessionRepository() contract.CallSessionRepository
	ManualChunkRepository() contract.ManualChunkRepository
}
