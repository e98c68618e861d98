package testrequest

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists test requests. GetByID returns ErrNotFound for unknown
// ids. Update writes only when the stored version equals r.VersionID, bumps
// r.VersionID on success and returns ErrVersionConflict otherwise.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	Update(ctx context.Context, r *Request) error
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Request, int, error)
	ListByTester(ctx context.Context, testerID string, limit, offset int) ([]*Request, int, error)
	ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Request, int, error)
}

// TxRunner runs fn inside a unit of work; repositories called with the ctx
// passed to fn join it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
