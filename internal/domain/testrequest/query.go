package testrequest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// QueryService answers the read-only queue and work-list lookups.
type QueryService struct {
	requests Repository
}

func NewQueryService(requests Repository) *QueryService {
	return &QueryService{requests: requests}
}

func (q *QueryService) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	r, err := q.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("get test request %s: %w", id, err)
	}
	return r, nil
}

// FindByStatus returns the requests currently at exactly status.
func (q *QueryService) FindByStatus(ctx context.Context, status Status, limit, offset int) ([]*Request, int, error) {
	if !status.Valid() {
		return nil, 0, &ValidationError{Fields: []FieldError{{Field: "status", Message: "is not a known status"}}}
	}
	return q.requests.ListByStatus(ctx, status, limit, offset)
}

// FindByTester returns every request ever assigned to the tester, in any status.
func (q *QueryService) FindByTester(ctx context.Context, testerID string, limit, offset int) ([]*Request, int, error) {
	return q.requests.ListByTester(ctx, testerID, limit, offset)
}

// FindByDoctor returns every request ever assigned to the doctor, in any status.
func (q *QueryService) FindByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Request, int, error) {
	return q.requests.ListByDoctor(ctx, doctorID, limit, offset)
}
