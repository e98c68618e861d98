package testrequest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service moves test requests through the lab and consultation workflow.
type Service struct {
	requests Repository
	tx       TxRunner
	logger   zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
}

func NewService(requests Repository) *Service {
	return &Service{
		requests: requests,
		logger:   zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetTxRunner makes every operation run as one unit of work.
func (s *Service) SetTxRunner(tx TxRunner) {
	s.tx = tx
}

func (s *Service) SetLogger(logger zerolog.Logger) {
	s.logger = logger.With().Str("component", "testrequest.workflow").Logger()
}

func (s *Service) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Create stores a new INITIATED request on behalf of the intake collaborator.
func (s *Service) Create(ctx context.Context, in Intake) (*Request, error) {
	r, err := NewRequest(in)
	if err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create test request: %w", err)
	}
	s.logger.Info().Str("request_id", r.ID.String()).Msg("test request created")
	return r, nil
}

// AssignForLabTest binds tester to an INITIATED request.
func (s *Service) AssignForLabTest(ctx context.Context, id uuid.UUID, tester Actor) (*Request, error) {
	return s.transition(ctx, "assign_lab_test", id, StatusLabTestInProgress, tester, func(r *Request) error {
		r.AssignedTester = tester.Ref()
		return nil
	})
}

// UpdateLabTest records the assigned tester's lab result.
func (s *Service) UpdateLabTest(ctx context.Context, id uuid.UUID, in LabResultInput, tester Actor) (*Request, error) {
	return s.transition(ctx, "update_lab_test", id, StatusLabTestCompleted, tester, func(r *Request) error {
		lr, err := NewLabResult(in)
		if err != nil {
			return err
		}
		r.LabResult = &lr
		return nil
	})
}

// AssignForConsultation binds doctor to a request whose lab test is completed.
func (s *Service) AssignForConsultation(ctx context.Context, id uuid.UUID, doctor Actor) (*Request, error) {
	return s.transition(ctx, "assign_consultation", id, StatusDoctorConsultationInProgress, doctor, func(r *Request) error {
		r.AssignedDoctor = doctor.Ref()
		return nil
	})
}

// UpdateConsultation records the assigned doctor's consultation and completes the request.
func (s *Service) UpdateConsultation(ctx context.Context, id uuid.UUID, in ConsultationInput, doctor Actor) (*Request, error) {
	return s.transition(ctx, "update_consultation", id, StatusCompleted, doctor, func(r *Request) error {
		c, err := NewConsultation(in)
		if err != nil {
			return err
		}
		r.Consultation = &c
		return nil
	})
}

// transition is the single read-modify-write path: authorize, load, validate
// the move, apply mutate to a copy, then save it against the loaded version.
func (s *Service) transition(ctx context.Context, op string, id uuid.UUID, target Status, actor Actor, mutate func(*Request) error) (*Request, error) {
	var (
		updated *Request
		from    Status
	)

	run := func(ctx context.Context) error {
		required, _ := RequiredRole(target)
		if actor.Role != required {
			return &UnauthorizedError{Required: required, Actual: actor.Role}
		}
		// assignment slots are matched by id, so an empty id would match any other empty id
		if strings.TrimSpace(actor.ID) == "" {
			return &UnauthorizedError{Required: required, Actual: actor.Role, Reason: "actor has no identity"}
		}

		current, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := ValidateTransition(current, target, actor); err != nil {
			return err
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return err
		}
		next.Status = target
		next.UpdatedAt = s.now()
		if err := next.CheckInvariants(); err != nil {
			return fmt.Errorf("test request %s: %w", id, err)
		}

		if err := s.requests.Update(ctx, next); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return s.conflict(ctx, id, target)
			}
			return fmt.Errorf("save test request %s: %w", id, err)
		}
		from = current.Status
		updated = next
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.RunInTx(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		s.metrics.observeRejection(op, err)
		s.logger.Debug().
			Err(err).
			Str("operation", op).
			Str("request_id", id.String()).
			Str("actor", actor.ID).
			Str("kind", ErrorKind(err)).
			Msg("workflow operation rejected")
		return nil, err
	}

	s.metrics.observeTransition(from, target)
	s.logger.Info().
		Str("operation", op).
		Str("request_id", id.String()).
		Str("actor", actor.ID).
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("test request transitioned")
	return updated, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Request, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("load test request %s: %w", id, err)
	}
	return r, nil
}

// conflict reports a lost optimistic race as an invalid transition from
// whatever status the winner left behind.
func (s *Service) conflict(ctx context.Context, id uuid.UUID, target Status) error {
	latest, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return &InvalidTransitionError{
		Current: latest.Status,
		Target:  target,
		Reason:  "request was modified concurrently",
	}
}
