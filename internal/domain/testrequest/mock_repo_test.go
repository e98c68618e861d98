package testrequest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

// mockRequestRepo keeps clones so callers never share state with the store,
// and enforces the same version check as the SQL adapters.
type mockRequestRepo struct {
	mu      sync.Mutex
	store   map[uuid.UUID]*Request
	updates int
	// beforeUpdate runs with the lock released, just before the version check.
	beforeUpdate func()
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{store: make(map[uuid.UUID]*Request)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.VersionID == 0 {
		r.VersionID = 1
	}
	m.store[r.ID] = r.Clone()
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *mockRequestRepo) Update(_ context.Context, r *Request) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[r.ID]
	if !ok || cur.VersionID != r.VersionID {
		return ErrVersionConflict
	}
	r.VersionID++
	m.store[r.ID] = r.Clone()
	m.updates++
	return nil
}

func (m *mockRequestRepo) list(match func(*Request) bool, limit, offset int) ([]*Request, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Request
	for _, r := range m.store {
		if match(r) {
			all = append(all, r.Clone())
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRequestRepo) ListByStatus(_ context.Context, status Status, limit, offset int) ([]*Request, int, error) {
	return m.list(func(r *Request) bool { return r.Status == status }, limit, offset)
}

func (m *mockRequestRepo) ListByTester(_ context.Context, testerID string, limit, offset int) ([]*Request, int, error) {
	return m.list(func(r *Request) bool { return r.AssignedTester != nil && r.AssignedTester.ID == testerID }, limit, offset)
}

func (m *mockRequestRepo) ListByDoctor(_ context.Context, doctorID string, limit, offset int) ([]*Request, int, error) {
	return m.list(func(r *Request) bool { return r.AssignedDoctor != nil && r.AssignedDoctor.ID == doctorID }, limit, offset)
}

// -- fixtures --

var (
	testerA  = Actor{ID: "tester-a", Name: "Tess A", Role: RoleTester}
	testerB  = Actor{ID: "tester-b", Name: "Tess B", Role: RoleTester}
	doctorC  = Actor{ID: "doctor-c", Name: "Doc C", Role: RoleDoctor}
	doctorD  = Actor{ID: "doctor-d", Name: "Doc D", Role: RoleDoctor}
	outsider = Actor{ID: "clerk-1", Role: RoleOther}
)

func newTestService() (*Service, *mockRequestRepo) {
	repo := newMockRequestRepo()
	svc := NewService(repo)
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}
	return svc, repo
}

func seedRequest(repo *mockRequestRepo, name string) *Request {
	r, err := NewRequest(Intake{PatientName: name, Age: 40})
	if err != nil {
		panic(err)
	}
	if err := repo.Create(context.Background(), r); err != nil {
		panic(err)
	}
	return r
}

func validLab() LabResultInput {
	return LabResultInput{BloodPressure: "120/80", HeartBeat: "72", Temperature: "98.6", OxygenLevel: "97", Result: "NEGATIVE"}
}

// advance drives id up to status using the default actors.
func advance(svc *Service, id uuid.UUID, status Status) *Request {
	ctx := context.Background()
	var (
		r   *Request
		err error
	)
	steps := []struct {
		to Status
		do func() (*Request, error)
	}{
		{StatusLabTestInProgress, func() (*Request, error) { return svc.AssignForLabTest(ctx, id, testerA) }},
		{StatusLabTestCompleted, func() (*Request, error) { return svc.UpdateLabTest(ctx, id, validLab(), testerA) }},
		{StatusDoctorConsultationInProgress, func() (*Request, error) { return svc.AssignForConsultation(ctx, id, doctorC) }},
		{StatusCompleted, func() (*Request, error) {
			return svc.UpdateConsultation(ctx, id, ConsultationInput{Suggestion: "NO_ISSUES"}, doctorC)
		}},
	}
	for _, s := range steps {
		if s.to.Rank() > status.Rank() {
			break
		}
		if r, err = s.do(); err != nil {
			panic(err)
		}
	}
	return r
}
