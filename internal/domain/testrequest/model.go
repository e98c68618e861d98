package testrequest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status is the lifecycle position of a test request.
type Status string

const (
	StatusInitiated                    Status = "INITIATED"
	StatusLabTestInProgress            Status = "LAB_TEST_IN_PROGRESS"
	StatusLabTestCompleted             Status = "LAB_TEST_COMPLETED"
	StatusDoctorConsultationInProgress Status = "DOCTOR_CONSULTATION_IN_PROGRESS"
	StatusCompleted                    Status = "COMPLETED"
)

// lifecycle is the only order a request may move through.
var lifecycle = []Status{
	StatusInitiated,
	StatusLabTestInProgress,
	StatusLabTestCompleted,
	StatusDoctorConsultationInProgress,
	StatusCompleted,
}

// Rank returns the position of s in the lifecycle, or -1 for an unknown status.
func (s Status) Rank() int {
	for i, st := range lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the status that follows s. ok is false for COMPLETED and unknown values.
func (s Status) Next() (Status, bool) {
	r := s.Rank()
	if r < 0 || r == len(lifecycle)-1 {
		return "", false
	}
	return lifecycle[r+1], true
}

func (s Status) Valid() bool { return s.Rank() >= 0 }

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status: %q", v)
	}
	return s, nil
}

// Role is the operative capability of an actor.
type Role string

const (
	RoleTester Role = "TESTER"
	RoleDoctor Role = "DOCTOR"
	RoleOther  Role = "OTHER"
)

// Actor is an authenticated identity carrying exactly one operative role.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role"`
}

// Ref strips the role; the aggregate stores assignees by reference only.
func (a Actor) Ref() *ActorRef {
	return &ActorRef{ID: a.ID, Name: a.Name}
}

// ActorRef identifies an assigned tester or doctor.
type ActorRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Request is the aggregate tracking one test from intake to completed consultation.
type Request struct {
	ID             uuid.UUID     `json:"id"`
	PatientName    string        `json:"patient_name"`
	Gender         *string       `json:"gender,omitempty"`
	Age            int           `json:"age"`
	Email          *string       `json:"email,omitempty"`
	PhoneNumber    *string       `json:"phone_number,omitempty"`
	Address        *string       `json:"address,omitempty"`
	PinCode        *string       `json:"pin_code,omitempty"`
	Status         Status        `json:"status"`
	AssignedTester *ActorRef     `json:"assigned_tester,omitempty"`
	AssignedDoctor *ActorRef     `json:"assigned_doctor,omitempty"`
	LabResult      *LabResult    `json:"lab_result,omitempty"`
	Consultation   *Consultation `json:"consultation,omitempty"`
	VersionID      int           `json:"version_id"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// GetVersionID returns the current version.
func (r *Request) GetVersionID() int { return r.VersionID }

// SetVersionID sets the current version.
func (r *Request) SetVersionID(v int) { r.VersionID = v }

// Clone returns a deep copy so a failed mutation never leaks into a caller's value.
func (r *Request) Clone() *Request {
	c := *r
	if r.AssignedTester != nil {
		t := *r.AssignedTester
		c.AssignedTester = &t
	}
	if r.AssignedDoctor != nil {
		d := *r.AssignedDoctor
		c.AssignedDoctor = &d
	}
	if r.LabResult != nil {
		lr := *r.LabResult
		c.LabResult = &lr
	}
	if r.Consultation != nil {
		cn := *r.Consultation
		c.Consultation = &cn
	}
	return &c
}

// CheckInvariants reports the first way r disagrees with its own status.
func (r *Request) CheckInvariants() error {
	rank := r.Status.Rank()
	if rank < 0 {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	checks := []struct {
		name string
		set  bool
		from Status
	}{
		{"assigned_tester", r.AssignedTester != nil, StatusLabTestInProgress},
		{"assigned_doctor", r.AssignedDoctor != nil, StatusDoctorConsultationInProgress},
		{"lab_result", r.LabResult != nil, StatusLabTestCompleted},
		{"consultation", r.Consultation != nil, StatusCompleted},
	}
	for _, c := range checks {
		want := rank >= c.from.Rank()
		if c.set != want {
			return fmt.Errorf("%s present=%t but status is %s", c.name, c.set, r.Status)
		}
	}
	return nil
}

// Intake is the data an intake collaborator supplies for a new request.
type Intake struct {
	PatientName string  `json:"patient_name"`
	Gender      *string `json:"gender,omitempty"`
	Age         int     `json:"age"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Address     *string `json:"address,omitempty"`
	PinCode     *string `json:"pin_code,omitempty"`
}

// column widths of test_request
const (
	maxGenderLen = 32
	maxEmailLen  = 255
	maxPhoneLen  = 32
)

var pinCodePattern = regexp.MustCompile(`^[0-9]{4,10}$`)

// NewRequest builds an INITIATED request with no assignments.
func NewRequest(in Intake) (*Request, error) {
	var fields []FieldError
	name := strings.TrimSpace(in.PatientName)
	if name == "" {
		fields = append(fields, FieldError{Field: "patient_name", Message: "is required"})
	} else if utf8.RuneCountInString(name) > 255 {
		fields = append(fields, FieldError{Field: "patient_name", Message: "must be at most 255 characters"})
	}
	if in.Age < 0 || in.Age > 150 {
		fields = append(fields, FieldError{Field: "age", Message: "must be between 0 and 150"})
	}
	for _, f := range []struct {
		name  string
		value *string
		max   int
	}{
		{"gender", in.Gender, maxGenderLen},
		{"email", in.Email, maxEmailLen},
		{"phone_number", in.PhoneNumber, maxPhoneLen},
	} {
		if f.value != nil && utf8.RuneCountInString(*f.value) > f.max {
			fields = append(fields, FieldError{Field: f.name, Message: fmt.Sprintf("must be at most %d characters", f.max)})
		}
	}
	if in.PinCode != nil && !pinCodePattern.MatchString(*in.PinCode) {
		fields = append(fields, FieldError{Field: "pin_code", Message: "must be 4 to 10 digits"})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	now := time.Now().UTC()
	return &Request{
		ID:          uuid.New(),
		PatientName: name,
		Gender:      in.Gender,
		Age:         in.Age,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
		PinCode:     in.PinCode,
		Status:      StatusInitiated,
		VersionID:   1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
