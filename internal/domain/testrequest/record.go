package testrequest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// requestRecord is the flat row shape shared by the SQL adapters. Nullable
// columns are pointers so an unset slot round-trips as NULL.
type requestRecord struct {
	ID          uuid.UUID `db:"id"`
	PatientName string    `db:"patient_name"`
	Gender      *string   `db:"gender"`
	Age         int       `db:"age"`
	Email       *string   `db:"email"`
	PhoneNumber *string   `db:"phone_number"`
	Address     *string   `db:"address"`
	PinCode     *string   `db:"pin_code"`
	Status      string    `db:"status"`

	TesterID   *string `db:"tester_id"`
	TesterName *string `db:"tester_name"`
	DoctorID   *string `db:"doctor_id"`
	DoctorName *string `db:"doctor_name"`

	LabBloodPressure *string `db:"lab_blood_pressure"`
	LabHeartBeat     *string `db:"lab_heart_beat"`
	LabTemperature   *string `db:"lab_temperature"`
	LabOxygenLevel   *string `db:"lab_oxygen_level"`
	LabComments      *string `db:"lab_comments"`
	LabResult        *string `db:"lab_result"`

	ConsultationSuggestion *string `db:"consultation_suggestion"`
	ConsultationComments   *string `db:"consultation_comments"`
	HospitalFacility       *string `db:"hospital_facility"`
	HospitalWard           *string `db:"hospital_ward"`
	HospitalBedCount       *int    `db:"hospital_bed_count"`

	VersionID int       `db:"version_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newRequestRecord(r *Request) requestRecord {
	rec := requestRecord{
		ID:          r.ID,
		PatientName: r.PatientName,
		Gender:      r.Gender,
		Age:         r.Age,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Address:     r.Address,
		PinCode:     r.PinCode,
		Status:      string(r.Status),
		VersionID:   r.VersionID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if t := r.AssignedTester; t != nil {
		rec.TesterID, rec.TesterName = strPtr(t.ID), strPtr(t.Name)
	}
	if d := r.AssignedDoctor; d != nil {
		rec.DoctorID, rec.DoctorName = strPtr(d.ID), strPtr(d.Name)
	}
	if lr := r.LabResult; lr != nil {
		rec.LabBloodPressure = strPtr(lr.BloodPressure)
		rec.LabHeartBeat = strPtr(lr.HeartBeat)
		rec.LabTemperature = strPtr(lr.Temperature)
		rec.LabOxygenLevel = strPtr(lr.OxygenLevel)
		rec.LabComments = strPtr(lr.Comments)
		rec.LabResult = strPtr(string(lr.Result))
	}
	if c := r.Consultation; c != nil {
		rec.ConsultationSuggestion = strPtr(string(c.Suggestion()))
		rec.ConsultationComments = strPtr(c.Comments)
		if d, ok := c.Hospitalization(); ok {
			rec.HospitalFacility = strPtr(d.Facility)
			rec.HospitalWard = strPtr(d.Ward)
			bc := d.BedCount
			rec.HospitalBedCount = &bc
		}
	}
	return rec
}

func (rec requestRecord) toRequest() (*Request, error) {
	status, err := ParseStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("decode status for %s: %w", rec.ID, err)
	}
	r := &Request{
		ID:          rec.ID,
		PatientName: rec.PatientName,
		Gender:      rec.Gender,
		Age:         rec.Age,
		Email:       rec.Email,
		PhoneNumber: rec.PhoneNumber,
		Address:     rec.Address,
		PinCode:     rec.PinCode,
		Status:      status,
		VersionID:   rec.VersionID,
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}
	if rec.TesterID != nil {
		r.AssignedTester = &ActorRef{ID: *rec.TesterID, Name: deref(rec.TesterName)}
	}
	if rec.DoctorID != nil {
		r.AssignedDoctor = &ActorRef{ID: *rec.DoctorID, Name: deref(rec.DoctorName)}
	}
	if rec.LabResult != nil {
		if !validOutcomes[TestOutcome(*rec.LabResult)] {
			return nil, fmt.Errorf("decode lab result for %s: unknown outcome %q", rec.ID, *rec.LabResult)
		}
		r.LabResult = &LabResult{
			BloodPressure: deref(rec.LabBloodPressure),
			HeartBeat:     deref(rec.LabHeartBeat),
			Temperature:   deref(rec.LabTemperature),
			OxygenLevel:   deref(rec.LabOxygenLevel),
			Comments:      deref(rec.LabComments),
			Result:        TestOutcome(*rec.LabResult),
		}
	}
	if rec.ConsultationSuggestion != nil {
		in := ConsultationInput{
			Suggestion: *rec.ConsultationSuggestion,
			Comments:   deref(rec.ConsultationComments),
		}
		if rec.HospitalFacility != nil {
			d := HospitalizationDetail{Facility: *rec.HospitalFacility, Ward: deref(rec.HospitalWard)}
			if rec.HospitalBedCount != nil {
				d.BedCount = *rec.HospitalBedCount
			}
			in.Hospitalization = &d
		}
		c, err := NewConsultation(in)
		if err != nil {
			return nil, fmt.Errorf("decode consultation for %s: %w", rec.ID, err)
		}
		r.Consultation = &c
	}
	return r, nil
}
