package testrequest

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	maxCommentsLen = 500
	maxVitalLen    = 32
	maxWardLen     = 64
	maxFacilityLen = 255
)

// TestOutcome is the result of a lab test.
type TestOutcome string

const (
	OutcomePositive TestOutcome = "POSITIVE"
	OutcomeNegative TestOutcome = "NEGATIVE"
)

var validOutcomes = map[TestOutcome]bool{
	OutcomePositive: true,
	OutcomeNegative: true,
}

// LabResult is the immutable record a tester attaches when the lab test completes.
type LabResult struct {
	BloodPressure string      `json:"blood_pressure,omitempty"`
	HeartBeat     string      `json:"heart_beat,omitempty"`
	Temperature   string      `json:"temperature,omitempty"`
	OxygenLevel   string      `json:"oxygen_level,omitempty"`
	Comments      string      `json:"comments,omitempty"`
	Result        TestOutcome `json:"result"`
}

// LabResultInput is the submission payload for a lab result.
type LabResultInput struct {
	BloodPressure string `json:"blood_pressure"`
	HeartBeat     string `json:"heart_beat"`
	Temperature   string `json:"temperature"`
	OxygenLevel   string `json:"oxygen_level"`
	Comments      string `json:"comments"`
	Result        string `json:"result"`
}

// NewLabResult validates in and returns the value object.
func NewLabResult(in LabResultInput) (LabResult, error) {
	var fields []FieldError

	outcome := TestOutcome(strings.ToUpper(strings.TrimSpace(in.Result)))
	switch {
	case outcome == "":
		fields = append(fields, FieldError{Field: "result", Message: "is required"})
	case !validOutcomes[outcome]:
		fields = append(fields, FieldError{Field: "result", Message: "must be POSITIVE or NEGATIVE"})
	}

	vitals := []struct {
		name, value string
	}{
		{"blood_pressure", in.BloodPressure},
		{"heart_beat", in.HeartBeat},
		{"temperature", in.Temperature},
		{"oxygen_level", in.OxygenLevel},
	}
	for _, v := range vitals {
		if utf8.RuneCountInString(v.value) > maxVitalLen {
			fields = append(fields, FieldError{Field: v.name, Message: "is too long"})
		}
	}
	if utf8.RuneCountInString(in.Comments) > maxCommentsLen {
		fields = append(fields, FieldError{Field: "comments", Message: "must be at most 500 characters"})
	}

	if len(fields) > 0 {
		return LabResult{}, &ValidationError{Fields: fields}
	}
	return LabResult{
		BloodPressure: strings.TrimSpace(in.BloodPressure),
		HeartBeat:     strings.TrimSpace(in.HeartBeat),
		Temperature:   strings.TrimSpace(in.Temperature),
		OxygenLevel:   strings.TrimSpace(in.OxygenLevel),
		Comments:      strings.TrimSpace(in.Comments),
		Result:        outcome,
	}, nil
}

// Suggestion is the doctor's recommendation after consultation.
type Suggestion string

const (
	SuggestionNoIssues       Suggestion = "NO_ISSUES"
	SuggestionHomeQuarantine Suggestion = "HOME_QUARANTINE"
	SuggestionHospitalized   Suggestion = "HOSPITALIZED"
)

// ConsultationOutcome is one of NoIssues, HomeQuarantine or Hospitalized.
// Only Hospitalized carries detail, so a hospitalization without detail
// cannot be represented.
type ConsultationOutcome interface {
	Suggestion() Suggestion
	outcome()
}

type NoIssues struct{}

func (NoIssues) Suggestion() Suggestion { return SuggestionNoIssues }
func (NoIssues) outcome()               {}

type HomeQuarantine struct{}

func (HomeQuarantine) Suggestion() Suggestion { return SuggestionHomeQuarantine }
func (HomeQuarantine) outcome()               {}

type Hospitalized struct {
	Detail HospitalizationDetail
}

func (Hospitalized) Suggestion() Suggestion { return SuggestionHospitalized }
func (Hospitalized) outcome()               {}

// HospitalizationDetail describes where a patient was admitted.
type HospitalizationDetail struct {
	Facility string `json:"facility"`
	Ward     string `json:"ward,omitempty"`
	BedCount int    `json:"bed_count"`
}

func (d HospitalizationDetail) validate() []FieldError {
	var fields []FieldError
	facility := strings.TrimSpace(d.Facility)
	if facility == "" {
		fields = append(fields, FieldError{Field: "hospitalization.facility", Message: "is required"})
	} else if utf8.RuneCountInString(facility) > maxFacilityLen {
		fields = append(fields, FieldError{Field: "hospitalization.facility", Message: "is too long"})
	}
	if utf8.RuneCountInString(d.Ward) > maxWardLen {
		fields = append(fields, FieldError{Field: "hospitalization.ward", Message: "must be at most 64 characters"})
	}
	if d.BedCount < 0 {
		fields = append(fields, FieldError{Field: "hospitalization.bed_count", Message: "must not be negative"})
	}
	return fields
}

// Consultation is the immutable record a doctor attaches when the request completes.
type Consultation struct {
	Outcome  ConsultationOutcome
	Comments string
}

// Suggestion returns the outcome's suggestion, or "" for a zero Consultation.
func (c Consultation) Suggestion() Suggestion {
	if c.Outcome == nil {
		return ""
	}
	return c.Outcome.Suggestion()
}

// Hospitalization returns the admission detail when the outcome is Hospitalized.
func (c Consultation) Hospitalization() (HospitalizationDetail, bool) {
	h, ok := c.Outcome.(Hospitalized)
	if !ok {
		return HospitalizationDetail{}, false
	}
	return h.Detail, true
}

// ConsultationInput is the flat submission payload for a consultation.
type ConsultationInput struct {
	Suggestion      string                 `json:"suggestion"`
	Comments        string                 `json:"comments"`
	Hospitalization *HospitalizationDetail `json:"hospitalization,omitempty"`
}

// NewConsultation validates in and returns the value object.
func NewConsultation(in ConsultationInput) (Consultation, error) {
	var fields []FieldError
	var out ConsultationOutcome

	switch Suggestion(strings.ToUpper(strings.TrimSpace(in.Suggestion))) {
	case "":
		fields = append(fields, FieldError{Field: "suggestion", Message: "is required"})
	case SuggestionNoIssues:
		out = NoIssues{}
	case SuggestionHomeQuarantine:
		out = HomeQuarantine{}
	case SuggestionHospitalized:
		if in.Hospitalization == nil {
			fields = append(fields, FieldError{Field: "hospitalization", Message: "is required when suggestion is HOSPITALIZED"})
			break
		}
		if errs := in.Hospitalization.validate(); len(errs) > 0 {
			fields = append(fields, errs...)
			break
		}
		d := *in.Hospitalization
		d.Facility = strings.TrimSpace(d.Facility)
		d.Ward = strings.TrimSpace(d.Ward)
		out = Hospitalized{Detail: d}
	default:
		fields = append(fields, FieldError{Field: "suggestion", Message: "must be NO_ISSUES, HOME_QUARANTINE or HOSPITALIZED"})
	}

	if out != nil && out.Suggestion() != SuggestionHospitalized && in.Hospitalization != nil {
		fields = append(fields, FieldError{Field: "hospitalization", Message: "is only allowed when suggestion is HOSPITALIZED"})
	}
	if utf8.RuneCountInString(in.Comments) > maxCommentsLen {
		fields = append(fields, FieldError{Field: "comments", Message: "must be at most 500 characters"})
	}

	if len(fields) > 0 {
		return Consultation{}, &ValidationError{Fields: fields}
	}
	return Consultation{Outcome: out, Comments: strings.TrimSpace(in.Comments)}, nil
}

// Input flattens c back into its wire form.
func (c Consultation) Input() ConsultationInput {
	in := ConsultationInput{
		Suggestion: string(c.Suggestion()),
		Comments:   c.Comments,
	}
	if d, ok := c.Hospitalization(); ok {
		in.Hospitalization = &d
	}
	return in
}

func (c Consultation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Input())
}

func (c *Consultation) UnmarshalJSON(data []byte) error {
	var in ConsultationInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	parsed, err := NewConsultation(in)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
