package testrequest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinels for errors.Is matching. The typed errors below carry the context.
var (
	ErrNotFound          = errors.New("test request not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")

	// ErrVersionConflict is returned by repositories when the stored version
	// no longer matches the one the caller loaded.
	ErrVersionConflict = errors.New("version conflict")
)

// NotFoundError reports an unknown request id.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("test request %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UnauthorizedError reports an actor whose role does not fit the operation,
// or who is not the actor already assigned to the request.
type UnauthorizedError struct {
	Required Role
	Actual   Role
	Reason   string
}

func (e *UnauthorizedError) Error() string {
	msg := fmt.Sprintf("unauthorized: required role %s, actual role %s", e.Required, e.Actual)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// InvalidTransitionError reports a move that is not legal from the current status.
type InvalidTransitionError struct {
	Current Status
	Target  Status
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// FieldError names one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports a malformed submission payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// HasField reports whether field is among the offending fields.
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
