package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Handlers translate these into
// HTTP responses; services never return raw store errors to the surface.
var (
	// ErrNotFound covers both true absence and lack of capability. The two
	// cases are deliberately indistinguishable so a caller cannot probe for
	// the existence of records it cannot access.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict signals a duplicate category name for the same owner.
	ErrConflict = errors.New("category name already exists")

	// ErrInvalidCategory signals a category_id that does not resolve to a
	// category owned by the caller. Distinct from generic validation so the
	// client can tell a bad reference from a malformed request.
	ErrInvalidCategory = errors.New("invalid category")

	ErrUnauthorized = errors.New("unauthorized")
)

// FieldError is a single per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries per-field details for a malformed request. It is
// raised before any store access.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
