package service

import (
	"fmt"

	"github.com/lettingworks/tenancy-admin/internal/validate"
)

// ErrorKind discriminates the two client-visible failure shapes.
type ErrorKind string

const (
	// KindValidation carries field-scoped messages.
	KindValidation ErrorKind = "validation"
	// KindDenied carries a single message, e.g. a refused tenant removal.
	KindDenied ErrorKind = "denied"
)

// MutationError is the structured failure a tenant mutation can return. The
// transport layer renders KindValidation as a field-to-messages map and
// KindDenied as a bare string, both with status 422.
type MutationError struct {
	Kind    ErrorKind
	Fields  validate.Errors
	Message string
}

func (e *MutationError) Error() string {
	if e.Kind == KindDenied {
		return e.Message
	}
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

func newValidationError(fields validate.Errors) *MutationError {
	return &MutationError{Kind: KindValidation, Fields: fields}
}

func newDeniedError(message string) *MutationError {
	return &MutationError{Kind: KindDenied, Message: message}
}
