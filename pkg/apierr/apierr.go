// Package apierr defines the user-facing error taxonomy shared by the
// pipeline and the HTTP boundary. Every error the service returns to a
// caller is one of four coded kinds; anything else maps to INTERNAL.
package apierr

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeInvalidRequest         Code = "INVALID_REQUEST"
	CodeDataTooLarge           Code = "DATA_TOO_LARGE"
	CodeSchemaValidationFailed Code = "SCHEMA_VALIDATION_FAILED"
	CodeModelDecisionFailed    Code = "MODEL_DECISION_FAILED"
	CodeInternal               Code = "INTERNAL"
)

// Error is a coded, user-facing error. Status is the HTTP status the
// boundary maps the code to; Details carries optional structured context.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error for %w-style chains.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// WithDetails attaches structured context surfaced in the error payload.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func InvalidRequest(message string) *Error {
	return &Error{Code: CodeInvalidRequest, Status: http.StatusBadRequest, Message: message}
}

func DataTooLarge(message string) *Error {
	return &Error{Code: CodeDataTooLarge, Status: http.StatusRequestEntityTooLarge, Message: message}
}

func SchemaValidationFailed(message string) *Error {
	return &Error{Code: CodeSchemaValidationFailed, Status: http.StatusUnprocessableEntity, Message: message}
}

func ModelDecisionFailed(message string) *Error {
	return &Error{Code: CodeModelDecisionFailed, Status: http.StatusFailedDependency, Message: message}
}

// From extracts the coded error from err, or wraps err as INTERNAL.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: err.Error(), cause: err}
}

// Payload is the JSON error body returned at the HTTP boundary.
type Payload struct {
	Error         Code   `json:"error"`
	Message       string `json:"message"`
	Details       any    `json:"details,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (e *Error) Payload(correlationID string) Payload {
	return Payload{
		Error:         e.Code,
		Message:       e.Message,
		Details:       e.Details,
		CorrelationID: correlationID,
	}
}
