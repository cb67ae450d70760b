package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrConflict
	ErrInternal

	// Visit authoring taxonomy. Validation and lookup failures are local
	// and recoverable; a rehydration failure kills the editing session.
	ErrValidation
	ErrReferenceLookup
	ErrSubmission
	ErrRehydration
)

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewConflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// NewReferenceLookup marks a failed catalog or patient-directory fetch. The
// affected section shows an error state; the rest of the draft stays
// editable.
func NewReferenceLookup(source string, err error) *AppError {
	return &AppError{
		Code:    ErrReferenceLookup,
		Message: fmt.Sprintf("%s lookup failed", source),
		Err:     err,
	}
}

// NewSubmission marks a failed create-or-update call. The draft survives
// intact so the clinician can retry.
func NewSubmission(err error) *AppError {
	return &AppError{
		Code:    ErrSubmission,
		Message: "visit submission failed",
		Err:     err,
	}
}

// NewRehydration marks a failed existing-visit fetch in edit mode. No draft
// can be constructed, so the session never opens.
func NewRehydration(err error) *AppError {
	return &AppError{
		Code:    ErrRehydration,
		Message: "failed to load visit for editing",
		Err:     err,
	}
}

// Code extracts the AppError code from an error chain, or ErrInternal when
// the chain carries no AppError.
func Code(err error) ErrorCode {
	var app *AppError
	if errors.As(err, &app) {
		return app.Code
	}
	return ErrInternal
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
