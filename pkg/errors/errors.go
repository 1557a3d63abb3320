package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code, so sentinel comparisons survive Clone and Wrap.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e != nil && t != nil && e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Grade parsing failures. These abort the grading action before anything is written.
var (
	ErrGradeNotNumeric = New("GRADE_NOT_NUMERIC", http.StatusBadRequest, "grade is not a number")
	ErrGradeOutOfRange = New("GRADE_OUT_OF_RANGE", http.StatusBadRequest, "grade is out of range for the activity")
	ErrInvalidLetter   = New("INVALID_LETTER_GRADE", http.StatusBadRequest, "letter grade does not match the course letter scheme")
)

// Persistence failures. A local write failure aborts its target; a gradebook
// sync failure is reported without rolling back the local write.
var (
	ErrLocalWriteFailed = New("LOCAL_WRITE_FAILED", http.StatusInternalServerError, "failed to write activity grade record")
	ErrGradebookSync    = New("GRADEBOOK_SYNC_FAILED", http.StatusInternalServerError, "failed to sync grade to the gradebook")
)

// Grading configuration faults.
var (
	ErrAdvancedFormUnavailable = New("ADVANCED_FORM_UNAVAILABLE", http.StatusConflict, "advanced grading form is not available")
	ErrLetterTableGap          = New("LETTER_TABLE_GAP", http.StatusInternalServerError, "course letter scheme is not contiguous")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
