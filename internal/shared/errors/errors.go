// Package errors provides application-level error types and utilities.
// It defines the error taxonomy surfaced by the ticket lifecycle: validation,
// not found, forbidden, invalid transition, conflict and dependency failures.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation            ErrorType = "validation_error"
	ErrorTypeNotFound              ErrorType = "not_found"
	ErrorTypeConflict              ErrorType = "conflict"
	ErrorTypeUnauthorized          ErrorType = "unauthorized"
	ErrorTypeForbidden             ErrorType = "forbidden"
	ErrorTypeInvalidTransition     ErrorType = "invalid_transition"
	ErrorTypeDependencyUnavailable ErrorType = "dependency_unavailable"
	ErrorTypeInternal              ErrorType = "internal_error"
	ErrorTypeBadRequest            ErrorType = "bad_request"
)

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType    `json:"type"`
	Message string       `json:"message"`
	Code    int          `json:"code"`
	Details string       `json:"details,omitempty"`
	Reason  string       `json:"reason,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
	From    string       `json:"from,omitempty"`
	To      string       `json:"to,omitempty"`

	cause error
}

// Error implements the error interface
func (e *AppError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%s: %s [%s]", e.Type, e.Message, e.Reason)
	case e.Type == ErrorTypeInvalidTransition:
		return fmt.Sprintf("%s: %s (%s -> %s)", e.Type, e.Message, e.From, e.To)
	case e.Details != "":
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

func newAppError(t ErrorType, code int, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    t,
		Message: message,
		Code:    code,
		Details: detail,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details)
}

// NewFieldValidationError creates a validation error carrying field-level messages.
func NewFieldValidationError(fields []FieldError) *AppError {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	err := newAppError(ErrorTypeValidation, http.StatusBadRequest, "validation failed", []string{strings.Join(parts, "; ")})
	err.Fields = fields
	return err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, details)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, message, details)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, details)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, message, details)
}

// NewForbiddenWithReason creates a forbidden error carrying a machine-readable reason code.
func NewForbiddenWithReason(reason, message string) *AppError {
	err := newAppError(ErrorTypeForbidden, http.StatusForbidden, message, nil)
	err.Reason = reason
	return err
}

// NewInvalidTransitionError reports an illegal status edge.
func NewInvalidTransitionError(from, to string) *AppError {
	err := newAppError(ErrorTypeInvalidTransition, http.StatusUnprocessableEntity, "status transition not allowed", nil)
	err.From = from
	err.To = to
	return err
}

// NewDependencyUnavailableError wraps a failure of an external collaborator
// such as the database. The cause is kept for logging and never serialized.
func NewDependencyUnavailableError(message string, cause error) *AppError {
	err := newAppError(ErrorTypeDependencyUnavailable, http.StatusServiceUnavailable, message, nil)
	err.cause = cause
	return err
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details)
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeBadRequest, http.StatusBadRequest, message, details)
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return isType(err, ErrorTypeConflict)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsForbiddenError checks if the error is a forbidden error
func IsForbiddenError(err error) bool {
	return isType(err, ErrorTypeForbidden)
}

// IsInvalidTransitionError checks if the error is an invalid transition error
func IsInvalidTransitionError(err error) bool {
	return isType(err, ErrorTypeInvalidTransition)
}

// IsDependencyUnavailableError checks if the error is a dependency failure
func IsDependencyUnavailableError(err error) bool {
	return isType(err, ErrorTypeDependencyUnavailable)
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// MySQL duplicate entry error
	if strings.Contains(errStr, "Duplicate entry") || strings.Contains(errStr, "duplicate key") {
		return true
	}
	// PostgreSQL / SQLite unique violation
	if strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	return false
}
