package domain

import (
	"errors"
	"net/http"
	"strings"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
	Code() string
}

// Error codes carried in the response envelope so clients can branch without
// parsing messages.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodeNotEmpty         = "NOT_EMPTY"
	CodeInvalidOperation = "INVALID_OPERATION"
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrNotEmpty         = errors.New("not empty")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a referenced folder, file, parent or user does not exist
	NotFoundError struct {
		Message string
	}

	// ForbiddenError indicates the principal is authenticated but neither owner nor admin
	ForbiddenError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// NotEmptyError indicates a delete blocked by subfolders or files
	NotEmptyError struct {
		Message    string
		Subfolders int
		Files      int
	}

	// InvalidOperationError indicates a move that would create a cycle
	InvalidOperationError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string         { return e.Message }
func (e *ForbiddenError) Error() string        { return e.Message }
func (e *UnauthorizedError) Error() string     { return e.Message }
func (e *NotEmptyError) Error() string         { return e.Message }
func (e *InvalidOperationError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int         { return http.StatusNotFound }
func (e *ForbiddenError) StatusCode() int        { return http.StatusForbidden }
func (e *UnauthorizedError) StatusCode() int     { return http.StatusUnauthorized }
func (e *NotEmptyError) StatusCode() int         { return http.StatusBadRequest }
func (e *InvalidOperationError) StatusCode() int { return http.StatusBadRequest }

func (e *NotFoundError) Code() string         { return CodeNotFound }
func (e *ForbiddenError) Code() string        { return CodeForbidden }
func (e *UnauthorizedError) Code() string     { return CodeUnauthorized }
func (e *NotEmptyError) Code() string         { return CodeNotEmpty }
func (e *InvalidOperationError) Code() string { return CodeInvalidOperation }

func (e *NotFoundError) Is(target error) bool         { return target == ErrNotFound }
func (e *ForbiddenError) Is(target error) bool        { return target == ErrForbidden }
func (e *UnauthorizedError) Is(target error) bool     { return target == ErrUnauthorized }
func (e *NotEmptyError) Is(target error) bool         { return target == ErrNotEmpty }
func (e *InvalidOperationError) Is(target error) bool { return target == ErrInvalidOperation }

// ConflictError represents a duplicate sibling name (or duplicate account email)
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // folder, user
	ResourceID   int64  // ID of the existing/conflicting resource, 0 when unknown
}

func (e *ConflictError) Error() string { return e.Message }

// StatusCode is 400: the REST contract reports duplicate names as bad requests.
func (e *ConflictError) StatusCode() int { return http.StatusBadRequest }

func (e *ConflictError) Code() string { return CodeConflict }

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// FieldError is a single violated field rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError enumerates every violated field rule of a request
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

func (e *ValidationError) Code() string { return CodeValidation }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a single-field validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Message: "validation failed",
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}
