package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPErrors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name     string
		err      HTTPError
		sentinel error
		status   int
		code     string
	}{
		{"not found", &NotFoundError{Message: "folder not found"}, ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"forbidden", &ForbiddenError{Message: "no access"}, ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"unauthorized", &UnauthorizedError{Message: "bad token"}, ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{"conflict", &ConflictError{Message: "duplicate"}, ErrConflict, http.StatusBadRequest, CodeConflict},
		{"not empty", &NotEmptyError{Message: "has children"}, ErrNotEmpty, http.StatusBadRequest, CodeNotEmpty},
		{"invalid operation", &InvalidOperationError{Message: "cycle"}, ErrInvalidOperation, http.StatusBadRequest, CodeInvalidOperation},
		{"validation", NewValidationError("name", "required"), ErrValidation, http.StatusBadRequest, CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode())
			assert.Equal(t, tt.code, tt.err.Code())

			wrapped := fmt.Errorf("service: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))

			var httpErr HTTPError
			assert.True(t, errors.As(wrapped, &httpErr))
		})
	}
}

func TestValidationError_MessageListsAllFields(t *testing.T) {
	err := &ValidationError{
		Message: "validation failed",
		Fields: []FieldError{
			{Field: "name_folder", Message: "cannot be blank"},
			{Field: "parent_folder_id", Message: "must be a positive integer"},
		},
	}

	assert.Equal(t,
		"validation failed: name_folder: cannot be blank; parent_folder_id: must be a positive integer",
		err.Error(),
	)
}
