package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixora/leadflow/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"duplicate", domain.ErrDuplicatePendingRequest, "DUPLICATE_PENDING_REQUEST", http.StatusConflict},
		{"already resolved", domain.ErrAlreadyResolved, "ALREADY_RESOLVED", http.StatusConflict},
		{"resolution in progress", domain.ErrResolutionInProgress, "RESOLUTION_IN_PROGRESS", http.StatusConflict},
		{"insufficient role", domain.ErrInsufficientRole, "INSUFFICIENT_ROLE", http.StatusForbidden},
		{"not found wrapped", fmt.Errorf("failed to get request: %w", domain.ErrRequestNotFound), "REQUEST_NOT_FOUND", http.StatusNotFound},
		{"empty change set", domain.ErrEmptyChangeSet, "EMPTY_CHANGE_SET", http.StatusBadRequest},
		{"other domain error", domain.NewDomainError("unknown role: OWNER"), "BAD_REQUEST", http.StatusBadRequest},
		{"infrastructure", errors.New("dial tcp: connection refused"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapError(tt.err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.Status)
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.Nil(t, MapError(nil))
	assert.Same(t, ErrForbidden, MapError(fmt.Errorf("wrapped: %w", ErrForbidden)))
}
