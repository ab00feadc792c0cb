package apperror

import (
	"errors"
	"net/http"

	"github.com/fixora/leadflow/internal/domain"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: "BAD_REQUEST", Message: "Bad request", Status: http.StatusBadRequest}
	ErrForbidden      = &AppError{Code: "FORBIDDEN", Message: "Forbidden", Status: http.StatusForbidden}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Not found", Status: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error", Status: http.StatusInternalServerError}
	ErrConflict       = &AppError{Code: "CONFLICT", Message: "Conflict", Status: http.StatusConflict}
)

func NewBadRequest(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: http.StatusBadRequest}
}

func NewForbidden(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: http.StatusForbidden}
}

func NewNotFound(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: http.StatusNotFound}
}

func NewInternalServer(message string) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: message, Status: http.StatusInternalServerError}
}

func NewConflict(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: http.StatusConflict}
}

// domainErrors maps workflow errors to stable codes
var domainErrors = []struct {
	err  error
	wrap func(code, message string) *AppError
	code string
}{
	{domain.ErrRequestNotFound, NewNotFound, "REQUEST_NOT_FOUND"},
	{domain.ErrLeadNotFound, NewNotFound, "LEAD_NOT_FOUND"},
	{domain.ErrIdentityNotFound, NewNotFound, "IDENTITY_NOT_FOUND"},
	{domain.ErrDuplicatePendingRequest, NewConflict, "DUPLICATE_PENDING_REQUEST"},
	{domain.ErrResolutionInProgress, NewConflict, "RESOLUTION_IN_PROGRESS"},
	{domain.ErrAlreadyResolved, NewConflict, "ALREADY_RESOLVED"},
	{domain.ErrAlreadyLogged, NewConflict, "ALREADY_LOGGED"},
	{domain.ErrAlreadyArchived, NewConflict, "ALREADY_ARCHIVED"},
	{domain.ErrInsufficientRole, NewForbidden, "INSUFFICIENT_ROLE"},
	{domain.ErrNotResolved, NewBadRequest, "NOT_RESOLVED"},
	{domain.ErrEmptyChangeSet, NewBadRequest, "EMPTY_CHANGE_SET"},
	{domain.ErrInvalidRequest, NewBadRequest, "INVALID_REQUEST"},
	{domain.ErrInvalidDecision, NewBadRequest, "INVALID_DECISION"},
}

func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return m.wrap(m.code, m.err.Error())
		}
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return NewBadRequest("BAD_REQUEST", domainErr.Message)
	}

	return NewInternalServer("An unexpected error occurred")
}
