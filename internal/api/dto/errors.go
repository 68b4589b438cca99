package dto

import (
	"errors"
	"net/http"

	"planmatch-backend/internal/domain/match"
)

// APIError represents a structured error response.
// All error responses from the API use this format for consistency.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound       = "not_found"
	ErrCodeAlreadyMatched = "already_matched"
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInternalError  = "internal_error"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}

// NotFoundError creates a not found error response.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError creates an internal server error response.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// FromDomainError maps a matching domain error to an HTTP status and
// error body. Unknown errors become opaque 500s.
func FromDomainError(err error) (int, APIError) {
	switch {
	case errors.Is(err, match.ErrNotFound):
		return http.StatusNotFound, NewAPIError(ErrCodeNotFound, err.Error())
	case errors.Is(err, match.ErrAlreadyMatched):
		return http.StatusConflict, NewAPIError(ErrCodeAlreadyMatched, err.Error())
	case errors.Is(err, match.ErrInvalidArgument):
		return http.StatusBadRequest, NewAPIError(ErrCodeBadRequest, err.Error())
	default:
		return http.StatusInternalServerError, InternalError()
	}
}
