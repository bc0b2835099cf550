package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("conflict")
	ErrIncomplete     = errors.New("checkout incomplete")
	ErrProcessing     = errors.New("processing error")
)

// ACP error types. 4xx responses are invalid_request, 5xx are processing_error.
const (
	ErrorTypeInvalidRequest  = "invalid_request"
	ErrorTypeProcessingError = "processing_error"
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Param      string `json:"param,omitempty"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for a missing checkout session.
func NewNotFoundError(err error) *APIError {
	return &APIError{
		Type:       ErrorTypeInvalidRequest,
		Code:       "not_found",
		Message:    "Checkout session not found",
		StatusCode: http.StatusNotFound,
		Err:        errors.Join(ErrNotFound, err),
	}
}

// NewValidationError creates a 400 error for a malformed request field.
func NewValidationError(param, reason string) *APIError {
	return &APIError{
		Type:       ErrorTypeInvalidRequest,
		Code:       "invalid",
		Message:    fmt.Sprintf("invalid %s: %s", param, reason),
		Param:      param,
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

// NewUnauthorizedError creates a 401 error for missing credentials.
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Type:       ErrorTypeInvalidRequest,
		Code:       "unauthorized",
		Message:    reason,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// NewConflictError creates a conflict error. The status differs per operation:
// complete reports 409, cancel reports 405.
func NewConflictError(statusCode int, message string, err error) *APIError {
	return &APIError{
		Type:       ErrorTypeInvalidRequest,
		Code:       "conflict",
		Message:    message,
		StatusCode: statusCode,
		Err:        errors.Join(ErrConflict, err),
	}
}

// NewIncompleteError creates a 400 error for a checkout missing fulfillment data.
func NewIncompleteError(err error) *APIError {
	return &APIError{
		Type:       ErrorTypeInvalidRequest,
		Code:       "fulfillment_incomplete",
		Message:    "Fulfillment address and option must be selected",
		Param:      "fulfillment_details",
		StatusCode: http.StatusBadRequest,
		Err:        errors.Join(ErrIncomplete, err),
	}
}

// NewProcessingError creates a 500 error that passes the engine's message through as-is.
func NewProcessingError(err error) *APIError {
	msg := "an internal error occurred"
	if err != nil {
		msg = err.Error()
	}
	return &APIError{
		Type:       ErrorTypeProcessingError,
		Code:       "processing_error",
		Message:    msg,
		StatusCode: http.StatusInternalServerError,
		Err:        errors.Join(ErrProcessing, err),
	}
}
