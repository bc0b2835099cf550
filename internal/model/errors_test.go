package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				Code:    "not_found",
				Message: "Checkout session not found",
			},
			want: "not_found: Checkout session not found",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Code:    "processing_error",
				Message: "engine exploded",
				Err:     errors.New("upstream 502"),
			},
			want: "processing_error: engine exploded (upstream 502)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &APIError{Code: "x", Message: "x", Err: underlying}
	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}

	if (&APIError{Code: "x"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when no wrapped error")
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name       string
		err        *APIError
		wantType   string
		wantStatus int
		wantMsg    string
		sentinel   error
	}{
		{"not found", NewNotFoundError(cause), ErrorTypeInvalidRequest, http.StatusNotFound, "Checkout session not found", ErrNotFound},
		{"validation", NewValidationError("items", "at least one item is required"), ErrorTypeInvalidRequest, http.StatusBadRequest, "invalid items: at least one item is required", ErrInvalidRequest},
		{"unauthorized", NewUnauthorizedError("missing bearer token"), ErrorTypeInvalidRequest, http.StatusUnauthorized, "missing bearer token", ErrUnauthorized},
		{"conflict on complete", NewConflictError(http.StatusConflict, "Checkout already completed", cause), ErrorTypeInvalidRequest, http.StatusConflict, "Checkout already completed", ErrConflict},
		{"conflict on cancel", NewConflictError(http.StatusMethodNotAllowed, "cannot cancel", cause), ErrorTypeInvalidRequest, http.StatusMethodNotAllowed, "cannot cancel", ErrConflict},
		{"incomplete", NewIncompleteError(cause), ErrorTypeInvalidRequest, http.StatusBadRequest, "Fulfillment address and option must be selected", ErrIncomplete},
		{"processing", NewProcessingError(errors.New("engine timeout")), ErrorTypeProcessingError, http.StatusInternalServerError, "engine timeout", ErrProcessing},
		{"processing nil", NewProcessingError(nil), ErrorTypeProcessingError, http.StatusInternalServerError, "an internal error occurred", ErrProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
			if tt.err.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.wantStatus)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v) = false, want true", tt.sentinel)
			}
		})
	}
}

func TestConstructorsPreserveCause(t *testing.T) {
	cause := errors.New("engine said no")
	if !errors.Is(NewNotFoundError(cause), cause) {
		t.Error("NotFound should keep the engine cause in its chain")
	}
	if !errors.Is(NewConflictError(http.StatusConflict, "x", cause), cause) {
		t.Error("Conflict should keep the engine cause in its chain")
	}
}

func TestAPIErrorImplementsError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewNotFoundError(nil))
	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find *APIError in wrapped error")
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}
