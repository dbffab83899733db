package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP context
type AppError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Details    string   `json:"details,omitempty"`
	ItemErrors []string `json:"itemErrors,omitempty"` // per-item batch validation messages
	StatusCode int      `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// ErrorResponse is the JSON response format for errors
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// WriteJSON writes the error as JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: e})
}

// ============================================================
// ERROR CONSTRUCTORS
// ============================================================

// Validation Errors (400)
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidJSON(details string) *AppError {
	return &AppError{
		Code:       "INVALID_JSON",
		Message:    "Invalid JSON in request body",
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

// BatchValidation carries one message per submitted item; items that
// validated cleanly have an empty string at their index.
func BatchValidation(itemErrors []string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "One or more submitted URLs failed validation",
		ItemErrors: itemErrors,
		StatusCode: http.StatusBadRequest,
	}
}

// Not Found Errors (404)
func URLNotFound(code string) *AppError {
	return &AppError{
		Code:       "URL_NOT_FOUND",
		Message:    fmt.Sprintf("Short URL '%s' not found", code),
		StatusCode: http.StatusNotFound,
	}
}

func AliasNotFound(id string) *AppError {
	return &AppError{
		Code:       "ALIAS_NOT_FOUND",
		Message:    fmt.Sprintf("Alias '%s' not found", id),
		StatusCode: http.StatusNotFound,
	}
}

// Expired (410) — the stale record is returned alongside so callers can
// still display the old destination.
func URLExpired(code string) *AppError {
	return &AppError{
		Code:       "URL_EXPIRED",
		Message:    fmt.Sprintf("Short URL '%s' has expired", code),
		StatusCode: http.StatusGone,
	}
}

// Rate Limit Error (429)
func RateLimitExceeded() *AppError {
	return &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please try again later",
		StatusCode: http.StatusTooManyRequests,
	}
}

// Server Errors (500)
func Internal(details string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An internal server error occurred",
		Details:    details,
		StatusCode: http.StatusInternalServerError,
	}
}
