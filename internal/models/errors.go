package models

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimitExceeded is returned before an outbound call starts when the request window is full.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrRequestTimeout is returned when an outbound call loses the race against its timer.
	ErrRequestTimeout = errors.New("request timeout")
	// ErrStaleResult is returned for a search response superseded by a newer query.
	ErrStaleResult = errors.New("search result superseded by a newer query")
	// ErrInvalidKey is counted by the cache when a caller passes an empty key.
	ErrInvalidKey = errors.New("invalid cache key")
)

// APIError is a non-success response from the ticketing API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed with status %d: %s", e.Status, e.Message)
}

// ValidationError covers missing configuration, oversize payloads and malformed input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the HTTP status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	return 0, false
}

// IsAuth reports whether err is an authentication or authorization failure.
func IsAuth(err error) bool {
	status, ok := StatusOf(err)
	if !ok {
		return false
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	default:
		return false
	}
}

// Retryable reports whether a failed call may succeed on another attempt.
// Client errors are terminal; everything else is retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	status, ok := StatusOf(err)
	if !ok {
		return true
	}
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return true
	}
}

// UnknownErrorMessage is shown when nothing more specific is known about a failure.
const UnknownErrorMessage = "An unexpected error occurred. Please try again."

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Invalid request. Please check your input.",
	http.StatusUnauthorized:        "Authentication failed. Please refresh the page.",
	http.StatusForbidden:           "You do not have permission to perform this action.",
	http.StatusNotFound:            "The requested resource was not found.",
	http.StatusTooManyRequests:     "Too many requests. Please try again later.",
	http.StatusInternalServerError: "Server error. Please try again later.",
}

// UserMessage translates err into the single sentence shown to the user.
func UserMessage(err error) string {
	var validationErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRequestTimeout):
		return "Request took too long to complete. Please try again."
	case errors.Is(err, ErrRateLimitExceeded):
		return "Rate limit exceeded. Please try again in a moment."
	case errors.As(err, &validationErr):
		return validationErr.Message
	}
	if status, ok := StatusOf(err); ok {
		if msg, found := statusMessages[status]; found {
			return msg
		}
	}
	return UnknownErrorMessage
}
