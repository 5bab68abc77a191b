package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when API key is required but missing.
	ErrNoAPIKey = errors.New("inference: API key required")

	// ErrNoModel is returned when model is required but missing.
	ErrNoModel = errors.New("inference: model required")

	// ErrInvalidImage is returned when the inline image is incomplete.
	ErrInvalidImage = errors.New("inference: invalid image")

	// ErrEmptyResponse is returned when the model answered without text.
	ErrEmptyResponse = errors.New("inference: no response content")
)

// APIError represents an error response from an inference API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message decoded from the response body.
	// Empty when the body was not a structured error.
	Message string

	// Body is the raw error response body.
	Body string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("inference [%s]: API error %d: %s",
		e.Provider, e.StatusCode, e.Detail())
}

// Detail returns the decoded message, falling back to the raw body.
func (e *APIError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Body
}

// Retryable reports whether the same request may succeed later
// (rate limited or a server-side failure).
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
