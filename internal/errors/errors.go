// Package errors provides custom error types for the data-retrieval core.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrRateLimited     = errors.New("rate limited")
	ErrServerError     = errors.New("upstream server error")
	ErrTimeout         = errors.New("operation timed out")
	ErrBadRequest      = errors.New("bad request")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrNotConfigured   = errors.New("provider not configured")
	ErrDataNotFound    = errors.New("data not found")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrEmptyResponse   = errors.New("empty response")
	ErrCacheMiss       = errors.New("cache miss")
	ErrNoCandidates  = errors.New("no candidates survived")
)

// ErrorClass partitions provider failures into retry behavior classes.
type ErrorClass int

const (
	// ClassTransient errors (rate limit, server error, timeout) are retried.
	ClassTransient ErrorClass = iota
	// ClassPermanent errors (bad request, auth, missing config) fail fast.
	ClassPermanent
)

// ProviderError represents a failure from an upstream provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error [%s]: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("provider error [%s]: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewTransientError creates a retryable ProviderError.
func NewTransientError(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Class: ClassTransient, Message: message, Err: err}
}

// NewPermanentError creates a non-retryable ProviderError.
func NewPermanentError(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Class: ClassPermanent, Message: message, Err: err}
}

// FromStatusCode classifies an HTTP status into a ProviderError. Rate-limit
// and 5xx statuses are transient; everything else 4xx is permanent.
func FromStatusCode(provider string, status int) *ProviderError {
	e := &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Message:    fmt.Sprintf("unexpected status %d", status),
	}
	switch {
	case status == 429:
		e.Class = ClassTransient
		e.Err = ErrRateLimited
	case status >= 500:
		e.Class = ClassTransient
		e.Err = ErrServerError
	case status == 401 || status == 403:
		e.Class = ClassPermanent
		e.Err = ErrNotAuthorized
	default:
		e.Class = ClassPermanent
		e.Err = ErrBadRequest
	}
	return e
}

// IsTransient reports whether err should be retried. Timeouts without an
// explicit class count as transient.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class == ClassTransient
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerError)
}

// RetryExhaustedError is raised when all retry attempts failed. Callers must
// convert it into a ProviderResult failure rather than letting it escape.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}

// ExtractionError represents a failure to pull structured data out of an LLM
// response.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

// ValidationError represents a single field-level validation failure.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// FallbackExhaustedError is returned when every provider in a concern's chain
// failed. It carries the attempted providers and the last error, surfaced as
// a structured record rather than an unrecoverable condition.
type FallbackExhaustedError struct {
	Concern   string
	Attempted []string
	LastErr   error
}

func (e *FallbackExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted for %s (tried %s): %v",
		e.Concern, strings.Join(e.Attempted, ", "), e.LastErr)
}

func (e *FallbackExhaustedError) Unwrap() error {
	return e.LastErr
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
