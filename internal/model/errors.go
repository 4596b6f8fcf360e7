package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed call. The set is closed.
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"
	KindRateLimit  ErrorKind = "rate_limit"
	KindValidation ErrorKind = "validation"
	KindServer     ErrorKind = "server"
	KindGeneric    ErrorKind = "generic"
)

// DefaultRetryAfter is used when a 429 response carries no usable Retry-After header.
const DefaultRetryAfter = 60

// APIError is the single error type returned for every failed service call.
type APIError struct {
	Kind    ErrorKind
	Message string

	// StatusCode is 0 when no response was received.
	StatusCode int

	// RetryAfter is the server-requested wait in seconds. Only set for KindRateLimit.
	RetryAfter int

	// Raw is the response body, when a response was received.
	Raw []byte

	// Err is the underlying transport failure, if any.
	Err error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		b.WriteString(fmt.Sprintf(" (http %d)", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Kind == KindRateLimit && e.RetryAfter > 0 {
		b.WriteString(fmt.Sprintf(" (retry after %ds)", e.RetryAfter))
	}
	return b.String()
}

// Is matches any APIError of the same kind, so errors.Is(err, ErrRateLimit) works.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether the caller may reasonably try again later.
// The client itself never retries.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindRateLimit, KindServer, KindGeneric:
		return true
	default:
		return false
	}
}

// Kind sentinels for errors.Is.
var (
	ErrAuth       = &APIError{Kind: KindAuth}
	ErrRateLimit  = &APIError{Kind: KindRateLimit}
	ErrValidation = &APIError{Kind: KindValidation}
	ErrServer     = &APIError{Kind: KindServer}
	ErrGeneric    = &APIError{Kind: KindGeneric}
)

// NewAuthError creates the error returned for 401 responses
func NewAuthError(statusCode int, raw []byte) *APIError {
	return &APIError{
		Kind:       KindAuth,
		Message:    "invalid or missing credential",
		StatusCode: statusCode,
		Raw:        raw,
	}
}

// NewRateLimitError creates the error returned for 429 responses. A negative
// retryAfter means the server gave no usable hint; zero is kept.
func NewRateLimitError(retryAfter int, raw []byte) *APIError {
	if retryAfter < 0 {
		retryAfter = DefaultRetryAfter
	}
	return &APIError{
		Kind:       KindRateLimit,
		Message:    "quota exceeded, retry later",
		StatusCode: 429,
		RetryAfter: retryAfter,
		Raw:        raw,
	}
}

// NewValidationError creates a validation error. statusCode is 0 for local checks.
func NewValidationError(message string, statusCode int, raw []byte) *APIError {
	return &APIError{
		Kind:       KindValidation,
		Message:    message,
		StatusCode: statusCode,
		Raw:        raw,
	}
}

// NewServerError creates the error returned for 5xx responses
func NewServerError(statusCode int, raw []byte) *APIError {
	return &APIError{
		Kind:       KindServer,
		Message:    fmt.Sprintf("server error: %d", statusCode),
		StatusCode: statusCode,
		Raw:        raw,
	}
}

// NewGenericError creates an unclassified error
func NewGenericError(message string, statusCode int, raw []byte) *APIError {
	return &APIError{
		Kind:       KindGeneric,
		Message:    message,
		StatusCode: statusCode,
		Raw:        raw,
	}
}

// NewNetworkError wraps a failure where no response was received
func NewNetworkError(message string, err error) *APIError {
	return &APIError{
		Kind:    KindGeneric,
		Message: message,
		Err:     err,
	}
}

// AsAPIError extracts *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func IsAuth(err error) bool       { return errors.Is(err, ErrAuth) }
func IsRateLimit(err error) bool  { return errors.Is(err, ErrRateLimit) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsServer(err error) bool     { return errors.Is(err, ErrServer) }
func IsGeneric(err error) bool    { return errors.Is(err, ErrGeneric) }

// RetryAfterSeconds returns the retry hint of a rate-limit error.
func RetryAfterSeconds(err error) (int, bool) {
	ae, ok := AsAPIError(err)
	if !ok || ae.Kind != KindRateLimit {
		return 0, false
	}
	return ae.RetryAfter, true
}
