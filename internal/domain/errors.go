package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code so wrapped sentinels compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || e.Message == t.Message)
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeFetch         = "FETCH_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuestion = NewDomainError(ErrCodeValidation, "question is required")
)

// Knowledge source errors
var (
	ErrKnowledgeUnavailable = NewDomainError(ErrCodeFetch, "knowledge source unavailable")
	ErrNoChunks             = errors.New("knowledge source contained no chunks")
)

// Completion provider errors
var (
	ErrCompletionFailed = NewDomainError(ErrCodeUpstream, "completion provider failed")
	ErrEmptyCompletion  = errors.New("completion provider returned no content")
)

// NewFetchError wraps a cold-start knowledge fetch failure.
func NewFetchError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeFetch, ErrKnowledgeUnavailable.Message, err)
}

// NewUpstreamError wraps a completion provider failure or timeout.
func NewUpstreamError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeUpstream, ErrCompletionFailed.Message, err)
}

// ErrorCode returns the code of the first DomainError in the chain, or "".
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsValidationError reports whether err carries the validation code.
func IsValidationError(err error) bool {
	return ErrorCode(err) == ErrCodeValidation
}

// IsFetchError reports whether err carries the fetch code.
func IsFetchError(err error) bool {
	return ErrorCode(err) == ErrCodeFetch
}

// IsUpstreamError reports whether err carries the upstream code.
func IsUpstreamError(err error) bool {
	return ErrorCode(err) == ErrCodeUpstream
}
