package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for search and cache operations.
type ErrorCode string

const (
	// ErrCodeInvalidQuery indicates an empty or otherwise unusable query.
	ErrCodeInvalidQuery ErrorCode = "INVALID_QUERY"
	// ErrCodeProviderUnavailable indicates the embedding backend is unreachable or misconfigured.
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// ErrCodeProviderResponse indicates the embedding backend returned a malformed or error response.
	ErrCodeProviderResponse ErrorCode = "PROVIDER_RESPONSE"
	// ErrCodeDimensionMismatch indicates a vector whose dimensionality does not match the index.
	ErrCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	// ErrCodeSearchUnavailable indicates a composite failure of the search pipeline.
	ErrCodeSearchUnavailable ErrorCode = "SEARCH_UNAVAILABLE"
	// ErrCodeNotFound indicates the requested resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeQuotaExceeded indicates a usage quota has been exhausted.
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ServiceError represents a structured error for service operations.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *ServiceError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// InvalidQuery creates an invalid query error.
func InvalidQuery(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeInvalidQuery, Message: msg}
}

// ProviderUnavailable creates a provider unavailable error.
func ProviderUnavailable(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeProviderUnavailable, Message: msg}
}

// ProviderResponse creates a provider response error.
func ProviderResponse(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeProviderResponse, Message: msg, Cause: cause}
}

// DimensionMismatch creates a dimension mismatch error.
func DimensionMismatch(want, got int) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeDimensionMismatch,
		Message: fmt.Sprintf("expected %d-dimensional vector, got %d", want, got),
	}
}

// SearchUnavailable creates a search unavailable error wrapping an upstream fault.
func SearchUnavailable(cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeSearchUnavailable, Message: "search is unavailable", Cause: cause}
}

// NotFound creates a not found error.
func NotFound(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeNotFound, Message: msg}
}

// QuotaExceeded creates a quota exceeded error.
func QuotaExceeded(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeQuotaExceeded, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *ServiceError {
	return &ServiceError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if svcErr, ok := err.(*ServiceError); ok {
		return svcErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a ServiceError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if svcErr, ok := err.(*ServiceError); ok {
		return svcErr.Code
	}
	return defaultCode
}
