package errors

import "fmt"

// ErrorCode represents an Asesor error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrUpstreamFailed  ErrorCode = "UPSTREAM_FAILED"  // 502
	ErrNotConfigured   ErrorCode = "NOT_CONFIGURED"   // 503
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT" // 504
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// AsesorError represents a structured error with code, status, and details.
type AsesorError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *AsesorError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AsesorError {
	return &AsesorError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an unknown lead, document or file.
func NewNotFound(kind, identifier string) *AsesorError {
	return &AsesorError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewNotConfigured creates a 503 error when an external collaborator has no credentials.
func NewNotConfigured(service string) *AsesorError {
	return &AsesorError{
		Code:    ErrNotConfigured,
		Status:  503,
		Message: fmt.Sprintf("%s is not configured", service),
		Details: map[string]any{"service": service},
	}
}

// NewUpstreamFailed creates a 502 error for a failed call to an external collaborator.
// The call is never retried.
func NewUpstreamFailed(service string, err error) *AsesorError {
	msg := fmt.Sprintf("%s request failed", service)
	if err != nil {
		msg = fmt.Sprintf("%s request failed: %v", service, err)
	}
	return &AsesorError{
		Code:    ErrUpstreamFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"service": service},
	}
}

// NewUpstreamStatus creates a 502 error for a non-2xx response from an external collaborator.
func NewUpstreamStatus(service string, status int) *AsesorError {
	return &AsesorError{
		Code:    ErrUpstreamFailed,
		Status:  502,
		Message: fmt.Sprintf("%s returned status %d", service, status),
		Details: map[string]any{"service": service, "upstream_status": status},
	}
}

// NewUpstreamTimeout creates a 504 error when an external collaborator exceeds its timeout.
func NewUpstreamTimeout(service string, seconds int) *AsesorError {
	return &AsesorError{
		Code:    ErrUpstreamTimeout,
		Status:  504,
		Message: fmt.Sprintf("%s did not respond within %ds", service, seconds),
		Details: map[string]any{"service": service, "timeout_seconds": seconds},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AsesorError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AsesorError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is an AsesorError with the given code.
func Is(err error, code ErrorCode) bool {
	if aErr, ok := err.(*AsesorError); ok {
		return aErr.Code == code
	}
	return false
}
