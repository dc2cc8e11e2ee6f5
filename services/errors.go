package services

import "errors"

var (
	// ErrNotFound means the record does not exist or is not visible to the caller
	ErrNotFound = errors.New("record not found")

	// ErrForbidden means the caller may not act on the record
	ErrForbidden = errors.New("not allowed to access this resource")

	// ErrStaleVersion means the record changed since the caller last read it
	ErrStaleVersion = errors.New("record was modified by another request")

	// ErrAlreadyResolved means a medical alert was already completed or dismissed
	ErrAlreadyResolved = errors.New("alert already resolved")

	// ErrNotConfigured means an external function URL is missing
	ErrNotConfigured = errors.New("external service not configured")
)

// ValidationError reports bad input detected by a service
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// UpstreamError wraps a failed call to an external function
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Service + " call failed: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ParseError reports a response from an external function that could not be understood
type ParseError struct {
	Service string
	Err     error
}

func (e *ParseError) Error() string {
	return "unexpected " + e.Service + " response: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
