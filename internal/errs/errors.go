// Package errs defines the typed errors shared by the pipeline stages.
package errs

import (
	"errors"
	"fmt"
)

// Common pipeline errors
var (
	ErrBrowserNotFound = errors.New("chrome browser not found")
	ErrPoolClosed      = errors.New("browser pool is closed")
	ErrQueueClosed     = errors.New("scheduler is not accepting jobs")
	ErrJobNotFound     = errors.New("job not found")
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION"
	CodeBlocked    ErrorCode = "BLOCKED"
	CodeResource   ErrorCode = "RESOURCE"
	CodeQueueFull  ErrorCode = "QUEUE_FULL"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeTimeout    ErrorCode = "TIMEOUT"
)

// Error wraps errors with a code and additional context
type Error struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches another *Error by code, otherwise defers to the underlying error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// New creates a new Error
func New(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithRetry marks the error as retryable
func (e *Error) WithRetry() *Error {
	e.Retry = true
	return e
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// Validation reports a request that was rejected before any work started.
func Validation(format string, args ...interface{}) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...), nil)
}

// Blocked reports a challenge or CAPTCHA page served instead of results.
func Blocked(url string) *Error {
	return New(CodeBlocked, "search blocked by challenge page", nil).WithDetail("url", url)
}

// Resource reports a browser or rendering session that could not be set up.
func Resource(message string, err error) *Error {
	return New(CodeResource, message, err)
}

// CodeOf extracts the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsRetryable reports whether err was explicitly marked retryable. Errors
// without a code are left to the caller.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retry
	}
	return false
}
