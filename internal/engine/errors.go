// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// Sentinels wrapped by fetch errors that have no lower-level cause
var (
	ErrUpstreamStatus  = errors.New("unexpected upstream status")
	ErrUnsupportedType = errors.New("unsupported content type")
)

// ErrorCode classifies an upstream fetch failure
type ErrorCode string

const (
	ErrCodeInvalidURL      ErrorCode = "INVALID_URL"
	ErrCodeNetworkError    ErrorCode = "NETWORK_ERROR"
	ErrCodeUpstreamStatus  ErrorCode = "UPSTREAM_STATUS"
	ErrCodeParseError      ErrorCode = "PARSE_ERROR"
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"
)

// EngineError is the single error type of a failed upstream fetch. Two
// EngineErrors match under errors.Is when their codes are equal.
type EngineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Details    map[string]interface{}
}

func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Underlying
}

func (e *EngineError) Is(target error) bool {
	var t *EngineError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewEngineError creates an EngineError; err may be nil
func NewEngineError(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithDetail records a diagnostic value (url, status) for logging
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	e.Details[key] = value
	return e
}

// IsFetchError reports whether err is an upstream fetch failure
func IsFetchError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}

// CodeOf returns the fetch error code carried by err, or "" for other errors
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
