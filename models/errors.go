package models

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used across the extraction pipeline.
const (
	ErrCodeTimeout       = "EXTRACT_TIMEOUT"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeBrowserCrash  = "BROWSER_CRASH"
	ErrCodeInvalidSchema = "INVALID_SCHEMA"
	ErrCodePageLost      = "PAGE_LOST"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ExtractError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ExtractError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError.
func NewExtractError(code, message string, err error) *ExtractError {
	return &ExtractError{Code: code, Message: message, Err: err}
}

// IsTimeout reports whether err is a deadline expiry, either from a context
// or from a typed ExtractError carrying the timeout code. The rate-limit
// detector counts these across navigations.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeTimeout
	}
	return false
}
