// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Configuration errors (100-199): invalid orders, missing bar columns,
//     insufficient data for walk-forward windows, bad cost model settings.
//     These are raised before a run starts and are never retried.
//   - Data/Resource errors (200-299): historical data reader failures
//   - Strategy errors (400-499): strategy callback and registry errors
//   - Backtest errors (600-699): engine and validation harness errors
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidOrder, "quantity must be positive")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeMissingColumn, "missing required columns: %v", missing)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to read bars", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeInsufficientData) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error carries an ErrorCode alongside its message and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to cause. The cause stays reachable through Unwrap.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%d] %s", e.Code, e.Message)
	if e.Cause == nil {
		return msg
	}

	return msg + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is and As re-export the standard helpers so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the first *Error or *InsufficientDataError in err's
// chain, or ErrCodeUnknown.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var insufficient *InsufficientDataError
	if errors.As(err, &insufficient) {
		return ErrCodeInsufficientData
	}

	return ErrCodeUnknown
}

func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return IsConfigurationCode(GetCode(err))
}

// InsufficientDataError is returned when the bars left after reserving the
// out-of-sample tail cannot hold a single train+test window.
type InsufficientDataError struct {
	Required  int // Bars needed for one train+test window
	Available int // Bars left after the reserve
	Reserved  int // Bars held back as the out-of-sample reserve
	Message   string
}

func NewInsufficientDataErrorf(required, available, reserved int, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required:  required,
		Available: available,
		Reserved:  reserved,
		Message:   fmt.Sprintf(format, args...),
	}
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("[%d] %s", ErrCodeInsufficientData, e.Message)
}

func IsInsufficientDataError(err error) bool {
	var target *InsufficientDataError

	return errors.As(err, &target)
}
