// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid credentials, quantities, and specs
//   - Connection errors (200-299): Broker handshake and session failures
//   - Feed errors (300-399): Price feed subscription and tick generation errors
//   - Indicator errors (400-499): Technical indicator calculation errors
//   - Strategy errors (500-599): Strategy store and evaluation errors
//   - Signal errors (600-699): Signal engine and automation errors
//   - Execution errors (700-799): Trade placement and settlement errors
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidQuantity, "quantity must be positive")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeInstrumentNotFound, "no feed for symbol %s", symbol)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeOrderRejected, "broker rejected order", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeInvalidCredentials) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsValidation reports whether the error carries a validation error code.
// Validation errors are never retried automatically.
func IsValidation(err error) bool {
	code := GetCode(err)

	return code >= 100 && code < 200
}

// IsConnection reports whether the error carries a connection error code.
// Connection errors leave the manager in Disconnected state so a retry is
// always possible.
func IsConnection(err error) bool {
	code := GetCode(err)

	return code >= 200 && code < 300
}

// IsExecution reports whether the error carries a trade execution error code.
func IsExecution(err error) bool {
	code := GetCode(err)

	return code >= 700 && code < 800
}
