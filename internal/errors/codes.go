// Package errors defines the closed error taxonomy for client-side operations.
package errors

import (
	"fmt"
)

// ErrorCode represents a specific failure class for client operations.
type ErrorCode string

const (
	// CodeValidation indicates locally rejected input; never reaches the remote service.
	CodeValidation ErrorCode = "VALIDATION"
	// CodeInvalidCredentials indicates a rejected login.
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// CodeEmailConflict indicates a registration with an already-registered email.
	CodeEmailConflict ErrorCode = "EMAIL_CONFLICT"
	// CodeTransport indicates the remote call failed or the service was unreachable.
	CodeTransport ErrorCode = "TRANSPORT"
	// CodeMalformedState indicates a corrupt persisted session snapshot.
	CodeMalformedState ErrorCode = "MALFORMED_STATE"
	// CodeBusy indicates an operation was rejected because one of the same kind is in flight.
	CodeBusy ErrorCode = "BUSY"
)

// ClientError is a structured error carrying a code and a user-visible message.
type ClientError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the message meant for the shared error slot.
func (e *ClientError) UserMessage() string {
	return e.Message
}

// Convenience constructors for the taxonomy.

// Validation creates a validation error.
func Validation(msg string) *ClientError {
	return &ClientError{Code: CodeValidation, Message: msg}
}

// InvalidCredentials creates a rejected-login error.
func InvalidCredentials() *ClientError {
	return &ClientError{Code: CodeInvalidCredentials, Message: "invalid credentials"}
}

// EmailConflict creates a duplicate-registration error.
func EmailConflict() *ClientError {
	return &ClientError{Code: CodeEmailConflict, Message: "email already exists"}
}

// Transport creates a transport error wrapping the network-level cause.
func Transport(msg string, cause error) *ClientError {
	return &ClientError{Code: CodeTransport, Message: msg, Cause: cause}
}

// MalformedState creates a corrupt-snapshot error.
func MalformedState(cause error) *ClientError {
	return &ClientError{Code: CodeMalformedState, Message: "malformed persisted state", Cause: cause}
}

// Busy creates a busy-rejection error for an overlapping operation.
func Busy(op string) *ClientError {
	return &ClientError{Code: CodeBusy, Message: fmt.Sprintf("%s already in progress", op)}
}

// IsCode checks whether err is a ClientError with the given code.
func IsCode(err error, code ErrorCode) bool {
	if cerr, ok := err.(*ClientError); ok {
		return cerr.Code == code
	}
	return false
}

// CodeOf extracts the code from any error, returning defaultCode for foreign errors.
func CodeOf(err error, defaultCode ErrorCode) ErrorCode {
	if cerr, ok := err.(*ClientError); ok {
		return cerr.Code
	}
	return defaultCode
}

// MessageOf returns the user-visible message for any error. Foreign errors are
// reported with the generic transport message so raw internals never reach the UI.
func MessageOf(err error) string {
	if cerr, ok := err.(*ClientError); ok {
		return cerr.Message
	}
	return "something went wrong, please try again"
}
