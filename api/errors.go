// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-udp.

package api

import "fmt"

// Common errors used across the library.
var (
	ErrTransportClosed     = fmt.Errorf("transport is closed")
	ErrTransportNotStarted = fmt.Errorf("transport is not started")
	ErrConnectionClosed    = fmt.Errorf("connection is closed")
	ErrInvalidArgument     = fmt.Errorf("invalid argument")
	ErrOperationTimeout    = fmt.Errorf("operation timeout")
	ErrNotSupported        = fmt.Errorf("operation not supported")
	ErrNotFound            = fmt.Errorf("resource not found")
	ErrSelectorClosed      = fmt.Errorf("selector is closed")

	// ErrUnhandledMessage reports a write of a message that is neither a
	// buffer nor a file chunk. It is a programming error and never retried.
	ErrUnhandledMessage = fmt.Errorf("unhandled message type")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeNotFound
	ErrCodeBind
	ErrCodeConfigure
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap attaches a cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}
