package actionpipe

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the pipeline engine.
var (
	// ErrUnknownMode is returned when a dispatch or configuration names an
	// execution mode the engine does not recognize.
	ErrUnknownMode = errors.New("unknown execution mode")

	// ErrHandlerTimeout is the cause recorded when a handler exceeds its
	// configured timeout.
	ErrHandlerTimeout = errors.New("handler timeout exceeded")
)

// HandlerError records a single handler failure within a dispatch.
type HandlerError struct {
	// HandlerID is the id of the registration whose handler failed.
	HandlerID string

	// Err is the underlying error.
	Err error

	// At is when the failure was recorded.
	At time.Time
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler " + e.HandlerID + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered handler panic as an error.
type PanicError struct {
	// HandlerID is the id of the registration whose handler panicked.
	HandlerID string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace captured at recovery.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler %s panicked: %v", e.HandlerID, e.Value)
}
