package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCode classifies transport errors.
type ErrorCode int

const (
	// ErrCodeConnection indicates a connection failure (refused, DNS, reset).
	ErrCodeConnection ErrorCode = iota
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout
	// ErrCodeCanceled indicates the caller cancelled the request.
	ErrCodeCanceled
	// ErrCodeValidation indicates the request could not be built.
	ErrCodeValidation
	// ErrCodeCircuitOpen indicates the circuit breaker rejected the call.
	ErrCodeCircuitOpen
	// ErrCodeRateLimited indicates the rate limiter rejected the call.
	ErrCodeRateLimited
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeConnection:
		return "connection"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeCanceled:
		return "canceled"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeCircuitOpen:
		return "circuit_open"
	case ErrCodeRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Error is a transport failure: no usable response was received.
type Error struct {
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether another attempt may succeed.
	Retryable bool
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s: %s", e.Code, e.Message)
}

// Description returns the human-readable message without the code prefix.
func (e *Error) Description() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewCanceledError creates a cancellation error.
func NewCanceledError(err error) *Error {
	return &Error{Code: ErrCodeCanceled, Message: err.Error(), Retryable: false, Err: err}
}

// NewValidationError creates a validation error.
func NewValidationError(msg string, err error) *Error {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Code: ErrCodeValidation, Message: msg, Retryable: false, Err: err}
}

// NewCircuitOpenError creates a circuit-open error.
func NewCircuitOpenError(err error) *Error {
	return &Error{Code: ErrCodeCircuitOpen, Message: err.Error(), Retryable: false, Err: err}
}

// NewRateLimitedError creates a rate-limit error.
func NewRateLimitedError(err error) *Error {
	return &Error{Code: ErrCodeRateLimited, Message: err.Error(), Retryable: false, Err: err}
}

// classifyError maps an error raised while waiting on ctx or the network
// into a typed transport error.
func classifyError(ctx context.Context, err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return NewCanceledError(err)
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return NewTimeoutError(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeTimeout
}

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConnection
}

// IsCanceled checks if an error is a cancellation error.
func IsCanceled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeCanceled
}

// IsCircuitOpen checks if an error was raised by an open circuit breaker.
func IsCircuitOpen(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeCircuitOpen
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
