package dispatcher

import (
	"errors"
	"fmt"
	"reflect"
)

// Kind classifies a dispatch failure.
type Kind int

const (
	// KindTransportFailure means no response was received: DNS, connection
	// reset, timeout or cancellation.
	KindTransportFailure Kind = iota + 1
	// KindParseFailure means a body was received but could not be decoded
	// into the success or the error type.
	KindParseFailure
	// KindInvalidResponse means the transport returned a response without a
	// usable status. Only a misbehaving transport produces it.
	KindInvalidResponse
	// KindServerError means a non-2xx response whose body decoded into the
	// error type.
	KindServerError
)

// String returns the kind name used in logs, spans and metrics.
func (k Kind) String() string {
	switch k {
	case KindTransportFailure:
		return "transport_failure"
	case KindParseFailure:
		return "parse_failure"
	case KindInvalidResponse:
		return "invalid_response"
	case KindServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Severity tells callers how to report a failure.
type Severity int

const (
	// SeverityBug marks failures that point at a defect or at the remote
	// service and should be reported.
	SeverityBug Severity = iota
	// SeverityAbort marks failures that abort the operation without a report.
	SeverityAbort
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityAbort {
		return "abort"
	}
	return "bug"
}

const (
	msgTransportFailure = "Received a session error."
	msgParseFailure     = "Error parsing the network response."
	msgInvalidResponse  = "Received unexpected response from the network."
	msgServerError      = "Error returned by the server"
)

// Describer is implemented by values that carry a human-readable
// description. It is looked up anywhere in an error chain. A Describer that
// returns "" falls back to the Error() text and then to the generic phrase
// for the failure kind.
type Describer interface {
	Description() string
}

// Error is the only error type returned by the dispatch entry points.
type Error struct {
	Kind Kind
	// Cause is the underlying error. For server errors it is the parsed
	// error value when that value is itself an error.
	Cause error
	// Value is the parsed error body of a server error.
	Value any
	// Meta is set for server errors and parse failures.
	Meta *Meta
}

func newTransportFailure(cause error) *Error {
	return &Error{Kind: KindTransportFailure, Cause: cause}
}

func newParseFailure(cause error, meta Meta) *Error {
	return &Error{Kind: KindParseFailure, Cause: cause, Meta: &meta}
}

func newInvalidResponse() *Error {
	return &Error{Kind: KindInvalidResponse}
}

func newServerError(value any, meta Meta) *Error {
	e := &Error{Kind: KindServerError, Value: value, Meta: &meta}
	if cause, ok := value.(error); ok && !isNil(cause) {
		e.Cause = cause
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Description()
}

// Description renders the failure for humans.
func (e *Error) Description() string {
	switch e.Kind {
	case KindServerError:
		var url string
		var code int
		if e.Meta != nil {
			url, code = e.Meta.URLString(), e.Meta.StatusCode
		}
		s := fmt.Sprintf("%s: URL: %s, Code: %d", msgServerError, url, code)
		if desc := describe(e.Value); desc != "" {
			s += ", Description: " + desc
		}
		return s
	case KindTransportFailure:
		if desc := describe(e.Cause); desc != "" {
			return desc
		}
		return msgTransportFailure
	case KindParseFailure:
		if desc := describe(e.Cause); desc != "" {
			return desc
		}
		return msgParseFailure
	default:
		return msgInvalidResponse
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Severity reports parse failures as aborts and everything else as bugs.
func (e *Error) Severity() Severity {
	if e.Kind == KindParseFailure {
		return SeverityAbort
	}
	return SeverityBug
}

// describe returns v's own description: a Describer in the error chain,
// then a non-empty Error(), then a non-empty String(). A string value is its
// own description. It returns "" when v has none, including a nil pointer
// held in an interface.
func describe(v any) string {
	if isNil(v) {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		var d Describer
		if errors.As(err, &d) && !isNil(d) {
			if desc := d.Description(); desc != "" {
				return desc
			}
		}
	} else if d, ok := v.(Describer); ok {
		if desc := d.Description(); desc != "" {
			return desc
		}
	}
	if err, ok := v.(error); ok {
		if msg := err.Error(); msg != "" {
			return msg
		}
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return ""
}

// isNil reports whether v is nil or a nil pointer, map, slice, func, chan
// or interface wrapped in a non-nil interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsTransportFailure checks if err is a transport failure.
func IsTransportFailure(err error) bool { return kindOf(err) == KindTransportFailure }

// IsParseFailure checks if err is a parse failure.
func IsParseFailure(err error) bool { return kindOf(err) == KindParseFailure }

// IsInvalidResponse checks if err is an invalid response.
func IsInvalidResponse(err error) bool { return kindOf(err) == KindInvalidResponse }

// IsServerError checks if err is a server error.
func IsServerError(err error) bool { return kindOf(err) == KindServerError }

// ServerErrorValue returns the parsed error body carried by a server error.
func ServerErrorValue[E any](err error) (E, bool) {
	var zero E
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindServerError {
		return zero, false
	}
	v, ok := e.Value.(E)
	if !ok {
		return zero, false
	}
	return v, true
}

// MetaOf returns the response metadata carried by err, if any.
func MetaOf(err error) (Meta, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Meta == nil {
		return Meta{}, false
	}
	return *e.Meta, true
}
