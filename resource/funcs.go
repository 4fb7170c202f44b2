package resource

import (
	"github.com/kbukum/httpdispatch/dispatcher"
	"github.com/kbukum/httpdispatch/transport"
)

// Funcs implements dispatcher.Resource with plain functions. A nil parse
// function yields the zero value.
type Funcs[T, E any] struct {
	BuildFn      func() *transport.Request
	ParseFn      func(body []byte, meta dispatcher.Meta) (T, error)
	ParseErrorFn func(body []byte, meta dispatcher.Meta) (E, error)
}

var _ dispatcher.Resource[string, string] = Funcs[string, string]{}

// Request calls BuildFn.
func (f Funcs[T, E]) Request() *transport.Request {
	if f.BuildFn == nil {
		return nil
	}
	return f.BuildFn()
}

// Parse calls ParseFn.
func (f Funcs[T, E]) Parse(body []byte, meta dispatcher.Meta) (T, error) {
	if f.ParseFn == nil {
		var zero T
		return zero, nil
	}
	return f.ParseFn(body, meta)
}

// ParseError calls ParseErrorFn.
func (f Funcs[T, E]) ParseError(body []byte, meta dispatcher.Meta) (E, error) {
	if f.ParseErrorFn == nil {
		var zero E
		return zero, nil
	}
	return f.ParseErrorFn(body, meta)
}
