package resource

import (
	"net/http"
	"net/url"
)

type options struct {
	header  http.Header
	query   url.Values
	body    any
	hasBody bool
	schema  []byte
}

// Option configures a JSON or Raw resource.
type Option func(*options)

// WithHeader adds a request header.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.header.Add(key, value)
	}
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) Option {
	return func(o *options) {
		o.query.Add(key, value)
	}
}

// WithBody sets the request body. JSON resources encode v as JSON; Raw
// resources require v to be []byte or string.
func WithBody(v any) Option {
	return func(o *options) {
		o.body = v
		o.hasBody = true
	}
}

// WithSchema validates success bodies against a JSON schema before decoding.
// A body that does not match fails with a *SchemaError.
func WithSchema(schema []byte) Option {
	return func(o *options) {
		o.schema = schema
	}
}

func newOptions(opts []Option) *options {
	o := &options{header: http.Header{}, query: url.Values{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
