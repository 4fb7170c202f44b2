package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
)

// Transport performs one HTTP exchange. Implementations must honour ctx
// cancellation while the call is in flight and must be safe for
// concurrent use.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Execute calls f(ctx, req).
func (f Func) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method (GET, POST, ...).
	Method string `validate:"required,uppercase"`
	// URL is absolute, or relative to the transport's BaseURL.
	URL string `validate:"required"`
	// Header holds request-specific headers, merged over transport defaults.
	Header http.Header
	// Query holds extra query parameters appended to URL.
	Query url.Values
	// Body is sent as-is. Nil means no body.
	Body []byte
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the request has the fields a transport needs.
func (r *Request) Validate() error {
	if r == nil {
		return NewValidationError("request is nil", nil)
	}
	if err := validate.Struct(r); err != nil {
		return NewValidationError("invalid request", err)
	}
	return nil
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Header != nil {
		c.Header = r.Header.Clone()
	}
	if r.Query != nil {
		c.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

// Response is the raw outcome of one exchange.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Header holds the response headers.
	Header http.Header
	// Body is the full response body.
	Body []byte
	// URL is the final URL after redirects.
	URL *url.URL
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
