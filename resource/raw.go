package resource

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/kbukum/httpdispatch/dispatcher"
	"github.com/kbukum/httpdispatch/transport"
)

// RawResource returns success bodies unchanged and decodes error bodies as
// JSON into E.
type RawResource[E any] struct {
	req *transport.Request
}

var _ dispatcher.Resource[[]byte, MessageError] = (*RawResource[MessageError])(nil)

// Raw creates a resource whose success value is the body bytes. A body set
// with WithBody must be []byte or string.
func Raw[E any](method, url string, opts ...Option) (*RawResource[E], error) {
	o := newOptions(opts)
	req := &transport.Request{
		Method: strings.ToUpper(method),
		URL:    url,
		Header: o.header,
		Query:  o.query,
	}
	if o.hasBody {
		switch b := o.body.(type) {
		case []byte:
			req.Body = b
		case string:
			req.Body = []byte(b)
		case nil:
		default:
			return nil, fmt.Errorf("resource: raw body must be []byte or string, got %T", o.body)
		}
	}
	return &RawResource[E]{req: req}, nil
}

// Download creates a raw GET resource.
func Download[E any](url string, opts ...Option) (*RawResource[E], error) {
	return Raw[E](http.MethodGet, url, opts...)
}

// Request returns a copy of the prepared request.
func (r *RawResource[E]) Request() *transport.Request {
	return r.req.Clone()
}

// Parse returns a copy of body.
func (r *RawResource[E]) Parse(body []byte, _ dispatcher.Meta) ([]byte, error) {
	return append([]byte(nil), body...), nil
}

// ParseError decodes an error body. An empty body yields the zero E.
func (r *RawResource[E]) ParseError(body []byte, _ dispatcher.Meta) (E, error) {
	return decodeJSON[E](body)
}
