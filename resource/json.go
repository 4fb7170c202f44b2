package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kbukum/httpdispatch/dispatcher"
	"github.com/kbukum/httpdispatch/transport"
)

const contentTypeJSON = "application/json"

// JSONResource sends an optional JSON body and decodes JSON responses.
type JSONResource[T, E any] struct {
	req    *transport.Request
	schema *gojsonschema.Schema
}

var _ dispatcher.Resource[struct{}, MessageError] = (*JSONResource[struct{}, MessageError])(nil)

// JSON creates a JSON resource. It fails when the body cannot be encoded or
// the schema cannot be compiled.
func JSON[T, E any](method, url string, opts ...Option) (*JSONResource[T, E], error) {
	o := newOptions(opts)

	req := &transport.Request{
		Method: strings.ToUpper(method),
		URL:    url,
		Header: o.header,
		Query:  o.query,
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", contentTypeJSON)
	}

	if o.hasBody && o.body != nil {
		body, err := json.Marshal(o.body)
		if err != nil {
			return nil, fmt.Errorf("resource: encode body: %w", err)
		}
		req.Body = body
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", contentTypeJSON)
		}
	}

	r := &JSONResource[T, E]{req: req}
	if o.schema != nil {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(o.schema))
		if err != nil {
			return nil, fmt.Errorf("resource: compile schema: %w", err)
		}
		r.schema = schema
	}
	return r, nil
}

// Get creates a JSON GET resource.
func Get[T, E any](url string, opts ...Option) (*JSONResource[T, E], error) {
	return JSON[T, E](http.MethodGet, url, opts...)
}

// Post creates a JSON POST resource sending body.
func Post[T, E any](url string, body any, opts ...Option) (*JSONResource[T, E], error) {
	return JSON[T, E](http.MethodPost, url, append(opts, WithBody(body))...)
}

// Request returns a copy of the prepared request.
func (r *JSONResource[T, E]) Request() *transport.Request {
	return r.req.Clone()
}

// Parse decodes a success body. An empty body yields the zero T.
func (r *JSONResource[T, E]) Parse(body []byte, _ dispatcher.Meta) (T, error) {
	if r.schema != nil {
		if err := validateSchema(r.schema, body); err != nil {
			var zero T
			return zero, err
		}
	}
	return decodeJSON[T](body)
}

// ParseError decodes an error body. An empty body yields the zero E.
func (r *JSONResource[T, E]) ParseError(body []byte, _ dispatcher.Meta) (E, error) {
	return decodeJSON[E](body)
}

func decodeJSON[V any](body []byte) (V, error) {
	var v V
	if len(bytes.TrimSpace(body)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("resource: decode %T: %w", v, err)
	}
	return v, nil
}

// SchemaError reports a body that does not match the resource's schema.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "resource: schema validation failed: " + strings.Join(e.Violations, "; ")
}

func validateSchema(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("resource: schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return &SchemaError{Violations: violations}
}
