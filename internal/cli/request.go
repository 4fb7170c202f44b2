package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kbukum/httpdispatch/dispatcher"
	"github.com/kbukum/httpdispatch/resource"
	"github.com/kbukum/httpdispatch/transport"
)

// requestOptions are the flags shared by commands that send a request.
type requestOptions struct {
	headers []string
	query   []string
	data    string
	schema  string
	json    bool
}

func (r *requestOptions) register(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&r.headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	fs.StringArrayVarP(&r.query, "query", "q", nil, "Query parameter as key=value (repeatable)")
	fs.StringVarP(&r.data, "data", "d", "", "Request body; @file reads a file and - reads stdin")
	fs.StringVar(&r.schema, "schema", "", "JSON schema file the success body must match (implies --json)")
	fs.BoolVar(&r.json, "json", false, "Send and expect JSON")
}

// build turns the flags into a resource. Success bodies are returned as
// bytes; error bodies are reduced to a resource.MessageError.
func (r *requestOptions) build(method, url string, stdin io.Reader) (dispatcher.Resource[[]byte, resource.MessageError], error) {
	var opts []resource.Option
	for _, h := range r.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", h)
		}
		opts = append(opts, resource.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	for _, q := range r.query {
		key, value, ok := strings.Cut(q, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q, want key=value", q)
		}
		opts = append(opts, resource.WithQuery(key, value))
	}

	body, err := readBody(r.data, stdin)
	if err != nil {
		return nil, err
	}

	if r.schema == "" && !r.json {
		if body != nil {
			opts = append(opts, resource.WithBody(body))
		}
		raw, err := resource.Raw[resource.MessageError](method, url, opts...)
		if err != nil {
			return nil, err
		}
		return resource.Funcs[[]byte, resource.MessageError]{
			BuildFn:      raw.Request,
			ParseFn:      raw.Parse,
			ParseErrorFn: resource.ParseMessageError,
		}, nil
	}

	if body != nil {
		opts = append(opts, resource.WithBody(json.RawMessage(body)))
	}
	if r.schema != "" {
		schema, err := os.ReadFile(r.schema)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		opts = append(opts, resource.WithSchema(schema))
	}
	res, err := resource.JSON[json.RawMessage, resource.MessageError](method, url, opts...)
	if err != nil {
		return nil, err
	}
	return resource.Funcs[[]byte, resource.MessageError]{
		BuildFn: res.Request,
		ParseFn: func(body []byte, meta dispatcher.Meta) ([]byte, error) {
			v, err := res.Parse(body, meta)
			return []byte(v), err
		},
		ParseErrorFn: resource.ParseMessageError,
	}, nil
}

// readBody resolves the --data flag. Nil means no body.
func readBody(data string, stdin io.Reader) ([]byte, error) {
	switch {
	case data == "":
		return nil, nil
	case data == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return b, nil
	default:
		return []byte(data), nil
	}
}

// describeRequest renders the request line for text output.
func describeRequest(req *transport.Request) string {
	if req == nil {
		return ""
	}
	return req.Method + " " + req.URL
}
