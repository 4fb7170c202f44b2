package dispatcher

import (
	"net/http"
	"net/url"

	"github.com/kbukum/httpdispatch/transport"
)

// Resource describes one HTTP operation producing T on success and E when
// the server answers with a non-2xx status.
//
// Implementations are read-only during the dispatch that consumes them and
// need not be safe for concurrent use otherwise.
type Resource[T, E any] interface {
	// Request builds the outbound request.
	Request() *transport.Request
	// Parse decodes a 2xx body.
	Parse(body []byte, meta Meta) (T, error)
	// ParseError decodes a non-2xx body.
	ParseError(body []byte, meta Meta) (E, error)
}

// Meta is the metadata of a received response.
type Meta struct {
	StatusCode int
	Header     http.Header
	// URL is the final URL after redirects.
	URL *url.URL
}

// URLString returns the URL as text, or "" when unknown.
func (m Meta) URLString() string {
	if m.URL == nil {
		return ""
	}
	return m.URL.String()
}

// Response pairs a parsed value with the metadata of the response that
// produced it.
type Response[T any] struct {
	Value T
	Meta  Meta
}

func metaOf(resp *transport.Response, req *transport.Request) Meta {
	meta := Meta{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		URL:        resp.URL,
	}
	if meta.Header == nil {
		meta.Header = http.Header{}
	}
	if meta.URL == nil {
		if u, err := url.Parse(req.URL); err == nil {
			meta.URL = u
		}
	}
	return meta
}
