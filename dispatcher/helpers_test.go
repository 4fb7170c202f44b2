package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kbukum/httpdispatch/logger"
	"github.com/kbukum/httpdispatch/transport"
)

type user struct {
	Name string `json:"name"`
}

type apiError struct {
	Message string `json:"message"`
}

func (e apiError) Description() string { return e.Message }

// testResource decodes JSON on both paths and counts parse calls.
type testResource[T, E any] struct {
	req           *transport.Request
	parseErr      error
	parseErrorErr error

	parseCalls      atomic.Int32
	parseErrorCalls atomic.Int32
}

func newTestResource[T, E any](method, rawURL string) *testResource[T, E] {
	return &testResource[T, E]{req: &transport.Request{Method: method, URL: rawURL}}
}

func (r *testResource[T, E]) Request() *transport.Request {
	return r.req
}

func (r *testResource[T, E]) Parse(body []byte, _ Meta) (T, error) {
	r.parseCalls.Add(1)
	var v T
	if r.parseErr != nil {
		return v, r.parseErr
	}
	err := json.Unmarshal(body, &v)
	return v, err
}

func (r *testResource[T, E]) ParseError(body []byte, _ Meta) (E, error) {
	r.parseErrorCalls.Add(1)
	var v E
	if r.parseErrorErr != nil {
		return v, r.parseErrorErr
	}
	err := json.Unmarshal(body, &v)
	return v, err
}

// fixedTransport returns the same response to every call.
type fixedTransport struct {
	status int
	body   string
	header http.Header
	url    string
	err    error

	calls atomic.Int32
}

func (f *fixedTransport) Execute(_ context.Context, req *transport.Request) (*transport.Response, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	raw := f.url
	if raw == "" {
		raw = req.URL
	}
	u, _ := url.Parse(raw)
	return &transport.Response{
		StatusCode: f.status,
		Header:     f.header,
		Body:       []byte(f.body),
		URL:        u,
	}, nil
}

// gatedTransport blocks every call until release is closed or ctx is done,
// recording whether the call observed cancellation.
type gatedTransport struct {
	status  int
	body    string
	release chan struct{}

	startOnce  sync.Once
	started    chan struct{}
	cancelOnce sync.Once
	canceled   chan struct{}
	calls      atomic.Int32
}

func newGatedTransport(status int, body string) *gatedTransport {
	return &gatedTransport{
		status:   status,
		body:     body,
		release:  make(chan struct{}),
		started:  make(chan struct{}),
		canceled: make(chan struct{}),
	}
}

func (g *gatedTransport) Execute(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	g.calls.Add(1)
	g.startOnce.Do(func() { close(g.started) })

	select {
	case <-g.release:
		u, _ := url.Parse(req.URL)
		return &transport.Response{StatusCode: g.status, Body: []byte(g.body), URL: u}, nil
	case <-ctx.Done():
		g.cancelOnce.Do(func() { close(g.canceled) })
		return nil, transport.NewCanceledError(ctx.Err())
	}
}

func newTestDispatcher(t *testing.T, tr transport.Transport) *Dispatcher {
	t.Helper()
	d, err := New(tr, WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}
