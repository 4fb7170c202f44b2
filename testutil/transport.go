package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kbukum/httpdispatch/component"
	"github.com/kbukum/httpdispatch/transport"
)

// fakeBase resolves relative request URLs.
var fakeBase = &url.URL{Scheme: "http", Host: "fake.local", Path: "/"}

// Reply is one scripted outcome of a fake Transport.
type Reply struct {
	Status int
	Header http.Header
	Body   []byte
	// Err is returned instead of a response when set.
	Err error
	// Delay holds the reply back; the call fails early if ctx is done.
	Delay time.Duration
}

// JSON returns a reply with a JSON body.
func JSON(status int, body string) Reply {
	return Reply{
		Status: status,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(body),
	}
}

// Text returns a reply with a plain text body.
func Text(status int, body string) Reply {
	return Reply{
		Status: status,
		Header: http.Header{"Content-Type": []string{"text/plain"}},
		Body:   []byte(body),
	}
}

// Fail returns a reply that fails the exchange with err.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Transport is an in-memory transport.Transport. Replies are served in
// order and the last one repeats once the script runs out. With no script
// every call gets an empty 200.
type Transport struct {
	name string

	mu       sync.Mutex
	script   []Reply
	next     int
	requests []*transport.Request
	started  bool
}

var (
	_ transport.Transport = (*Transport)(nil)
	_ TestComponent       = (*Transport)(nil)
)

// NewTransport creates a fake transport serving replies.
func NewTransport(name string, replies ...Reply) *Transport {
	return &Transport{name: name, script: replies}
}

// Push appends replies to the script.
func (f *Transport) Push(replies ...Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, replies...)
}

// Execute records req and serves the next reply.
func (f *Transport) Execute(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.requests = append(f.requests, req.Clone())
	reply := f.pick()
	f.mu.Unlock()

	if reply.Delay > 0 {
		timer := time.NewTimer(reply.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, contextError(ctx.Err())
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	if reply.Err != nil {
		return nil, reply.Err
	}

	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, transport.NewValidationError("resolve url", err)
	}
	if !target.IsAbs() {
		target = fakeBase.ResolveReference(target)
	}

	header := reply.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &transport.Response{
		StatusCode: reply.Status,
		Header:     header,
		Body:       append([]byte(nil), reply.Body...),
		URL:        target,
	}, nil
}

func (f *Transport) pick() Reply {
	if len(f.script) == 0 {
		return Reply{Status: http.StatusOK}
	}
	i := f.next
	if i >= len(f.script) {
		i = len(f.script) - 1
	} else {
		f.next++
	}
	return f.script[i]
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return transport.NewTimeoutError(err)
	}
	return transport.NewCanceledError(err)
}

// Calls returns the number of exchanges attempted.
func (f *Transport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns copies of the recorded requests in arrival order.
func (f *Transport) Requests() []*transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*transport.Request, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Clone()
	}
	return out
}

// LastRequest returns the most recent request, or nil.
func (f *Transport) LastRequest() *transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1].Clone()
}

// Name returns the transport name.
func (f *Transport) Name() string { return f.name }

// Start marks the fake as started.
func (f *Transport) Start(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

// Stop marks the fake as stopped.
func (f *Transport) Stop(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	return nil
}

// Health reports healthy while started.
func (f *Transport) Health(_ context.Context) component.Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return component.Health{Name: f.name, Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: f.name, Status: component.StatusHealthy}
}

// Reset forgets recorded requests and rewinds the script.
func (f *Transport) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
	f.next = 0
	return nil
}

type snapshot struct {
	next     int
	requests []*transport.Request
}

// Snapshot captures the recorded requests and the script position.
func (f *Transport) Snapshot(_ context.Context) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return snapshot{next: f.next, requests: append([]*transport.Request(nil), f.requests...)}, nil
}

// Restore returns to a state captured by Snapshot.
func (f *Transport) Restore(_ context.Context, s interface{}) error {
	snap, ok := s.(snapshot)
	if !ok {
		return fmt.Errorf("testutil: unexpected snapshot type %T", s)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = snap.next
	f.requests = append([]*transport.Request(nil), snap.requests...)
	return nil
}
