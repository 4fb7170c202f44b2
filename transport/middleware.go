package transport

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/httpdispatch/logger"
	"github.com/kbukum/httpdispatch/observability"
)

// DefaultRequestIDHeader is the header set by WithRequestID when none is given.
const DefaultRequestIDHeader = "X-Request-ID"

// Middleware transforms a Transport by wrapping it.
type Middleware func(Transport) Transport

// Chain composes middlewares. The first middleware is outermost:
// Chain(a, b, c)(t) is equivalent to a(b(c(t))).
func Chain(middlewares ...Middleware) Middleware {
	return func(inner Transport) Transport {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// Named is implemented by transports that carry a name for logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns t's name, or "transport" when it has none.
func NameOf(t Transport) string {
	if n, ok := t.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return "transport"
}

// WithLogging logs each exchange: debug on success, warn on failure.
func WithLogging(log *logger.Logger) Middleware {
	return func(inner Transport) Transport {
		return &loggingTransport{inner: inner, log: log.WithComponent("transport")}
	}
}

type loggingTransport struct {
	inner Transport
	log   *logger.Logger
}

func (l *loggingTransport) Name() string { return NameOf(l.inner) }

func (l *loggingTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Execute(ctx, req)

	fields := logger.MergeWithDuration(logger.Fields(
		logger.FieldTransport, NameOf(l.inner),
	), time.Since(start))
	if req != nil {
		fields[logger.FieldMethod] = req.Method
		fields[logger.FieldURL] = req.URL
		if id := req.Header.Get(DefaultRequestIDHeader); id != "" {
			fields[logger.FieldRequestID] = id
		}
	}

	if err != nil {
		l.log.Warn("transport exchange failed", logger.MergeWithError(fields, err))
		return resp, err
	}
	if resp != nil {
		fields[logger.FieldStatus] = resp.StatusCode
	}
	l.log.Debug("transport exchange ok", fields)
	return resp, nil
}

// WithMetrics records exchange counts, durations and in-flight gauges.
func WithMetrics(metrics *observability.Metrics) Middleware {
	return func(inner Transport) Transport {
		return &metricsTransport{inner: inner, metrics: metrics}
	}
}

type metricsTransport struct {
	inner   Transport
	metrics *observability.Metrics
}

func (m *metricsTransport) Name() string { return NameOf(m.inner) }

func (m *metricsTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	method := ""
	if req != nil {
		method = req.Method
	}

	m.metrics.TransportStart(ctx)
	start := time.Now()
	resp, err := m.inner.Execute(ctx, req)

	status := "error"
	var te *Error
	switch {
	case err == nil && resp != nil:
		status = strconv.Itoa(resp.StatusCode)
	case errors.As(err, &te):
		status = te.Code.String()
	}
	m.metrics.TransportEnd(ctx, NameOf(m.inner), method, status, time.Since(start))

	return resp, err
}

// WithTracing wraps each exchange in a span named after the transport.
func WithTracing(serviceName string) Middleware {
	return func(inner Transport) Transport {
		return &tracingTransport{inner: inner, serviceName: serviceName}
	}
}

type tracingTransport struct {
	inner       Transport
	serviceName string
}

func (t *tracingTransport) Name() string { return NameOf(t.inner) }

func (t *tracingTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanTransport)
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrServiceName, t.serviceName)
	if req != nil {
		observability.SetSpanAttribute(ctx, observability.AttrMethod, req.Method)
		observability.SetSpanAttribute(ctx, observability.AttrURL, req.URL)
	}

	resp, err := t.inner.Execute(ctx, req)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return resp, err
	}
	if resp != nil {
		observability.SetSpanAttribute(ctx, observability.AttrStatusCode, resp.StatusCode)
	}
	return resp, nil
}

// WithRequestID stamps each request with a fresh UUID in header, unless the
// caller already set one. The id is recorded on the active span. The
// caller's request is never mutated.
func WithRequestID(header string) Middleware {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return func(inner Transport) Transport {
		return &requestIDTransport{inner: inner, header: header}
	}
}

type requestIDTransport struct {
	inner  Transport
	header string
}

func (r *requestIDTransport) Name() string { return NameOf(r.inner) }

func (r *requestIDTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return r.inner.Execute(ctx, req)
	}
	if id := req.Header.Get(r.header); id != "" {
		observability.SetSpanAttribute(ctx, observability.AttrRequestID, id)
		return r.inner.Execute(ctx, req)
	}
	id := uuid.NewString()
	observability.SetSpanAttribute(ctx, observability.AttrRequestID, id)
	stamped := req.Clone()
	if stamped.Header == nil {
		stamped.Header = make(map[string][]string)
	}
	stamped.Header.Set(r.header, id)
	return r.inner.Execute(ctx, stamped)
}
