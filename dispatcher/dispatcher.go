package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/httpdispatch/logger"
	"github.com/kbukum/httpdispatch/observability"
	"github.com/kbukum/httpdispatch/transport"
)

var (
	errNilTransport = errors.New("dispatcher: transport is nil")
	errNilResource  = errors.New("dispatcher: resource is nil")
	errNilRequest   = errors.New("dispatcher: resource built a nil request")
)

// Dispatcher runs resources through a shared transport. It holds no
// per-call state and is safe for concurrent use.
type Dispatcher struct {
	transport transport.Transport
	log       *logger.Logger
	metrics   *observability.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithMetrics records one dispatch.total/dispatch.duration sample per dispatch.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a Dispatcher over t.
func New(t transport.Transport, opts ...Option) (*Dispatcher, error) {
	if t == nil {
		return nil, errNilTransport
	}
	d := &Dispatcher{transport: t}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.GetGlobalLogger()
	}
	d.log = d.log.WithComponent("dispatcher")
	return d, nil
}

// Transport returns the underlying transport.
func (d *Dispatcher) Transport() transport.Transport {
	return d.transport
}

// Dispatch executes r once and classifies the outcome. On success it returns
// the parsed value with its response metadata; otherwise the error is a
// *Error. Cancelling ctx cancels the transport call and no parse operation
// runs afterwards.
func Dispatch[T, E any](ctx context.Context, d *Dispatcher, r Resource[T, E]) (*Response[T], error) {
	if d == nil {
		return nil, newTransportFailure(errNilTransport)
	}
	if r == nil {
		return nil, newTransportFailure(errNilResource)
	}

	start := time.Now()
	id := uuid.NewString()

	ctx, span := observability.StartSpan(ctx, observability.SpanDispatch)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrDispatchID, id)

	req := r.Request()
	fields := logger.Fields(logger.FieldDispatchID, id)
	if req != nil {
		fields[logger.FieldMethod] = req.Method
		fields[logger.FieldURL] = req.URL
		observability.SetSpanAttribute(ctx, observability.AttrMethod, req.Method)
		observability.SetSpanAttribute(ctx, observability.AttrURL, req.URL)
	}

	resp, derr := execute(ctx, d.transport, r, req)
	elapsed := time.Since(start)
	fields = logger.MergeWithDuration(fields, elapsed)

	if derr != nil {
		if derr.Meta != nil {
			fields[logger.FieldStatus] = derr.Meta.StatusCode
			observability.SetSpanAttribute(ctx, observability.AttrStatusCode, derr.Meta.StatusCode)
		}
		fields[logger.FieldKind] = derr.Kind.String()
		observability.SetSpanAttribute(ctx, observability.AttrKind, derr.Kind.String())
		observability.SetSpanError(ctx, derr)
		d.metrics.RecordDispatch(ctx, derr.Kind.String(), elapsed)
		d.log.Warn("dispatch failed", logger.MergeWithError(fields, derr))
		return nil, derr
	}

	fields[logger.FieldStatus] = resp.Meta.StatusCode
	observability.SetSpanAttribute(ctx, observability.AttrStatusCode, resp.Meta.StatusCode)
	d.metrics.RecordDispatch(ctx, "ok", elapsed)
	d.log.Debug("dispatch ok", fields)
	return resp, nil
}

// execute is the classification algorithm. Every path returns exactly one
// of a response or an error.
func execute[T, E any](ctx context.Context, t transport.Transport, r Resource[T, E], req *transport.Request) (*Response[T], *Error) {
	if req == nil {
		return nil, newTransportFailure(errNilRequest)
	}

	raw, err := t.Execute(ctx, req)
	if err != nil {
		return nil, newTransportFailure(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, newTransportFailure(err)
	}
	if raw == nil || raw.StatusCode < 100 || raw.StatusCode > 599 {
		return nil, newInvalidResponse()
	}

	meta := metaOf(raw, req)
	if raw.IsSuccess() {
		value, err := r.Parse(raw.Body, meta)
		if err != nil {
			return nil, newParseFailure(err, meta)
		}
		return &Response[T]{Value: value, Meta: meta}, nil
	}

	value, err := r.ParseError(raw.Body, meta)
	if err != nil {
		return nil, newParseFailure(err, meta)
	}
	return nil, newServerError(value, meta)
}
