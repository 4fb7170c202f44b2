package dispatcher

import (
	"context"
	"fmt"

	"github.com/kbukum/httpdispatch/component"
	"github.com/kbukum/httpdispatch/logger"
	"github.com/kbukum/httpdispatch/observability"
	"github.com/kbukum/httpdispatch/transport"
)

// Component owns an HTTP transport and a Dispatcher over it.
type Component struct {
	config  Config
	opts    []transport.Option
	log     *logger.Logger
	http    *transport.HTTP
	disp    *Dispatcher
	metrics *observability.Metrics
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a Component. The transport is built in Start.
func NewComponent(cfg Config, opts ...transport.Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.config.Transport.Name != "" {
		return c.config.Transport.Name
	}
	if c.config.Name != "" {
		return c.config.Name
	}
	return "dispatcher"
}

// Start builds the transport and its middleware chain, then the Dispatcher.
func (c *Component) Start(_ context.Context) error {
	c.config.ApplyDefaults()
	if err := c.config.Validate(); err != nil {
		return err
	}

	c.log = c.config.NewLogger()

	h, err := transport.NewHTTP(c.config.Transport, c.opts...)
	if err != nil {
		return fmt.Errorf("dispatcher: create transport: %w", err)
	}

	if c.config.Metrics {
		m, err := observability.NewMetrics(observability.Meter(c.Name()))
		if err != nil {
			return fmt.Errorf("dispatcher: create metrics: %w", err)
		}
		c.metrics = m
	}

	var mws []transport.Middleware
	if c.config.RequestIDHeader != "" {
		mws = append(mws, transport.WithRequestID(c.config.RequestIDHeader))
	}
	if c.config.Tracing {
		mws = append(mws, transport.WithTracing(c.config.Name))
	}
	if c.metrics != nil {
		mws = append(mws, transport.WithMetrics(c.metrics))
	}
	mws = append(mws, transport.WithLogging(c.log))

	d, err := New(transport.Chain(mws...)(h), WithLogger(c.log), WithMetrics(c.metrics))
	if err != nil {
		return err
	}

	c.http = h
	c.disp = d
	c.log.Info("dispatcher started", logger.Fields(
		logger.FieldTransport, h.Name(),
		"base_url", c.config.Transport.BaseURL,
		"version", c.config.Version,
	))
	return nil
}

// Stop releases idle connections.
func (c *Component) Stop(ctx context.Context) error {
	if c.http == nil {
		return nil
	}
	return c.http.Close(ctx)
}

// Health reports unhealthy before Start and while the circuit breaker is open.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.http == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	case !c.http.IsAvailable(ctx):
		h.Status = component.StatusUnhealthy
		h.Message = "circuit breaker " + c.http.BreakerState()
	}
	return h
}

// Describe returns the component summary.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "http-dispatcher",
		Details: c.config.Transport.BaseURL,
	}
}

// Dispatcher returns the dispatcher. It is nil before Start.
func (c *Component) Dispatcher() *Dispatcher {
	return c.disp
}
