package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/httpdispatch/logger"
	"github.com/kbukum/httpdispatch/version"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Short(),
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the dispatch and transport instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	dispatchTotal     metric.Int64Counter
	dispatchDuration  metric.Float64Histogram
	transportTotal    metric.Int64Counter
	transportDuration metric.Float64Histogram
	transportActive   metric.Int64UpDownCounter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	dispatchTotal, err := meter.Int64Counter("dispatch.total",
		metric.WithDescription("Total number of dispatches by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dispatch.total counter: %w", err)
	}

	dispatchDuration, err := meter.Float64Histogram("dispatch.duration",
		metric.WithDescription("Duration of dispatches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dispatch.duration histogram: %w", err)
	}

	transportTotal, err := meter.Int64Counter("transport.requests",
		metric.WithDescription("Total number of transport exchanges"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transport.requests counter: %w", err)
	}

	transportDuration, err := meter.Float64Histogram("transport.duration",
		metric.WithDescription("Duration of transport exchanges in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transport.duration histogram: %w", err)
	}

	transportActive, err := meter.Int64UpDownCounter("transport.active",
		metric.WithDescription("Number of in-flight transport exchanges"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transport.active gauge: %w", err)
	}

	return &Metrics{
		dispatchTotal:     dispatchTotal,
		dispatchDuration:  dispatchDuration,
		transportTotal:    transportTotal,
		transportDuration: transportDuration,
		transportActive:   transportActive,
	}, nil
}

// RecordDispatch records a finished dispatch. outcome is "ok" or the
// failure kind.
func (m *Metrics) RecordDispatch(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.dispatchTotal.Add(ctx, 1, attrs)
	m.dispatchDuration.Record(ctx, duration.Seconds(), attrs)
}

// TransportStart increments the in-flight exchange count.
func (m *Metrics) TransportStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.transportActive.Add(ctx, 1)
}

// TransportEnd decrements in-flight exchanges and records the finished one.
// status is the HTTP status code as text, or the transport error code.
func (m *Metrics) TransportEnd(ctx context.Context, transport, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.transportActive.Add(ctx, -1)
	m.transportTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("method", method),
		attribute.String("status", status),
	))
	m.transportDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("method", method),
	))
}
