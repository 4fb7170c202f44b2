// Package observability provides OpenTelemetry tracing and metrics for
// dispatches and transport exchanges.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("billing"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("billing"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("billing"))
//	metrics.RecordDispatch(ctx, "ok", duration)
//
// Without Init* calls the global no-op providers are used, so spans and
// instruments cost nothing.
package observability
