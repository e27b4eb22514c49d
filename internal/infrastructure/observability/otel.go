package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCount       metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	JobsProcessed      metric.Int64Counter
	JobsDropped        metric.Int64Counter
	JobAttemptDuration metric.Float64Histogram
	RefreshDuration    metric.Float64Histogram
	EventsPublished    metric.Int64Counter
	LockContention     metric.Int64Counter
}

// Setup initializes OpenTelemetry
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	// Set up trace exporter
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	// Set up trace provider
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Set up metric exporter
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	// Shutdown function
	shutdown := func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
		return meterProvider.Shutdown(ctx)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/phoenixclinic/bookingcore")

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	jobsProcessed, err := meter.Int64Counter(
		"queue.jobs.processed",
		metric.WithDescription("Number of jobs processed to completion"),
	)
	if err != nil {
		return nil, err
	}

	jobsDropped, err := meter.Int64Counter(
		"queue.jobs.dropped",
		metric.WithDescription("Number of jobs dropped after exhausting attempts"),
	)
	if err != nil {
		return nil, err
	}

	jobAttemptDuration, err := meter.Float64Histogram(
		"queue.job.attempt.duration",
		metric.WithDescription("Duration of a single job attempt in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	refreshDuration, err := meter.Float64Histogram(
		"cache.refresh.duration",
		metric.WithDescription("Duration of a full slot refresh cycle in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	eventsPublished, err := meter.Int64Counter(
		"events.published",
		metric.WithDescription("Number of slot change events published"),
	)
	if err != nil {
		return nil, err
	}

	lockContention, err := meter.Int64Counter(
		"lock.contention.count",
		metric.WithDescription("Number of lock acquisitions rejected due to an existing holder"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:       requestCount,
		RequestDuration:    requestDuration,
		JobsProcessed:      jobsProcessed,
		JobsDropped:        jobsDropped,
		JobAttemptDuration: jobAttemptDuration,
		RefreshDuration:    refreshDuration,
		EventsPublished:    eventsPublished,
		LockContention:     lockContention,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer("github.com/phoenixclinic/bookingcore")
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records a metric with attributes
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordJobAttempt records the outcome of a single job attempt
func RecordJobAttempt(ctx context.Context, metrics *Metrics, kind, outcome string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("job.kind", kind),
		attribute.String("job.outcome", outcome),
	}
	metrics.JobAttemptDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if outcome == "done" {
		metrics.JobsProcessed.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if outcome == "dropped" {
		metrics.JobsDropped.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRefresh records a completed slot refresh cycle
func RecordRefresh(ctx context.Context, metrics *Metrics, clinicID string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("clinic.id", clinicID),
	}
	metrics.RefreshDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordEventPublished records a published slot change event
func RecordEventPublished(ctx context.Context, metrics *Metrics, eventType string) {
	attrs := []attribute.KeyValue{
		attribute.String("event.type", eventType),
	}
	metrics.EventsPublished.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLockContention records a rejected lock acquisition
func RecordLockContention(ctx context.Context, metrics *Metrics, clinicID string) {
	attrs := []attribute.KeyValue{
		attribute.String("clinic.id", clinicID),
	}
	metrics.LockContention.Add(ctx, 1, metric.WithAttributes(attrs...))
}
