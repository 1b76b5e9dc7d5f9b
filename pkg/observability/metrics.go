package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Metrics holds the instruments recorded across the export pipeline. With no
// exporter configured, instruments come from the global (noop) meter
// provider and recording is free.
type Metrics struct {
	resolveTotal    metric.Int64Counter
	resolveDuration metric.Float64Histogram
	cacheProbes     metric.Int64Counter

	shutdown func(context.Context) error
}

// MetricsConfig configures the OTLP exporter.
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// NewMetrics sets up the meter provider (OTLP gRPC push when enabled) and
// creates the pipeline instruments.
func NewMetrics(ctx context.Context, cfg MetricsConfig) (*Metrics, error) {
	m := &Metrics{shutdown: func(context.Context) error { return nil }}

	if cfg.Enabled {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", err)
		}
		res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("sd-export-server"),
		))
		if err != nil {
			return nil, fmt.Errorf("build resource: %w", err)
		}
		provider := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(30*time.Second))),
		)
		otel.SetMeterProvider(provider)
		m.shutdown = provider.Shutdown
	}

	meter := otel.Meter("github.com/Wzesk/sd-export-server")

	var err error
	m.resolveTotal, err = meter.Int64Counter("export_resolve_total",
		metric.WithDescription("Completed export resolutions by outcome"))
	if err != nil {
		return nil, err
	}
	m.resolveDuration, err = meter.Float64Histogram("export_resolve_duration_seconds",
		metric.WithDescription("End-to-end export resolution latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	m.cacheProbes, err = meter.Int64Counter("export_cache_probe_total",
		metric.WithDescription("Artifact cache probes by result"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordResolve records one completed (or failed) resolution.
func (m *Metrics) RecordResolve(ctx context.Context, outcome string, cacheHit bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Bool("cache_hit", cacheHit),
	)
	m.resolveTotal.Add(ctx, 1, attrs)
	m.resolveDuration.Record(ctx, elapsed.Seconds(), attrs)

	result := "miss"
	if cacheHit {
		result = "hit"
	}
	m.cacheProbes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Shutdown flushes the exporter, if one was configured.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.shutdown(ctx)
}
