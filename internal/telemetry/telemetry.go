// Package telemetry owns the OpenTelemetry metrics pipeline. It is off by
// default; when disabled every helper degrades to a no-op so call sites
// never need to branch.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	mu       sync.Mutex
	enabled  bool
	provider *sdkmetric.MeterProvider
)

// Enabled reports whether the metrics pipeline has been initialized.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Init starts a metrics pipeline with a stdout exporter and a periodic
// reader. Safe to call once at process start.
func Init(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		return nil
	}
	exporter, err := stdoutmetric.New()
	if err != nil {
		return err
	}
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName("wordflux"),
	)
	provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(60*time.Second))),
	)
	otel.SetMeterProvider(provider)
	enabled = true
	return nil
}

// Shutdown flushes and stops the pipeline.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	if !enabled || provider == nil {
		return nil
	}
	enabled = false
	return provider.Shutdown(ctx)
}

// Meter returns a named meter from the global provider.
func Meter(scope string) metric.Meter {
	return otel.Meter(scope)
}
