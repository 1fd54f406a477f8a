// Package telemetry builds the optional OpenTelemetry push pipeline that
// mirrors probe metrics to an OTLP collector.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const ServiceName = "pingprobe"

// Config holds OTLP settings. An empty Endpoint disables the pipeline.
type Config struct {
	Endpoint     string
	PushInterval time.Duration
	Insecure     bool
	Version      string
}

func (c Config) Enabled() bool { return c.Endpoint != "" }

// Provider owns the meter provider and its exporter.
type Provider struct {
	mp         *sdkmetric.MeterProvider
	InstanceID string
}

// NewProvider creates an OTLP/HTTP meter provider with a periodic reader.
// No connection is made until the first push.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	instanceID := uuid.NewString()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
			attribute.String("service.instance.id", instanceID),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp resource: %w", err)
	}

	interval := cfg.PushInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	return &Provider{mp: mp, InstanceID: instanceID}, nil
}

func (p *Provider) Meter() metric.Meter {
	return p.mp.Meter(ServiceName)
}

// Shutdown flushes pending points and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.mp.Shutdown(ctx)
}
