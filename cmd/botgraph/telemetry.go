package main

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/randalmurphal/botgraph/pkg/botgraph/config"
)

const serviceName = "botgraph"

// setupTelemetry installs global OTel providers. Spans go to the OTLP
// collector when an endpoint is configured and are dropped otherwise. The
// returned function flushes and stops every installed provider.
func setupTelemetry(ctx context.Context, cfg config.Telemetry) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}
	if !cfg.Tracing && !cfg.Metrics {
		return shutdown, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	if cfg.Tracing {
		opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
		if cfg.OTLPEndpoint != "" {
			exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
				otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
				otlptracegrpc.WithInsecure(),
			))
			if err != nil {
				return nil, fmt.Errorf("create exporter: %w", err)
			}
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.TraceContext{})
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if cfg.Metrics {
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	return shutdown, nil
}
