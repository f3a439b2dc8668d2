//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

// Package trace holds the tracer used across procexec and an optional
// OTLP bootstrap for exporting spans.
package trace

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
)

const defaultServiceName = "procexec"

// Tracer is the tracer used by the execution engine. Before Start is
// called it delegates to the global otel provider, which is a no-op
// unless the embedding process installed one.
var Tracer trace.Tracer = otel.Tracer(defaultServiceName)

// options configures Start.
type options struct {
	endpoint    string
	serviceName string
}

// Option customizes trace bootstrap.
type Option func(*options)

// WithEndpoint sets the OTLP gRPC collector endpoint, e.g.
// "localhost:4317".
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithServiceName sets the reported service name.
func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// Start configures span export over OTLP gRPC and installs the
// resulting provider globally. The returned cleanup flushes and shuts
// the provider down.
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	o := options{
		endpoint:    tracesEndpoint(),
		serviceName: defaultServiceName,
	}
	for _, opt := range opts {
		opt(&o)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(o.endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("trace: creating OTLP exporter: %w", err)
	}

	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(o.serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("trace: building resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Tracer = provider.Tracer(o.serviceName)

	return func() error {
		return provider.Shutdown(context.Background())
	}, nil
}

// tracesEndpoint resolves the default collector endpoint from the
// standard OTLP environment variables.
func tracesEndpoint() string {
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); ep != "" {
		return ep
	}
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		return ep
	}
	return "localhost:4317"
}
