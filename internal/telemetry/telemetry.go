// Package telemetry wires OpenTelemetry tracing for the server.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

const tracerShutdownTimeout = 5 * time.Second

// defaultServiceName labels exported spans when SERVICE_NAME is unset.
const defaultServiceName = "https-example-server"

// Config selects the OTLP endpoint spans are exported to. With Enabled
// false or an empty endpoint the package stays a no-op.
type Config struct {
	ServiceName string
	Endpoint    string
	Enabled     bool
}

func (c Config) serviceName() string {
	if c.ServiceName != "" {
		return c.ServiceName
	}
	return defaultServiceName
}

var tracerProvider *tracesdk.TracerProvider

// InitTracer installs a global tracer provider exporting spans over OTLP
// HTTP. Without an endpoint the server runs untraced and Middleware passes
// handlers through unchanged.
func InitTracer(ctx context.Context, cfg Config, logger *zap.Logger) error {
	log := logger.Named("telemetry")
	if !cfg.Enabled || cfg.Endpoint == "" {
		log.Info("tracing disabled, no OTLP endpoint configured")
		return nil
	}

	tp, err := newTracerProvider(ctx, cfg)
	if err != nil {
		return err
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	tracerProvider = tp

	log.Info("OTLP tracing initialized", zap.String("endpoint", cfg.Endpoint),
		zap.String("service_name", cfg.serviceName()))
	return nil
}

func newTracerProvider(ctx context.Context, cfg Config) (*tracesdk.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.serviceName())))
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("building OTLP trace exporter: %w", err)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter), tracesdk.WithResource(res)), nil
}

// Middleware wraps next with OpenTelemetry HTTP server instrumentation.
// When tracing was never initialized, next is returned unchanged.
func Middleware(next http.Handler, operation string) http.Handler {
	if tracerProvider == nil {
		return next
	}
	return otelhttp.NewHandler(next, operation)
}

// ShutdownTracer flushes remaining spans and stops the provider.
func ShutdownTracer(logger *zap.Logger) {
	if tracerProvider == nil {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
	defer cancel()

	log := logger.Named("telemetry")
	if err := tracerProvider.Shutdown(flushCtx); err != nil {
		log.Error("tracer provider shutdown failed", zap.Error(err))
		return
	}
	log.Info("tracer provider shut down")
}
