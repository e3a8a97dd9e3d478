package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ExporterType selects where spans go.
type ExporterType string

const (
	ExporterTypeStdout   ExporterType = "stdout"
	ExporterTypeOTLP     ExporterType = "otlp"
	ExporterTypeOTLPHTTP ExporterType = "otlp-http"
	ExporterTypeNone     ExporterType = "none"
)

const instrumentationName = "github.com/voyagen/darteve"

// Setup installs the global tracer provider and propagator.
// The returned shutdown flushes pending spans; it is safe to call more than once.
func Setup(ctx context.Context, exporterType ExporterType) (func(context.Context) error, error) {
	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	exporter, err := newSpanExporter(ctx, exporterType)
	if err != nil {
		return shutdown, fmt.Errorf("tracing exporter %q: %w", exporterType, err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String("darteve")))
	if err != nil {
		return shutdown, fmt.Errorf("tracing resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	otel.SetTracerProvider(tp)
	return shutdown, nil
}

func newSpanExporter(ctx context.Context, exporterType ExporterType) (sdktrace.SpanExporter, error) {
	switch exporterType {
	case ExporterTypeOTLP:
		return otlptracegrpc.New(ctx)
	case ExporterTypeOTLPHTTP:
		return otlptracehttp.New(ctx)
	case ExporterTypeStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ExporterTypeNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown exporter type")
	}
}

// Tracer returns the application tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Transport wraps base (or http.DefaultTransport) with client-side spans.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base)
}

// Handler wraps h with server-side spans named after operation.
func Handler(h http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(h, operation)
}
