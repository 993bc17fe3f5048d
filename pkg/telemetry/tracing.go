package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const WorkerIDKey contextKey = "workerId"

// InitTracer initializes the OpenTelemetry tracer provider. The exporter
// is selected by name: "otlp" ships spans to a collector over gRPC,
// "stdout" prints them, and "none" installs a provider with no exporter
// so instrumented code keeps working on devices that never see a network.
func InitTracer(serviceName, exporterName, otlpEndpoint string) (func(context.Context) error, error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	switch exporterName {
	case "otlp":
		exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(otlpEndpoint))
		if err != nil {
			return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
		// no exporter; spans are created and dropped
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", exporterName)
	}

	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}

// StartCaptureSpan starts a span for one attendance capture and tags it
// with the worker performing it.
func StartCaptureSpan(ctx context.Context, workerID int64) (context.Context, trace.Span) {
	tracer := otel.Tracer("attendance-capture")
	ctx, span := tracer.Start(ctx, "capture_event",
		trace.WithAttributes(
			attribute.Int64("app.workerId", workerID),
		),
	)
	ctx = context.WithValue(ctx, WorkerIDKey, workerID)
	return ctx, span
}

// GetWorkerIDFromContext retrieves the worker ID from the context.
func GetWorkerIDFromContext(ctx context.Context) int64 {
	if val, ok := ctx.Value(WorkerIDKey).(int64); ok {
		return val
	}
	return 0
}
