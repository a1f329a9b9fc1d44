// Package observability wires OpenTelemetry tracing into the Genkit runtime.
//
// Traces are exported over OTLP HTTP to a local collector (OTel Collector,
// Datadog Agent, Jaeger all speak it on :4318). The collector owns
// authentication and forwarding, so no vendor credentials live in the app.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultOTLPEndpoint is the conventional local collector OTLP HTTP port.
const DefaultOTLPEndpoint = "localhost:4318"

const shutdownTimeout = 5 * time.Second

// Config for tracing setup.
type Config struct {
	// OTLPEndpoint is the collector's OTLP HTTP host:port.
	OTLPEndpoint string
	// ServiceName appears on every exported span.
	ServiceName string
	// Environment tags spans with the deployment environment.
	Environment string
}

// Setup registers an OTLP exporter with Genkit's TracerProvider so the
// pipeline's generation and embedding spans are exported alongside our own.
//
// Returns a shutdown function that flushes pending spans; it never blocks
// longer than shutdownTimeout. A collector that cannot be reached only
// disables tracing, startup still succeeds.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) func() {
	endpoint := cfg.OTLPEndpoint
	if endpoint == "" {
		endpoint = DefaultOTLPEndpoint
	}

	// Genkit's TracerProvider reads its resource attributes from the OTEL
	// environment variables. Called once during startup, before any
	// goroutines exist.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
