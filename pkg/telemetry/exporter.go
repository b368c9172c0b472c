package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"google.golang.org/grpc/credentials/insecure"
)

// createExporter builds the OTLP trace exporter for the configured protocol.
// Bench runs export a single short trace per invocation, so both transports
// use the exporter defaults for batching and retries.
func createExporter(ctx context.Context, cfg *Config) (*otlptrace.Exporter, error) {
	switch strings.ToLower(cfg.Protocol) {
	case "http/protobuf", "http":
		return createHTTPExporter(ctx, cfg)
	default:
		return createGRPCExporter(ctx, cfg)
	}
}

// stripScheme removes an http:// or https:// prefix from the endpoint. The
// OTLP client options take a bare host:port; the scheme only tells us
// whether the http form implies plaintext.
func stripScheme(endpoint string) (host string, plaintext bool) {
	if rest, ok := strings.CutPrefix(endpoint, "https://"); ok {
		return rest, false
	}
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		return rest, true
	}
	return endpoint, false
}

func createGRPCExporter(ctx context.Context, cfg *Config) (*otlptrace.Exporter, error) {
	opts := []otlptracegrpc.Option{}

	host, plaintext := stripScheme(cfg.Endpoint)
	if host != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(host))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure || plaintext {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	return otlptracegrpc.New(ctx, opts...)
}

func createHTTPExporter(ctx context.Context, cfg *Config) (*otlptrace.Exporter, error) {
	opts := []otlptracehttp.Option{}

	host, plaintext := stripScheme(cfg.Endpoint)
	if host != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(host))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure || plaintext {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	return otlptracehttp.New(ctx, opts...)
}
