package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// InstrumentationName is the meter name used for all instruments.
const InstrumentationName = "github.com/roach88/telemetryd"

// Config configures the meter provider.
type Config struct {
	ServiceName string

	// OTLPEndpoint is a gRPC collector address such as "localhost:4317".
	// Empty disables export; instruments still work but nothing leaves
	// the process.
	OTLPEndpoint string

	// Insecure disables TLS on the exporter connection (dev only).
	Insecure bool

	// Interval is the export period. Default: 15s.
	Interval time.Duration
}

// Provider manages the OpenTelemetry meter provider.
type Provider struct {
	config        Config
	meterProvider *sdkmetric.MeterProvider
	logger        *slog.Logger
}

// NewProvider builds a meter provider and installs it as the global one.
//
// Additional readers (for example a ManualReader in tests) are attached
// alongside the exporter.
func NewProvider(ctx context.Context, cfg Config, logger *slog.Logger, readers ...sdkmetric.Reader) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "telemetryd"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		config: cfg,
		logger: logger.With("component", "metrics"),
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	if cfg.OTLPEndpoint != "" {
		expOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		}
		if cfg.Insecure {
			expOpts = append(expOpts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.Interval),
		)))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)

	p.logger.InfoContext(ctx, "metrics initialized",
		"service", cfg.ServiceName,
		"endpoint", cfg.OTLPEndpoint,
		"interval", cfg.Interval,
	)
	return p, nil
}

// Meter returns the meter all telemetryd instruments are created from.
func (p *Provider) Meter() metric.Meter {
	return p.meterProvider.Meter(InstrumentationName)
}

// Shutdown flushes pending exports and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		p.logger.ErrorContext(ctx, "failed to shutdown metric provider", "error", err)
		return fmt.Errorf("shutdown metric provider: %w", err)
	}
	return nil
}
