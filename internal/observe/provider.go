package observe

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is reported when [ProviderConfig.ServiceName] is empty.
const DefaultServiceName = "speechcoach"

// ProviderConfig describes the running coach to the OpenTelemetry SDK.
type ProviderConfig struct {
	ServiceName    string
	ServiceVersion string

	// Providers maps a collaborator kind ("llm", "tts", "emotion") to the
	// configured implementation name. Each non-empty entry becomes a
	// speechcoach.provider.<kind> resource attribute.
	Providers map[string]string

	// TTSFallbacks lists the fallback synthesizers in the order they are tried.
	TTSFallbacks []string

	// Confirmation is the attempt confirmation policy name.
	Confirmation string

	// TraceExporter receives finished spans. When nil, spans are recorded
	// for correlation IDs and log enrichment but never exported.
	TraceExporter sdktrace.SpanExporter
}

// resourceAttributes returns the coach-specific resource attributes in a
// stable order.
func (cfg ProviderConfig) resourceAttributes() []attribute.KeyValue {
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}

	kinds := make([]string, 0, len(cfg.Providers))
	for kind := range cfg.Providers {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	for _, kind := range kinds {
		if impl := cfg.Providers[kind]; impl != "" {
			attrs = append(attrs, attribute.String("speechcoach.provider."+kind, impl))
		}
	}
	if len(cfg.TTSFallbacks) > 0 {
		attrs = append(attrs, attribute.StringSlice("speechcoach.provider.tts_fallbacks", cfg.TTSFallbacks))
	}
	if cfg.Confirmation != "" {
		attrs = append(attrs, attribute.String("speechcoach.confirmation", cfg.Confirmation))
	}
	return attrs
}

func newResource(cfg ProviderConfig) (*resource.Resource, error) {
	// Schemaless so the merge never conflicts with the SDK's default schema.
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(cfg.resourceAttributes()...))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}
	return res, nil
}

// InitProvider registers global meter and tracer providers for the coach.
// Metrics are exposed through a Prometheus exporter so /metrics can scrape
// them; spans go to cfg.TraceExporter when one is set.
//
// The returned shutdown flushes spans before closing the meter provider.
func InitProvider(ctx context.Context, cfg ProviderConfig) (shutdown func(context.Context) error, err error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
