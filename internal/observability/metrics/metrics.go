package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	observations   metric.Int64Counter
	staleWrites    metric.Int64Counter
	adoptions      metric.Int64Counter
	anomalies      metric.Int64Counter
	ingestMessages metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pricewatch"
	}
	meter := provider.Meter(name)

	observations, err := meter.Int64Counter("pricewatch_observations_total")
	if err != nil {
		return nil, err
	}
	staleWrites, err := meter.Int64Counter("pricewatch_stale_writes_total")
	if err != nil {
		return nil, err
	}
	adoptions, err := meter.Int64Counter("pricewatch_adoptions_total")
	if err != nil {
		return nil, err
	}
	anomalies, err := meter.Int64Counter("pricewatch_adoption_anomalies_total")
	if err != nil {
		return nil, err
	}
	ingestMessages, err := meter.Int64Counter("pricewatch_ingest_messages_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		observations:   observations,
		staleWrites:    staleWrites,
		adoptions:      adoptions,
		anomalies:      anomalies,
		ingestMessages: ingestMessages,
	}, nil
}

// RecordObservation counts ledger appends by outcome.
func (m *Metrics) RecordObservation(ctx context.Context, outcome, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("outcome", strings.TrimSpace(outcome)),
		attribute.String("source_type", SourceType(source)),
	)
	m.observations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStaleWrite counts observations that lost the recency race.
func (m *Metrics) RecordStaleWrite(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", SourceType(source)))
	m.staleWrites.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAdoption counts candidate adoptions by result and match kind.
func (m *Metrics) RecordAdoption(ctx context.Context, result, match string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("result", strings.TrimSpace(result)),
		attribute.String("match", strings.TrimSpace(match)),
	)
	m.adoptions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAnomaly counts similarity anomalies queued for review.
func (m *Metrics) RecordAnomaly(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.anomalies.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordIngestMessage counts queue messages by kind and result.
func (m *Metrics) RecordIngestMessage(ctx context.Context, kind, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.ingestMessages.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// SourceType collapses a provenance tag into a low-cardinality label.
func SourceType(source string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	switch {
	case source == "" || source == "unknown":
		return "unknown"
	case source == "physical":
		return "physical"
	case strings.HasPrefix(source, "mirror:"):
		return "mirror"
	case strings.HasSuffix(source, ":online"):
		return "integration"
	default:
		return "other"
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":     {},
	"source_type": {},
	"result":      {},
	"match":       {},
	"reason":      {},
	"kind":        {},
	"route":       {},
	"method":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
