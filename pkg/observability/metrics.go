package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics and Prometheus integration
type MetricsProvider struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	registry      *prometheus.Registry

	// Application metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Gateway-domain metrics
	evaluationsTotal  metric.Int64Counter
	triggersTotal     metric.Int64Counter
	skipsTotal        metric.Int64Counter
	marketCallsTotal  metric.Int64Counter
	snapshotMisses    metric.Int64Counter
	notifierFailures  metric.Int64Counter
	errorRate         metric.Float64Gauge
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string
	Namespace      string
	Port           int
	Enabled        bool
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg MetricsConfig) (*MetricsProvider, error) {
	if !cfg.Enabled {
		return &MetricsProvider{}, nil
	}

	// Create Prometheus registry
	registry := prometheus.NewRegistry()

	// Create Prometheus exporter
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithNamespace(cfg.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	// Create resource
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	// Set global meter provider
	otel.SetMeterProvider(meterProvider)

	// Create meter
	meter := meterProvider.Meter(cfg.ServiceName)

	// Initialize metrics
	mp := &MetricsProvider{
		meterProvider: meterProvider,
		meter:         meter,
		registry:      registry,
	}

	if err := mp.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return mp, nil
}

// initializeMetrics creates all application metrics
func (mp *MetricsProvider) initializeMetrics() error {
	var err error

	// HTTP metrics
	mp.httpRequestsTotal, err = mp.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	mp.httpRequestDuration, err = mp.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_request_duration histogram: %w", err)
	}

	// Gateway evaluation metrics
	mp.evaluationsTotal, err = mp.meter.Int64Counter(
		"gateway_evaluations_total",
		metric.WithDescription("Total number of symbol/mode evaluations run"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway_evaluations_total counter: %w", err)
	}

	mp.triggersTotal, err = mp.meter.Int64Counter(
		"gateway_triggers_total",
		metric.WithDescription("Total number of winning candidates produced"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway_triggers_total counter: %w", err)
	}

	mp.skipsTotal, err = mp.meter.Int64Counter(
		"gateway_skips_total",
		metric.WithDescription("Total number of gate skips, by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway_skips_total counter: %w", err)
	}

	mp.marketCallsTotal, err = mp.meter.Int64Counter(
		"gateway_market_calls_total",
		metric.WithDescription("Outbound market-source calls made by the ingestor"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway_market_calls_total counter: %w", err)
	}

	mp.snapshotMisses, err = mp.meter.Int64Counter(
		"gateway_snapshot_misses_total",
		metric.WithDescription("Derivation reads that found no snapshot for the current bucket"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway_snapshot_misses_total counter: %w", err)
	}

	mp.notifierFailures, err = mp.meter.Int64Counter(
		"gateway_notifier_failures_total",
		metric.WithDescription("Notification delivery failures"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway_notifier_failures_total counter: %w", err)
	}

	// Error rate gauge
	mp.errorRate, err = mp.meter.Float64Gauge(
		"error_rate",
		metric.WithDescription("Current error rate percentage"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return fmt.Errorf("failed to create error_rate gauge: %w", err)
	}

	return nil
}

// HTTP Metrics Methods

// RecordHTTPRequest records an HTTP request metric
func (mp *MetricsProvider) RecordHTTPRequest(ctx context.Context, method, path, status string, duration time.Duration) {
	if mp.httpRequestsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", status),
	}

	mp.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// Gateway Metrics Methods

// RecordEvaluation records one symbol/mode pass through the gating pipeline.
func (mp *MetricsProvider) RecordEvaluation(ctx context.Context, mode string, triggered bool) {
	if mp.evaluationsTotal == nil {
		return
	}
	mp.evaluationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	if triggered {
		mp.triggersTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	}
}

// RecordSkip records a gate skip by reason.
func (mp *MetricsProvider) RecordSkip(ctx context.Context, mode, reason string) {
	if mp.skipsTotal == nil {
		return
	}
	mp.skipsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("reason", reason),
	))
}

// RecordMarketCall records one outbound call to the upstream market source.
func (mp *MetricsProvider) RecordMarketCall(ctx context.Context) {
	if mp.marketCallsTotal == nil {
		return
	}
	mp.marketCallsTotal.Add(ctx, 1)
}

// RecordSnapshotMiss records a derivation pass that found no snapshot for
// the requested bucket.
func (mp *MetricsProvider) RecordSnapshotMiss(ctx context.Context) {
	if mp.snapshotMisses == nil {
		return
	}
	mp.snapshotMisses.Add(ctx, 1)
}

// RecordNotifierFailure records a failed notification delivery.
func (mp *MetricsProvider) RecordNotifierFailure(ctx context.Context, transport string) {
	if mp.notifierFailures == nil {
		return
	}
	mp.notifierFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("transport", transport)))
}

// System Metrics Methods

// UpdateErrorRate updates the current error rate
func (mp *MetricsProvider) UpdateErrorRate(ctx context.Context, rate float64) {
	if mp.errorRate == nil {
		return
	}
	mp.errorRate.Record(ctx, rate)
}

// StartMetricsServer starts the Prometheus metrics HTTP server
func (mp *MetricsProvider) StartMetricsServer(port int) error {
	if mp.registry == nil {
		return fmt.Errorf("metrics not enabled")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp.meterProvider == nil {
		return nil
	}
	return mp.meterProvider.Shutdown(ctx)
}
