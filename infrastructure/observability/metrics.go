package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wagernotify/config"
	"wagernotify/events"
	"wagernotify/service"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the notification pipeline
// and implements service.MetricsRecorder
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	reader        sdkmetric.Reader
	initialized   bool
	mu            sync.RWMutex

	mutationsReceivedCounter metric.Int64Counter
	eventsHaltedCounter      metric.Int64Counter
	deliveriesCounter        metric.Int64Counter
	pipelineDurationHist     metric.Float64Histogram
}

var _ service.MetricsRecorder = (*MetricsProvider)(nil)

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// newMetricsProviderWithReader bypasses exporter selection, for tests
func newMetricsProviderWithReader(cfg *config.Config, reader sdkmetric.Reader) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
		reader: reader,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	// Schemaless so the merge never conflicts with the SDK's default schema URL
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	reader := mp.reader
	if reader == nil {
		exporter, err := mp.newExporter(ctx)
		if err != nil {
			return err
		}
		if exporter == nil {
			mp.initialized = true
			return nil
		}

		interval := time.Duration(mp.config.OTelExportIntervalMillis) * time.Millisecond
		if interval <= 0 {
			interval = 30 * time.Second
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter(MetricPrefix)

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.WithField("exporter", mp.config.OTelExporterType).Info("Metrics provider initialized")
	return nil
}

// newExporter returns nil without error when export is disabled
func (mp *MetricsProvider) newExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	switch mp.config.OTelExporterType {
	case ExporterConsole:
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		return exporter, nil

	case ExporterOTLP:
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")
		return exporter, nil

	case ExporterNone:
		log.Info("Metrics export disabled (exporter_type='none')")
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.mutationsReceivedCounter, err = mp.meter.Int64Counter(
		MutationsReceivedTotal,
		metric.WithDescription("Total number of document mutations received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create mutations received counter: %w", err)
	}

	mp.eventsHaltedCounter, err = mp.meter.Int64Counter(
		EventsHaltedTotal,
		metric.WithDescription("Total number of pipelines that stopped before dispatch"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create events halted counter: %w", err)
	}

	mp.deliveriesCounter, err = mp.meter.Int64Counter(
		DeliveriesTotal,
		metric.WithDescription("Total number of per-token delivery outcomes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create deliveries counter: %w", err)
	}

	mp.pipelineDurationHist, err = mp.meter.Float64Histogram(
		PipelineDuration,
		metric.WithDescription("Duration of one mutation's pipeline in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordMutationReceived counts an incoming mutation
func (mp *MetricsProvider) RecordMutationReceived(kind events.MutationKind) {
	if !mp.isEnabled() {
		return
	}

	mp.mutationsReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelMutationKind, string(kind)),
		),
	)
}

// RecordEventHalted counts a pipeline that stopped early
func (mp *MetricsProvider) RecordEventHalted(kind events.MutationKind, reason service.HaltReason) {
	if !mp.isEnabled() {
		return
	}

	mp.eventsHaltedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelMutationKind, string(kind)),
			attribute.String(LabelHaltReason, string(reason)),
		),
	)
}

// RecordDelivery counts delivered and failed tokens
func (mp *MetricsProvider) RecordDelivery(eventType events.EventType, mode service.DeliveryMode, success, failure int) {
	if !mp.isEnabled() {
		return
	}

	record := func(outcome string, n int) {
		if n <= 0 {
			return
		}
		mp.deliveriesCounter.Add(context.Background(), int64(n),
			metric.WithAttributes(
				attribute.String(LabelEventType, string(eventType)),
				attribute.String(LabelMode, string(mode)),
				attribute.String(LabelOutcome, outcome),
			),
		)
	}
	record(OutcomeSuccess, success)
	record(OutcomeFailure, failure)
}

// RecordPipelineDuration records how long a mutation took end to end
func (mp *MetricsProvider) RecordPipelineDuration(kind events.MutationKind, d time.Duration) {
	if !mp.isEnabled() {
		return
	}

	mp.pipelineDurationHist.Record(context.Background(), d.Seconds(),
		metric.WithAttributes(
			attribute.String(LabelMutationKind, string(kind)),
		),
	)
}

// isEnabled checks if metrics are enabled and instruments exist
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled && mp.meter != nil
}
