package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/transcribe/logger"
)

// MeterConfig configures the OTLP metric exporter.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP collector as host:port.
	Endpoint string
	Insecure bool
	// Interval is the export period. Zero keeps the SDK default of 60s.
	Interval time.Duration
}

// InitMeter installs a periodic-export meter provider as the otel global
// and returns it for shutdown.
func InitMeter(ctx context.Context, cfg MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// durationBuckets spans a short synchronous recognize call up to a long
// batch job, in seconds.
var durationBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800, 3600}

// Metrics holds the transcription instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	total           metric.Int64Counter
	duration        metric.Float64Histogram
	stageDuration   metric.Float64Histogram
	cleanupFailures metric.Int64Counter
}

// NewMetrics creates the transcription instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	seconds := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(durationBuckets...),
		)
		errs = append(errs, err)
		return h
	}

	m := &Metrics{
		total:           counter("transcription.total", "Transcriptions by provider and outcome"),
		duration:        seconds("transcription.duration", "End-to-end transcription duration"),
		stageDuration:   seconds("transcription.stage.duration", "Duration of a single saga stage"),
		cleanupFailures: counter("transcription.cleanup.failures", "Best-effort releases that failed"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("creating transcription instruments: %w", err)
	}
	return m, nil
}

// RecordTranscription records one finished transcription. status is "ok"
// or the error code.
func (m *Metrics) RecordTranscription(ctx context.Context, provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	byProvider := attribute.String("provider", provider)
	m.total.Add(ctx, 1, metric.WithAttributes(byProvider, attribute.String("status", status)))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(byProvider))
}

// RecordStage records the time spent in one saga stage.
func (m *Metrics) RecordStage(ctx context.Context, provider, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("stage", stage),
	))
}

// RecordCleanupFailure counts a failed release of an object, vocabulary
// or job.
func (m *Metrics) RecordCleanupFailure(ctx context.Context, provider, resource string) {
	if m == nil {
		return
	}
	m.cleanupFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("resource", resource),
	))
}
