package provider

import (
	"context"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/observability"
)

// WithMetrics returns a Middleware that counts executions and records their
// duration. The status label is "ok" or the taxonomy code of the error.
func WithMetrics[I, O any](metrics *observability.Metrics) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &metricsRR[I, O]{inner: inner, metrics: metrics}
	}
}

type metricsRR[I, O any] struct {
	inner   RequestResponse[I, O]
	metrics *observability.Metrics
}

func (m *metricsRR[I, O]) Name() string                         { return m.inner.Name() }
func (m *metricsRR[I, O]) IsAvailable(ctx context.Context) bool { return m.inner.IsAvailable(ctx) }

func (m *metricsRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := m.inner.Execute(ctx, input)

	status := "ok"
	if err != nil {
		status = string(errors.Code(err))
	}
	m.metrics.RecordTranscription(ctx, m.inner.Name(), status, time.Since(start))
	return output, err
}
