// Package observability wires OpenTelemetry tracing and metrics.
//
// Tracing:
//
//	ctx, span := observability.StartSpan(ctx, "transcription.staging")
//	defer span.End()
//
// Metrics:
//
//	metrics, err := observability.NewMetrics(observability.Meter("transcribe"))
//	metrics.RecordTranscription(ctx, "aws", "ok", elapsed)
//
// Both fall back to the otel no-op providers until Init is called with an
// enabled Config.
package observability
