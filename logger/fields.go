package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent  = "component"
	FieldTraceID    = "trace_id"
	FieldRequestID  = "request_id"
	FieldStage      = "stage"
	FieldProvider   = "provider"
	FieldObjectKey  = "object_key"
	FieldVocabulary = "vocabulary"
	FieldJob        = "job"
	FieldStatus     = "status"
	FieldAttempt    = "attempt"
	FieldElapsed    = "elapsed_ms"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("staged", logger.Fields(logger.FieldObjectKey, key))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for a failed stage of a request.
func ErrorFields(stage string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldStage: stage,
		FieldError: err.Error(),
	}
}

// DurationFields creates fields for a timed stage.
func DurationFields(stage string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldStage:    stage,
		FieldDuration: d.Milliseconds(),
	}
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}
