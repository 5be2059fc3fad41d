package transcription

import (
	"context"

	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
)

// ObjectStage uploads request audio under its deterministic key.
type ObjectStage struct {
	store    ObjectStore
	journal  Journal
	log      *logger.Logger
	metrics  *observability.Metrics
	provider string
}

// NewObjectStage creates a stage over store.
func NewObjectStage(store ObjectStore, journal Journal, log *logger.Logger) *ObjectStage {
	return &ObjectStage{store: store, journal: journal, log: log}
}

// Stage uploads audio once and returns its key.
func (s *ObjectStage) Stage(ctx context.Context, requestID string, audio []byte, format AudioFormat) (string, error) {
	key := ObjectKey(requestID, format)
	_, err := effect(ctx, s.journal, requestID+"/stage", func(ctx context.Context) (string, error) {
		if err := s.store.Upload(ctx, key, audio, format.ContentType()); err != nil {
			return "", taxonomy(requestID, err)
		}
		return key, nil
	})
	if err != nil {
		return key, taxonomy(requestID, err)
	}
	s.log.Debug("audio staged", map[string]interface{}{
		logger.FieldRequestID: requestID,
		logger.FieldObjectKey: key,
	})
	return key, nil
}

// MediaURI returns the URI a job reads the staged object from.
func (s *ObjectStage) MediaURI(key string) string {
	return s.store.MediaURI(key)
}

// Release deletes the staged object. Failures are logged only.
func (s *ObjectStage) Release(ctx context.Context, requestID, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete staged audio", logger.MergeWithError(map[string]interface{}{
			logger.FieldRequestID: requestID,
			logger.FieldObjectKey: key,
		}, err))
		s.metrics.RecordCleanupFailure(ctx, s.provider, "object")
	}
}
