package transcription

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
)

// Precondition messages for settings that need an explicit language.
const (
	msgVocabularyNeedsLanguage = "Vocabulary can only be used when a specific language is provided. Cannot be used with automatic language detection."
	msgModelNeedsLanguage      = "Model settings can only be used when a specific language is provided. Cannot be used with automatic language detection."
)

// CheckLanguagePrecondition rejects vocabulary terms or a model override
// without an explicit language. It makes no remote calls.
func CheckLanguagePrecondition(req *TranscriptionRequest) error {
	if req.Language() != "" {
		return nil
	}
	if len(req.Terms()) > 0 {
		return errors.BadRequest(req.RequestID, msgVocabularyNeedsLanguage)
	}
	if req.Model() != "" {
		return errors.BadRequest(req.RequestID, msgModelNeedsLanguage)
	}
	return nil
}

// VocabularyProvisioner creates a custom vocabulary named after the
// request id and waits for it to become usable.
type VocabularyProvisioner struct {
	svc      VocabularyService
	clock    Clock
	journal  Journal
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger
	metrics  *observability.Metrics
	provider string
}

// NewVocabularyProvisioner creates a provisioner polling every interval
// for at most timeout.
func NewVocabularyProvisioner(svc VocabularyService, clock Clock, journal Journal, interval, timeout time.Duration, log *logger.Logger) *VocabularyProvisioner {
	return &VocabularyProvisioner{
		svc:      svc,
		clock:    clock,
		journal:  journal,
		interval: interval,
		timeout:  timeout,
		log:      log,
	}
}

// Provision creates the vocabulary and blocks until it is ready. created
// reports whether a remote vocabulary now exists and must be released,
// which is also true when it ended up failed or timed out.
func (p *VocabularyProvisioner) Provision(ctx context.Context, requestID, language string, terms []string) (created bool, err error) {
	state, err := effect(ctx, p.journal, requestID+"/vocabulary", func(ctx context.Context) (VocabularyState, error) {
		return p.svc.CreateVocabulary(ctx, requestID, language, terms)
	})
	if err != nil {
		return false, taxonomy(requestID, err)
	}

	switch state.Status {
	case VocabularyReady:
		return true, nil
	case VocabularyFailed:
		return true, vocabularyFailed(requestID, state)
	case VocabularyPending:
		return true, p.waitReady(ctx, requestID)
	default:
		return true, errors.BadRequest(requestID, fmt.Sprintf("Unexpected vocabulary state: %s", state.Status))
	}
}

func (p *VocabularyProvisioner) waitReady(ctx context.Context, requestID string) error {
	start := p.clock.Now()
	for n := 1; ; n++ {
		elapsed := p.clock.Now().Sub(start)
		if elapsed > p.timeout {
			return errors.BadRequest(requestID, "Vocabulary creation timed out")
		}
		if err := journaledSleep(ctx, p.journal, p.clock, fmt.Sprintf("%s/vocabulary/sleep/%d", requestID, n), p.interval); err != nil {
			return err
		}

		state, err := effect(ctx, p.journal, fmt.Sprintf("%s/vocabulary/poll/%d", requestID, n), func(ctx context.Context) (VocabularyState, error) {
			return p.svc.GetVocabulary(ctx, requestID)
		})
		if err != nil {
			return taxonomy(requestID, err)
		}
		p.log.Debug("vocabulary polled", map[string]interface{}{
			logger.FieldRequestID:  requestID,
			logger.FieldStatus:     string(state.Status),
			logger.FieldAttempt:    n,
			logger.FieldElapsed:    elapsed.Milliseconds(),
			logger.FieldVocabulary: requestID,
		})

		switch state.Status {
		case VocabularyReady:
			return nil
		case VocabularyFailed:
			return vocabularyFailed(requestID, state)
		case VocabularyPending:
		default:
			return errors.BadRequest(requestID, fmt.Sprintf("Unexpected vocabulary state: %s", state.Status))
		}
	}
}

// Release deletes the vocabulary. Failures are logged only.
func (p *VocabularyProvisioner) Release(ctx context.Context, requestID string) {
	if err := p.svc.DeleteVocabulary(ctx, requestID); err != nil {
		p.log.Warn("failed to delete vocabulary", logger.MergeWithError(map[string]interface{}{
			logger.FieldRequestID:  requestID,
			logger.FieldVocabulary: requestID,
		}, err))
		p.metrics.RecordCleanupFailure(ctx, p.provider, "vocabulary")
	}
}

func vocabularyFailed(requestID string, state VocabularyState) error {
	return errors.BadRequest(requestID, "Vocabulary creation failed: "+reasonOr(state.FailureReason))
}

func reasonOr(reason string) string {
	if reason == "" {
		return "Unknown error"
	}
	return reason
}
