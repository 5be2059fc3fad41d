package transcription

import (
	"context"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
)

// Action is what the saga does about an earlier job for the same request.
type Action string

// Resolution actions.
const (
	// ActionFresh runs the full saga.
	ActionFresh Action = "fresh"
	// ActionResume polls the job an earlier invocation started.
	ActionResume Action = "resume"
	// ActionFetch downloads the result of a completed earlier job.
	ActionFetch Action = "fetch"
)

// Resolution is the outcome of Resolve. Job is set for resume and fetch.
type Resolution struct {
	Action Action
	Job    JobState
}

// Resolver decides how to treat an earlier job with the same request id.
type Resolver struct {
	jobs  *JobRunner
	vocab *VocabularyProvisioner
	stage *ObjectStage
	log   *logger.Logger
}

// NewResolver creates a resolver. vocab may be nil.
func NewResolver(jobs *JobRunner, vocab *VocabularyProvisioner, stage *ObjectStage, log *logger.Logger) *Resolver {
	return &Resolver{jobs: jobs, vocab: vocab, stage: stage, log: log}
}

// Resolve looks the request up. A failed earlier job is torn down before
// a fresh run is allowed; lookup errors never block a fresh run.
func (r *Resolver) Resolve(ctx context.Context, req *TranscriptionRequest) Resolution {
	if r.jobs == nil || !r.jobs.CanLookup() {
		return Resolution{Action: ActionFresh}
	}

	job, err := r.jobs.Lookup(ctx, req.RequestID)
	if err != nil {
		if !errors.IsNotFound(err) {
			r.log.Warn("job lookup failed, starting fresh", logger.MergeWithError(map[string]interface{}{
				logger.FieldRequestID: req.RequestID,
			}, err))
		}
		return Resolution{Action: ActionFresh}
	}

	switch job.Status {
	case JobCompleted:
		return Resolution{Action: ActionFetch, Job: job}
	case JobInProgress, JobQueued:
		return Resolution{Action: ActionResume, Job: job}
	case JobFailed:
		r.log.Info("tearing down failed job", map[string]interface{}{
			logger.FieldRequestID: req.RequestID,
			logger.FieldJob:       job.Name,
		})
		if r.vocab != nil && len(req.Terms()) > 0 {
			r.vocab.Release(ctx, req.RequestID)
		}
		if r.stage != nil {
			r.stage.Release(ctx, req.RequestID, ObjectKey(req.RequestID, req.AudioConfig.Format))
		}
		r.jobs.Delete(ctx, req.RequestID, job.Name)
		// Records a crashed invocation left describe the torn-down
		// artifacts. A replayed poll would report their status for the
		// fresh ones.
		if err := r.jobs.journal.ForgetRequest(ctx, req.RequestID); err != nil {
			r.log.Warn("failed to clear journal", logger.MergeWithError(map[string]interface{}{
				logger.FieldRequestID: req.RequestID,
			}, err))
		}
	}
	return Resolution{Action: ActionFresh}
}
