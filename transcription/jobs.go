package transcription

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
)

// JobRunner submits a batch job and polls it to a terminal state at a
// fixed interval.
type JobRunner struct {
	svc      JobService
	clock    Clock
	journal  Journal
	interval time.Duration
	log      *logger.Logger
}

// NewJobRunner creates a runner over svc.
func NewJobRunner(svc JobService, clock Clock, journal Journal, interval time.Duration, log *logger.Logger) *JobRunner {
	return &JobRunner{svc: svc, clock: clock, journal: journal, interval: interval, log: log}
}

// Submit starts the job. A FAILED status at submission is terminal.
func (r *JobRunner) Submit(ctx context.Context, spec JobSpec) (JobState, error) {
	state, err := effect(ctx, r.journal, spec.Name+"/submit", func(ctx context.Context) (JobState, error) {
		return r.svc.StartJob(ctx, spec)
	})
	if err != nil {
		return JobState{}, taxonomy(spec.Name, err)
	}
	if state.Name == "" {
		state.Name = spec.Name
	}
	r.log.Debug("job submitted", map[string]interface{}{
		logger.FieldRequestID: spec.Name,
		logger.FieldJob:       state.Name,
		logger.FieldStatus:    string(state.Status),
	})
	if state.Status == JobFailed {
		return state, errors.BadRequest(spec.Name, "Transcription job creation failed: "+reasonOr(state.FailureReason))
	}
	return state, nil
}

// WaitForCompletion polls job name until it completes, fails or the
// elapsed time exceeds timeout.
func (r *JobRunner) WaitForCompletion(ctx context.Context, requestID, name string, timeout time.Duration) (JobState, error) {
	start := r.clock.Now()
	for n := 1; ; n++ {
		elapsed := r.clock.Now().Sub(start)
		if elapsed > timeout {
			return JobState{}, errors.BadRequest(requestID, "Transcription job timed out")
		}
		if err := journaledSleep(ctx, r.journal, r.clock, fmt.Sprintf("%s/job/sleep/%d", requestID, n), r.interval); err != nil {
			return JobState{}, err
		}

		state, err := effect(ctx, r.journal, fmt.Sprintf("%s/job/poll/%d", requestID, n), func(ctx context.Context) (JobState, error) {
			return r.svc.GetJob(ctx, name)
		})
		if err != nil {
			return JobState{}, taxonomy(requestID, err)
		}
		if state.Name == "" {
			state.Name = name
		}
		r.log.Debug("job polled", map[string]interface{}{
			logger.FieldRequestID: requestID,
			logger.FieldJob:       name,
			logger.FieldStatus:    string(state.Status),
			logger.FieldAttempt:   n,
			logger.FieldElapsed:   elapsed.Milliseconds(),
		})

		switch state.Status {
		case JobCompleted:
			return state, nil
		case JobFailed:
			return state, errors.BadRequest(requestID, "Transcription job failed: "+reasonOr(state.FailureReason))
		}
	}
}

// CanLookup reports whether earlier jobs can be found by request id.
func (r *JobRunner) CanLookup() bool {
	_, ok := r.svc.(JobLookup)
	return ok
}

// Lookup finds the job an earlier invocation started for requestID.
func (r *JobRunner) Lookup(ctx context.Context, requestID string) (JobState, error) {
	lookup, ok := r.svc.(JobLookup)
	if !ok {
		return JobState{}, errors.NotFound(requestID, "job lookup is not supported")
	}
	state, err := lookup.LookupJob(ctx, requestID)
	if err != nil {
		return JobState{}, taxonomy(requestID, err)
	}
	if state.Name == "" {
		state.Name = requestID
	}
	return state, nil
}

// Delete removes a job record. Failures are logged only.
func (r *JobRunner) Delete(ctx context.Context, requestID, name string) {
	if err := r.svc.DeleteJob(ctx, name); err != nil {
		r.log.Warn("failed to delete job", logger.MergeWithError(map[string]interface{}{
			logger.FieldRequestID: requestID,
			logger.FieldJob:       name,
		}, err))
	}
}
