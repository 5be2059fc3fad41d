package transcription

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
)

func TestVocabularyProvisioner_TimeoutIsExact(t *testing.T) {
	rec := &recorder{}
	clock := newFakeClock()
	svc := &fakeVocabulary{
		rec:     rec,
		created: VocabularyState{Status: VocabularyPending},
		polls:   []VocabularyState{{Status: VocabularyPending}},
	}
	p := NewVocabularyProvisioner(svc, clock, PassthroughJournal{}, 10*time.Second, 300*time.Second, logger.Nop())

	created, err := p.Provision(context.Background(), "job-1", "en-US", []string{"alpha"})
	if !created {
		t.Error("a pending vocabulary exists remotely and must be reported as created")
	}
	appErr := appError(t, err)
	if appErr.ProviderError != "Vocabulary creation timed out" {
		t.Errorf("unexpected error %q", appErr.ProviderError)
	}
	// The last check that passes sees exactly 300s, so one more poll runs
	// at 310s before the loop gives up.
	if got := clock.elapsed(); got != 310*time.Second {
		t.Errorf("expected to give up at 310s, gave up at %s", got)
	}
	if n := rec.count("get-vocabulary"); n != 31 {
		t.Errorf("expected 31 polls, got %d", n)
	}
}

func TestVocabularyProvisioner_ReadyOnLastPoll(t *testing.T) {
	rec := &recorder{}
	polls := make([]VocabularyState, 31)
	for i := range polls {
		polls[i] = VocabularyState{Status: VocabularyPending}
	}
	polls[30] = VocabularyState{Status: VocabularyReady}
	svc := &fakeVocabulary{rec: rec, created: VocabularyState{Status: VocabularyPending}, polls: polls}
	p := NewVocabularyProvisioner(svc, newFakeClock(), PassthroughJournal{}, 10*time.Second, 300*time.Second, logger.Nop())

	if _, err := p.Provision(context.Background(), "job-1", "en-US", []string{"alpha"}); err != nil {
		t.Fatalf("expected ready before the timeout, got %v", err)
	}
}

func TestVocabularyProvisioner_States(t *testing.T) {
	tests := []struct {
		name    string
		created VocabularyState
		polls   []VocabularyState
		want    string
	}{
		{"ready", VocabularyState{Status: VocabularyReady}, nil, ""},
		{"pending then ready", VocabularyState{Status: VocabularyPending}, []VocabularyState{{Status: VocabularyPending}, {Status: VocabularyReady}}, ""},
		{"failed without reason", VocabularyState{Status: VocabularyFailed}, nil, "Vocabulary creation failed: Unknown error"},
		{"pending then failed", VocabularyState{Status: VocabularyPending}, []VocabularyState{{Status: VocabularyFailed, FailureReason: "bad phrase"}}, "Vocabulary creation failed: bad phrase"},
		{"unexpected on create", VocabularyState{Status: "DELETING"}, nil, "Unexpected vocabulary state: DELETING"},
		{"unexpected on poll", VocabularyState{Status: VocabularyPending}, []VocabularyState{{Status: "DELETING"}}, "Unexpected vocabulary state: DELETING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeVocabulary{rec: &recorder{}, created: tt.created, polls: tt.polls}
			p := NewVocabularyProvisioner(svc, newFakeClock(), PassthroughJournal{}, time.Second, time.Minute, logger.Nop())

			_, err := p.Provision(context.Background(), "job-1", "en-US", []string{"alpha"})
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			appErr := appError(t, err)
			if appErr.Code != errors.ErrCodeBadRequest || appErr.ProviderError != tt.want {
				t.Errorf("expected BAD_REQUEST %q, got %s %q", tt.want, appErr.Code, appErr.ProviderError)
			}
		})
	}
}

func TestVocabularyProvisioner_ReleaseSwallowsErrors(t *testing.T) {
	rec := &recorder{}
	svc := &fakeVocabulary{rec: rec, deleteErr: errors.NotFound("job-1", "gone")}
	p := NewVocabularyProvisioner(svc, newFakeClock(), PassthroughJournal{}, time.Second, time.Minute, logger.Nop())

	p.Release(context.Background(), "job-1")
	if n := rec.count("delete-vocabulary job-1"); n != 1 {
		t.Errorf("expected 1 delete, got %d", n)
	}
}

func TestJobRunner_TimeoutIsExact(t *testing.T) {
	rec := &recorder{}
	clock := newFakeClock()
	svc := &fakeJobs{rec: rec, polls: []JobState{{Status: JobInProgress}}}
	r := NewJobRunner(svc, clock, PassthroughJournal{}, 10*time.Second, logger.Nop())

	_, err := r.WaitForCompletion(context.Background(), "job-1", "job-1", time.Minute)
	if got := appError(t, err).ProviderError; got != "Transcription job timed out" {
		t.Errorf("unexpected error %q", got)
	}
	if got := clock.elapsed(); got != 70*time.Second {
		t.Errorf("expected to give up at 70s, gave up at %s", got)
	}
	if n := rec.count("get-job"); n != 7 {
		t.Errorf("expected 7 polls, got %d", n)
	}
}

func TestJobRunner_WaitForCompletion(t *testing.T) {
	tests := []struct {
		name    string
		polls   []JobState
		pollErr error
		want    string
	}{
		{"queued then completed", []JobState{{Status: JobQueued}, {Status: JobInProgress}, {Status: JobCompleted}}, nil, ""},
		{"failed", []JobState{{Status: JobFailed, FailureReason: "corrupt audio"}}, nil, "Transcription job failed: corrupt audio"},
		{"poll error", nil, errors.RateLimit("job-1", "slow down"), "slow down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeJobs{rec: &recorder{}, polls: tt.polls, pollErr: tt.pollErr}
			r := NewJobRunner(svc, newFakeClock(), PassthroughJournal{}, time.Second, logger.Nop())

			state, err := r.WaitForCompletion(context.Background(), "job-1", "job-1", time.Hour)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if state.Status != JobCompleted || state.Name != "job-1" {
					t.Errorf("unexpected state %+v", state)
				}
				return
			}
			if got := appError(t, err).ProviderError; got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestJobRunner_Submit(t *testing.T) {
	svc := &fakeJobs{rec: &recorder{}, started: JobState{Status: JobFailed}}
	r := NewJobRunner(svc, newFakeClock(), PassthroughJournal{}, time.Second, logger.Nop())

	_, err := r.Submit(context.Background(), JobSpec{Name: "job-1"})
	appErr := appError(t, err)
	if appErr.Code != errors.ErrCodeBadRequest || appErr.ProviderError != "Transcription job creation failed: Unknown error" {
		t.Errorf("unexpected error %s %q", appErr.Code, appErr.ProviderError)
	}

	svc.started = JobState{Status: JobQueued}
	state, err := r.Submit(context.Background(), JobSpec{Name: "job-2"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if state.Name != "job-2" {
		t.Errorf("expected the job name to default to the request id, got %q", state.Name)
	}
}

func TestJobRunner_Lookup(t *testing.T) {
	jobs := &fakeJobs{rec: &recorder{}}
	r := NewJobRunner(jobs, newFakeClock(), PassthroughJournal{}, time.Second, logger.Nop())
	if !r.CanLookup() {
		t.Fatal("expected lookup support")
	}
	if _, err := r.Lookup(context.Background(), "job-1"); !errors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	r = NewJobRunner(operationJobs{inner: jobs}, newFakeClock(), PassthroughJournal{}, time.Second, logger.Nop())
	if r.CanLookup() {
		t.Error("expected no lookup support")
	}
}
