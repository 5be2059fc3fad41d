package transcription

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/transcribe/errors"
)

// fakeClock advances simulated time on every Sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	start  time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fakeClock{now: t, start: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps++
	return nil
}

func (c *fakeClock) elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.start)
}

// recorder logs every remote call the fakes receive.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, c := range r.all() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// index returns the position of the first call with prefix, or -1.
func (r *recorder) index(prefix string) int {
	for i, c := range r.all() {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

type fakeObjects struct {
	rec       *recorder
	uploadErr error
	deleteErr error
	uploaded  map[string][]byte
}

func (f *fakeObjects) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.rec.record("upload " + key)
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if f.uploaded == nil {
		f.uploaded = make(map[string][]byte)
	}
	f.uploaded[key] = data
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.rec.record("delete-object " + key)
	return f.deleteErr
}

func (f *fakeObjects) MediaURI(key string) string { return "s3://test-bucket/" + key }

type fakeVocabulary struct {
	rec       *recorder
	created   VocabularyState
	createErr error
	polls     []VocabularyState
	pollErr   error
	deleteErr error
	polled    int
	terms     []string
}

func (f *fakeVocabulary) CreateVocabulary(_ context.Context, name, _ string, terms []string) (VocabularyState, error) {
	f.rec.record("create-vocabulary " + name)
	f.terms = terms
	if f.createErr != nil {
		return VocabularyState{}, f.createErr
	}
	state := f.created
	state.Name = name
	return state, nil
}

func (f *fakeVocabulary) GetVocabulary(_ context.Context, name string) (VocabularyState, error) {
	f.rec.record("get-vocabulary " + name)
	if f.pollErr != nil {
		return VocabularyState{}, f.pollErr
	}
	state := f.polls[min(f.polled, len(f.polls)-1)]
	f.polled++
	return state, nil
}

func (f *fakeVocabulary) DeleteVocabulary(_ context.Context, name string) error {
	f.rec.record("delete-vocabulary " + name)
	return f.deleteErr
}

type fakeJobs struct {
	rec       *recorder
	existing  *JobState
	lookupErr error
	started   JobState
	startErr  error
	polls     []JobState
	pollErr   error
	polled    int
	specs     []JobSpec
}

func (f *fakeJobs) StartJob(_ context.Context, spec JobSpec) (JobState, error) {
	f.rec.record("start-job " + spec.Name)
	f.specs = append(f.specs, spec)
	if f.startErr != nil {
		return JobState{}, f.startErr
	}
	return f.started, nil
}

func (f *fakeJobs) GetJob(_ context.Context, name string) (JobState, error) {
	f.rec.record("get-job " + name)
	if f.pollErr != nil {
		return JobState{}, f.pollErr
	}
	state := f.polls[min(f.polled, len(f.polls)-1)]
	f.polled++
	return state, nil
}

func (f *fakeJobs) DeleteJob(_ context.Context, name string) error {
	f.rec.record("delete-job " + name)
	return nil
}

func (f *fakeJobs) LookupJob(_ context.Context, requestID string) (JobState, error) {
	f.rec.record("lookup-job " + requestID)
	if f.lookupErr != nil {
		return JobState{}, f.lookupErr
	}
	if f.existing == nil {
		return JobState{}, errors.NotFound(requestID, "The requested job couldn't be found")
	}
	return *f.existing, nil
}

// operationJobs hides LookupJob, like a provider whose handles are
// generated by the provider.
type operationJobs struct{ inner *fakeJobs }

func (o operationJobs) StartJob(ctx context.Context, spec JobSpec) (JobState, error) {
	return o.inner.StartJob(ctx, spec)
}

func (o operationJobs) GetJob(ctx context.Context, name string) (JobState, error) {
	return o.inner.GetJob(ctx, name)
}

func (o operationJobs) DeleteJob(ctx context.Context, name string) error {
	return o.inner.DeleteJob(ctx, name)
}

type fakeTranscripts struct {
	rec  *recorder
	body []byte
	err  error
}

func (f *fakeTranscripts) Download(_ context.Context, _ string, uri string) ([]byte, error) {
	f.rec.record("download " + uri)
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

type fakeRecognizer struct {
	rec        *recorder
	transcript json.RawMessage
	err        error
	accepts    func(*TranscriptionRequest) bool
}

func (f *fakeRecognizer) Accepts(req *TranscriptionRequest) bool {
	return f.accepts == nil || f.accepts(req)
}

func (f *fakeRecognizer) Recognize(_ context.Context, req *TranscriptionRequest) (json.RawMessage, error) {
	f.rec.record("recognize " + req.RequestID)
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

// harness is a batch backend whose collaborators all succeed by default.
type harness struct {
	rec         *recorder
	clock       *fakeClock
	objects     *fakeObjects
	vocabulary  *fakeVocabulary
	jobs        *fakeJobs
	transcripts *fakeTranscripts
	backend     *Backend
}

func newHarness() *harness {
	rec := &recorder{}
	h := &harness{
		rec:        rec,
		clock:      newFakeClock(),
		objects:    &fakeObjects{rec: rec},
		vocabulary: &fakeVocabulary{rec: rec, created: VocabularyState{Status: VocabularyReady}},
		jobs: &fakeJobs{
			rec:     rec,
			started: JobState{Status: JobInProgress},
			polls: []JobState{{
				Status:        JobCompleted,
				TranscriptURI: "https://transcripts.example/job-1.json",
			}},
		},
		transcripts: &fakeTranscripts{rec: rec, body: []byte(`{"text":"hello world"}`)},
	}
	h.backend = &Backend{
		ProviderName: "fake",
		Naming:       AWSNaming,
		Objects:      h.objects,
		Vocabulary:   h.vocabulary,
		Jobs:         h.jobs,
		Transcripts:  h.transcripts,
	}
	return h
}

func (h *harness) saga(t *testing.T, cfg Config, opts ...Option) *Saga {
	t.Helper()
	opts = append([]Option{WithClock(h.clock)}, opts...)
	s, err := NewSaga(h.backend, cfg, opts...)
	if err != nil {
		t.Fatalf("NewSaga: %v", err)
	}
	return s
}

func newRequest(id string, terms ...string) *TranscriptionRequest {
	return &TranscriptionRequest{
		RequestID:   id,
		Audio:       []byte("fifteen bytes!!"),
		AudioConfig: AudioConfig{Format: FormatWAV},
		Config: &TranscriptionConfig{
			Language:   "en-US",
			Vocabulary: terms,
		},
	}
}

func appError(t *testing.T, err error) *errors.AppError {
	t.Helper()
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T: %v", err, err)
	}
	return appErr
}
