package transcription

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/provider"
	"github.com/kbukum/transcribe/resilience"
	"github.com/kbukum/transcribe/validation"
)

// State is a step of the transcription saga.
type State string

// Saga states.
const (
	StateValidating   State = "validating"
	StateResolving    State = "resolving"
	StateStaging      State = "staging"
	StateProvisioning State = "provisioning"
	StateSubmitting   State = "submitting"
	StateWaiting      State = "waiting"
	StateFetching     State = "fetching"
	StateCleaningUp   State = "cleaning_up"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// transitions lists the forward edges. StateFailed is reachable from every
// non-terminal state.
var transitions = map[State][]State{
	StateValidating:   {StateResolving, StateSubmitting},
	StateResolving:    {StateStaging, StateWaiting, StateFetching},
	StateStaging:      {StateProvisioning, StateSubmitting},
	StateProvisioning: {StateSubmitting},
	StateSubmitting:   {StateWaiting, StateFetching},
	StateWaiting:      {StateFetching},
	StateFetching:     {StateCleaningUp},
	StateCleaningUp:   {StateDone},
}

func canTransition(from, to State) bool {
	if from == StateDone || from == StateFailed {
		return false
	}
	return to == StateFailed || slices.Contains(transitions[from], to)
}

var _ provider.RequestResponse[*TranscriptionRequest, *TranscriptionResponse] = (*Saga)(nil)

// Saga runs one transcription against a backend: stage the audio,
// provision a vocabulary, submit and wait for the job, fetch the
// transcript, and release what was created on every exit path.
type Saga struct {
	backend  *Backend
	cfg      Config
	clock    Clock
	journal  *trackingJournal
	log      *logger.Logger
	metrics  *observability.Metrics
	bulkhead *resilience.Bulkhead

	stage    *ObjectStage
	vocab    *VocabularyProvisioner
	jobs     *JobRunner
	fetcher  *ResultFetcher
	resolver *Resolver
}

// Option customizes a Saga.
type Option func(*sagaOptions)

type sagaOptions struct {
	clock   Clock
	journal Journal
	log     *logger.Logger
	metrics *observability.Metrics
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(o *sagaOptions) { o.clock = c }
}

// WithJournal records side effects for replay. The default records nothing.
func WithJournal(j Journal) Option {
	return func(o *sagaOptions) { o.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *sagaOptions) { o.log = l }
}

// WithMetrics records stage durations and cleanup failures.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *sagaOptions) { o.metrics = m }
}

// NewSaga wires the saga collaborators for backend.
func NewSaga(backend *Backend, cfg Config, opts ...Option) (*Saga, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if err := backend.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := sagaOptions{clock: SystemClock{}, journal: PassthroughJournal{}, log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.WithComponent("saga").WithFields(map[string]interface{}{
		logger.FieldProvider: backend.Name(),
	})

	s := &Saga{
		backend: backend,
		cfg:     cfg,
		clock:   o.clock,
		journal: newTrackingJournal(o.journal),
		log:     log,
		metrics: o.metrics,
	}
	s.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "transcribe-" + backend.Name(),
		MaxConcurrent: cfg.BatchConcurrency,
		MaxWait:       resilience.WaitForSlot,
	})

	if backend.Objects != nil {
		s.stage = NewObjectStage(backend.Objects, s.journal, log)
		s.stage.metrics, s.stage.provider = o.metrics, backend.Name()
	}
	if backend.Vocabulary != nil {
		s.vocab = NewVocabularyProvisioner(backend.Vocabulary, s.clock, s.journal, cfg.PollInterval, cfg.VocabularyTimeout, log)
		s.vocab.metrics, s.vocab.provider = o.metrics, backend.Name()
	}
	if backend.Jobs != nil {
		s.jobs = NewJobRunner(backend.Jobs, s.clock, s.journal, cfg.PollInterval, log)
	}
	s.fetcher = NewResultFetcher(backend.Transcripts, s.journal)
	s.resolver = NewResolver(s.jobs, s.vocab, s.stage, log)
	return s, nil
}

// Name returns the backend name.
func (s *Saga) Name() string { return s.backend.Name() }

// IsAvailable reports whether the backend is reachable.
func (s *Saga) IsAvailable(ctx context.Context) bool { return s.backend.IsAvailable(ctx) }

// Languages lists the language codes the backend supports.
func (s *Saga) Languages() []string { return slices.Clone(s.backend.Languages) }

// Transcribe runs the saga for req.
func (s *Saga) Transcribe(ctx context.Context, req *TranscriptionRequest) (*TranscriptionResponse, error) {
	return s.Execute(ctx, req)
}

// Execute runs the saga for req. On failure the returned error is the
// first one encountered; cleanup has already been attempted.
func (s *Saga) Execute(ctx context.Context, req *TranscriptionRequest) (*TranscriptionResponse, error) {
	if req == nil {
		return nil, errors.BadRequest("", "request is required")
	}
	ctx = logger.ContextWithRequestID(ctx, req.RequestID)
	ctx, span := observability.StartSpan(ctx, "transcription.saga")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrRequestID, req.RequestID)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, s.Name())
	observability.SetSpanAttribute(ctx, observability.AttrAudioBytes, len(req.Audio))

	r := &run{saga: s, req: req, state: StateValidating, entered: s.clock.Now(), log: s.log.WithContext(ctx)}
	_, r.span = observability.StartSpan(ctx, "transcription."+string(StateValidating))
	resp, err := r.execute(ctx)
	if err != nil {
		observability.SetSpanAttribute(ctx, observability.AttrErrorCode, string(errors.Code(err)))
		observability.SetSpanError(ctx, err)
	}

	if jerr := s.journal.forgetRequest(context.WithoutCancel(ctx), req.RequestID); jerr != nil {
		r.log.Warn("failed to clear journal", logger.MergeWithError(nil, jerr))
	}
	return resp, err
}

// run is the state of one Execute call.
type run struct {
	saga    *Saga
	req     *TranscriptionRequest
	log     *logger.Logger
	state   State
	entered time.Time
	span    trace.Span

	objectKey   string
	vocabulary  bool
	compensated bool
}

func (r *run) execute(ctx context.Context) (*TranscriptionResponse, error) {
	if err := r.validate(); err != nil {
		return nil, r.fail(ctx, err)
	}

	var job JobState
	var err error
	if rec := r.saga.backend.Recognizer; rec != nil && rec.Accepts(r.req) {
		job, err = r.recognize(ctx, rec)
	} else {
		job, err = r.runJob(ctx)
	}
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	stageCtx, err := r.enter(ctx, StateFetching)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	transcript, err := r.saga.fetcher.Fetch(stageCtx, r.req.RequestID, job)
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	if _, err := r.enter(ctx, StateCleaningUp); err != nil {
		return nil, r.fail(ctx, err)
	}
	r.compensate(ctx)
	if _, err := r.enter(ctx, StateDone); err != nil {
		return nil, r.fail(ctx, err)
	}
	r.span.End()

	return &TranscriptionResponse{
		RequestID:      r.req.RequestID,
		AudioSizeBytes: len(r.req.Audio),
		Language:       r.req.Language(),
		Model:          r.req.Model(),
		Provider:       r.saga.Name(),
		Transcript:     transcript,
	}, nil
}

// validate makes no remote calls.
func (r *run) validate() error {
	b, req := r.saga.backend, r.req
	if err := b.Naming.Validate(req.RequestID); err != nil {
		return err
	}
	if err := validation.Validate(req.RequestID, req); err != nil {
		return err
	}
	if err := CheckLanguagePrecondition(req); err != nil {
		return err
	}
	if lang := req.Language(); lang != "" && !b.SupportsLanguage(lang) {
		return errors.BadRequest(req.RequestID, "Unsupported language: "+lang)
	}
	if !b.SupportsFormat(req.AudioConfig.Format) {
		return errors.BadRequest(req.RequestID, fmt.Sprintf("Unsupported audio format: %s", req.AudioConfig.Format))
	}
	if b.Jobs == nil && (b.Recognizer == nil || !b.Recognizer.Accepts(req)) {
		return errors.BadRequest(req.RequestID, fmt.Sprintf("%s cannot transcribe this request", b.Name()))
	}
	return nil
}

func (r *run) recognize(ctx context.Context, rec Recognizer) (JobState, error) {
	stageCtx, err := r.enter(ctx, StateSubmitting)
	if err != nil {
		return JobState{}, err
	}
	rid := r.req.RequestID
	transcript, err := effect(stageCtx, r.saga.journal, rid+"/recognize", func(ctx context.Context) (json.RawMessage, error) {
		return rec.Recognize(ctx, r.req)
	})
	if err != nil {
		return JobState{}, err
	}
	return JobState{Name: rid, Status: JobCompleted, Transcript: transcript}, nil
}

func (r *run) runJob(ctx context.Context) (JobState, error) {
	s, req := r.saga, r.req
	rid := req.RequestID

	stageCtx, err := r.enter(ctx, StateResolving)
	if err != nil {
		return JobState{}, err
	}
	res := s.resolver.Resolve(stageCtx, req)
	observability.SetSpanAttribute(ctx, observability.AttrResolution, string(res.Action))
	r.log.Debug("request resolved", map[string]interface{}{
		"resolution":       string(res.Action),
		logger.FieldJob:    res.Job.Name,
		logger.FieldStatus: string(res.Job.Status),
	})

	switch res.Action {
	case ActionFetch:
		r.adoptArtifacts()
		return res.Job, nil
	case ActionResume:
		r.adoptArtifacts()
		return r.wait(ctx, res.Job.Name)
	}

	if stageCtx, err = r.enter(ctx, StateStaging); err != nil {
		return JobState{}, err
	}
	r.objectKey = ObjectKey(rid, req.AudioConfig.Format)
	key, err := s.stage.Stage(stageCtx, rid, req.Audio, req.AudioConfig.Format)
	if err != nil {
		return JobState{}, err
	}

	spec := JobSpec{Name: rid, MediaURI: s.stage.MediaURI(key), Request: req}
	if s.vocab != nil && len(req.Terms()) > 0 {
		if stageCtx, err = r.enter(ctx, StateProvisioning); err != nil {
			return JobState{}, err
		}
		created, err := s.vocab.Provision(stageCtx, rid, req.Language(), req.Terms())
		r.vocabulary = created
		if err != nil {
			return JobState{}, err
		}
		spec.VocabularyName = rid
	}

	if stageCtx, err = r.enter(ctx, StateSubmitting); err != nil {
		return JobState{}, err
	}
	job, err := s.jobs.Submit(stageCtx, spec)
	if err != nil {
		return JobState{}, err
	}
	if job.Status == JobCompleted {
		return job, nil
	}
	return r.wait(ctx, job.Name)
}

func (r *run) wait(ctx context.Context, name string) (JobState, error) {
	stageCtx, err := r.enter(ctx, StateWaiting)
	if err != nil {
		return JobState{}, err
	}
	return r.saga.jobs.WaitForCompletion(stageCtx, r.req.RequestID, name, r.saga.cfg.JobTimeout)
}

// adoptArtifacts takes ownership of what an earlier invocation created.
// Their names are deterministic, so they can be released afterwards.
func (r *run) adoptArtifacts() {
	if r.saga.stage != nil {
		r.objectKey = ObjectKey(r.req.RequestID, r.req.AudioConfig.Format)
	}
	r.vocabulary = r.saga.vocab != nil && len(r.req.Terms()) > 0
}

// enter moves the saga to state to, closing the span and recording the
// duration of the state it leaves.
func (r *run) enter(ctx context.Context, to State) (context.Context, error) {
	if !canTransition(r.state, to) {
		return ctx, errors.Internal(r.req.RequestID, fmt.Errorf("invalid saga transition %s -> %s", r.state, to))
	}
	now := r.saga.clock.Now()
	r.saga.metrics.RecordStage(ctx, r.saga.Name(), string(r.state), now.Sub(r.entered))
	r.span.End()
	fields := logger.DurationFields(string(to), now.Sub(r.entered))
	fields["from"] = string(r.state)
	r.log.Debug("saga transition", fields)

	r.state, r.entered = to, now
	stageCtx, span := observability.StartSpan(ctx, "transcription."+string(to))
	r.span = span
	observability.SetSpanAttribute(stageCtx, observability.AttrStage, string(to))
	return stageCtx, nil
}

// fail moves the saga to StateFailed, compensates, and returns err in
// taxonomy form.
func (r *run) fail(ctx context.Context, err error) error {
	err = taxonomy(r.req.RequestID, err)
	r.log.Warn("transcription failed", logger.ErrorFields(string(r.state), err))
	if _, terr := r.enter(ctx, StateFailed); terr != nil {
		r.log.Error("invalid failure transition", logger.MergeWithError(nil, terr))
	}
	r.compensate(ctx)
	r.span.End()
	return err
}

// compensate releases the vocabulary and the staged object at most once.
func (r *run) compensate(ctx context.Context) {
	if r.compensated {
		return
	}
	r.compensated = true
	ctx = context.WithoutCancel(ctx)
	if r.vocabulary {
		r.saga.vocab.Release(ctx, r.req.RequestID)
	}
	if r.objectKey != "" {
		r.saga.stage.Release(ctx, r.req.RequestID, r.objectKey)
	}
}

// taxonomy tags err with the request id. Context errors pass through.
func taxonomy(requestID string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Ensure(requestID, err)
}
