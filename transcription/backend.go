package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/provider"
)

// ObjectStore stages audio where a batch job can read it. storage.Storage
// satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	MediaURI(key string) string
}

// VocabularyService manages custom vocabularies named after request ids.
type VocabularyService interface {
	CreateVocabulary(ctx context.Context, name, language string, terms []string) (VocabularyState, error)
	GetVocabulary(ctx context.Context, name string) (VocabularyState, error)
	DeleteVocabulary(ctx context.Context, name string) error
}

// JobService starts and tracks batch transcription jobs.
type JobService interface {
	StartJob(ctx context.Context, spec JobSpec) (JobState, error)
	// GetJob polls the job by the handle StartJob returned in JobState.Name.
	GetJob(ctx context.Context, name string) (JobState, error)
	DeleteJob(ctx context.Context, name string) error
}

// JobLookup is implemented by job services whose job names equal the
// request id, which lets a re-invoked saga find an earlier job.
type JobLookup interface {
	LookupJob(ctx context.Context, requestID string) (JobState, error)
}

// TranscriptStore downloads finished transcripts. httpclient.Client
// satisfies it.
type TranscriptStore interface {
	Download(ctx context.Context, requestID, uri string) ([]byte, error)
}

// Recognizer transcribes a request in a single call, with no staging.
type Recognizer interface {
	// Accepts reports whether req can take the synchronous path.
	Accepts(req *TranscriptionRequest) bool
	Recognize(ctx context.Context, req *TranscriptionRequest) (json.RawMessage, error)
}

// Backend is the capability set of one speech provider. Optional
// capabilities are nil when the provider lacks them.
type Backend struct {
	ProviderName string
	Naming       NamingRules
	Objects      ObjectStore
	Vocabulary   VocabularyService
	Jobs         JobService
	Transcripts  TranscriptStore
	Recognizer   Recognizer
	// Languages lists supported language codes. Empty accepts any.
	Languages []string
	// Formats lists accepted audio formats. Empty accepts any.
	Formats []AudioFormat
	// Ping reports upstream availability. Nil means always available.
	Ping func(ctx context.Context) bool
}

// Name returns the provider name.
func (b *Backend) Name() string { return b.ProviderName }

// IsAvailable runs Ping, if set.
func (b *Backend) IsAvailable(ctx context.Context) bool {
	return b.Ping == nil || b.Ping(ctx)
}

// Validate checks that the backend can run at least one path.
func (b *Backend) Validate() error {
	if b.ProviderName == "" {
		return fmt.Errorf("backend name is required")
	}
	if b.Recognizer == nil && (b.Jobs == nil || b.Objects == nil) {
		return fmt.Errorf("backend %q needs a recognizer or both jobs and objects", b.ProviderName)
	}
	return nil
}

// SupportsLanguage reports whether code is in the backend's language list.
func (b *Backend) SupportsLanguage(code string) bool {
	return len(b.Languages) == 0 || slices.Contains(b.Languages, code)
}

// SupportsFormat reports whether f is in the backend's format list.
func (b *Backend) SupportsFormat(f AudioFormat) bool {
	return len(b.Formats) == 0 || slices.Contains(b.Formats, f)
}

// BackendOptions is passed to backend factories.
type BackendOptions struct {
	// Settings is the backend's own configuration section.
	Settings any
	// Objects is the staging store for backends that run batch jobs.
	Objects ObjectStore
	Log     *logger.Logger
}

// BackendFactory builds a backend from options.
type BackendFactory = provider.Factory[*Backend, BackendOptions]

var backends = provider.NewRegistry[*Backend, BackendOptions]()

// RegisterBackend makes a backend available to NewBackend. Backend
// packages call it from init.
func RegisterBackend(name string, factory BackendFactory) {
	backends.RegisterFactory(name, factory)
}

// NewBackend builds and validates the named backend.
func NewBackend(ctx context.Context, name string, opts BackendOptions) (*Backend, error) {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	b, err := backends.Create(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// BackendNames lists the registered backends.
func BackendNames() []string {
	return backends.List()
}
