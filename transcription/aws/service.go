package aws

import (
	"context"
	stderrors "errors"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/aws/smithy-go"

	"github.com/kbukum/transcribe/awsclient"
	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/transcription"
)

// API is the subset of the Transcribe client the backend calls.
type API interface {
	CreateVocabulary(ctx context.Context, in *transcribe.CreateVocabularyInput, opts ...func(*transcribe.Options)) (*transcribe.CreateVocabularyOutput, error)
	GetVocabulary(ctx context.Context, in *transcribe.GetVocabularyInput, opts ...func(*transcribe.Options)) (*transcribe.GetVocabularyOutput, error)
	DeleteVocabulary(ctx context.Context, in *transcribe.DeleteVocabularyInput, opts ...func(*transcribe.Options)) (*transcribe.DeleteVocabularyOutput, error)
	StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, opts ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, opts ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
	DeleteTranscriptionJob(ctx context.Context, in *transcribe.DeleteTranscriptionJobInput, opts ...func(*transcribe.Options)) (*transcribe.DeleteTranscriptionJobOutput, error)
}

// Service implements the vocabulary and job services on Transcribe.
// Vocabulary and job names are the request id.
type Service struct {
	api API
	log *logger.Logger
}

var (
	_ transcription.VocabularyService = (*Service)(nil)
	_ transcription.JobService        = (*Service)(nil)
	_ transcription.JobLookup         = (*Service)(nil)
)

// NewService wraps a Transcribe client. A nil log discards output.
func NewService(api API, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{api: api, log: log.WithComponent("aws")}
}

// CreateVocabulary creates a custom vocabulary from phrases.
func (s *Service) CreateVocabulary(ctx context.Context, name, language string, terms []string) (transcription.VocabularyState, error) {
	out, err := s.api.CreateVocabulary(ctx, &transcribe.CreateVocabularyInput{
		VocabularyName: awssdk.String(name),
		LanguageCode:   types.LanguageCode(language),
		Phrases:        terms,
	})
	if err != nil {
		return transcription.VocabularyState{}, classify(name, err)
	}
	return transcription.VocabularyState{
		Name:          name,
		Status:        transcription.VocabularyStatus(out.VocabularyState),
		FailureReason: awssdk.ToString(out.FailureReason),
	}, nil
}

// GetVocabulary reports the vocabulary's state.
func (s *Service) GetVocabulary(ctx context.Context, name string) (transcription.VocabularyState, error) {
	out, err := s.api.GetVocabulary(ctx, &transcribe.GetVocabularyInput{VocabularyName: awssdk.String(name)})
	if err != nil {
		return transcription.VocabularyState{}, classify(name, err)
	}
	return transcription.VocabularyState{
		Name:          name,
		Status:        transcription.VocabularyStatus(out.VocabularyState),
		FailureReason: awssdk.ToString(out.FailureReason),
	}, nil
}

// DeleteVocabulary removes the vocabulary.
func (s *Service) DeleteVocabulary(ctx context.Context, name string) error {
	_, err := s.api.DeleteVocabulary(ctx, &transcribe.DeleteVocabularyInput{VocabularyName: awssdk.String(name)})
	return classify(name, err)
}

// StartJob submits a transcription job reading spec.MediaURI.
func (s *Service) StartJob(ctx context.Context, spec transcription.JobSpec) (transcription.JobState, error) {
	in := startJobInput(spec)
	out, err := s.api.StartTranscriptionJob(ctx, in)
	if err != nil {
		return transcription.JobState{}, classify(spec.Name, err)
	}
	s.log.Debug("transcription job started", logger.Fields(
		logger.FieldRequestID, spec.Name,
		logger.FieldJob, spec.Name,
	))
	return jobState(out.TranscriptionJob, spec.Name), nil
}

// GetJob reports the job's state.
func (s *Service) GetJob(ctx context.Context, name string) (transcription.JobState, error) {
	out, err := s.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: awssdk.String(name),
	})
	if err != nil {
		return transcription.JobState{}, classify(name, err)
	}
	return jobState(out.TranscriptionJob, name), nil
}

// LookupJob finds the job of requestID. Job names are request ids, so this
// is GetJob; a missing job is NOT_FOUND.
func (s *Service) LookupJob(ctx context.Context, requestID string) (transcription.JobState, error) {
	return s.GetJob(ctx, requestID)
}

// DeleteJob removes the job.
func (s *Service) DeleteJob(ctx context.Context, name string) error {
	_, err := s.api.DeleteTranscriptionJob(ctx, &transcribe.DeleteTranscriptionJobInput{
		TranscriptionJobName: awssdk.String(name),
	})
	return classify(name, err)
}

// startJobInput maps the request onto StartTranscriptionJob. Model and
// vocabulary need an explicit language; without one Transcribe identifies
// the language itself.
func startJobInput(spec transcription.JobSpec) *transcribe.StartTranscriptionJobInput {
	req := spec.Request
	in := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: awssdk.String(spec.Name),
		Media:                &types.Media{MediaFileUri: awssdk.String(spec.MediaURI)},
		MediaFormat:          types.MediaFormat(req.AudioConfig.Format),
	}
	if rate := req.AudioConfig.SampleRateHertz; rate > 0 {
		in.MediaSampleRateHertz = awssdk.Int32(int32(rate))
	}

	var settings *types.Settings
	settingsFor := func() *types.Settings {
		if settings == nil {
			settings = &types.Settings{}
		}
		return settings
	}

	if lang := req.Language(); lang != "" {
		in.LanguageCode = types.LanguageCode(lang)
		if model := req.Model(); model != "" {
			in.ModelSettings = &types.ModelSettings{LanguageModelName: awssdk.String(model)}
		}
		if spec.VocabularyName != "" {
			settingsFor().VocabularyName = awssdk.String(spec.VocabularyName)
		}
	} else {
		in.IdentifyLanguage = awssdk.Bool(true)
	}

	if req.AudioConfig.Channels == 2 && req.MultiChannel() {
		settingsFor().ChannelIdentification = awssdk.Bool(true)
	}
	if d := req.Speakers(); d != nil {
		st := settingsFor()
		st.ShowSpeakerLabels = awssdk.Bool(true)
		if d.MaxSpeakers > 0 {
			st.MaxSpeakerLabels = awssdk.Int32(int32(d.MaxSpeakers))
		}
	}
	in.Settings = settings
	return in
}

func jobState(job *types.TranscriptionJob, name string) transcription.JobState {
	if job == nil {
		return transcription.JobState{Name: name}
	}
	state := transcription.JobState{
		Name:          awssdk.ToString(job.TranscriptionJobName),
		Status:        transcription.JobStatus(job.TranscriptionJobStatus),
		FailureReason: awssdk.ToString(job.FailureReason),
	}
	if state.Name == "" {
		state.Name = name
	}
	if job.Transcript != nil {
		state.TranscriptURI = awssdk.ToString(job.Transcript.TranscriptFileUri)
	}
	return state
}

// classify maps SDK errors. Transcribe answers a missing job or vocabulary
// with BadRequestException, so the message decides NOT_FOUND.
func classify(requestID string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) && strings.Contains(apiErr.ErrorMessage(), "couldn't be found") {
		return errors.NotFound(requestID, apiErr.ErrorMessage()).WithCause(err)
	}
	return awsclient.Classify(requestID, err)
}
