package aws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/aws/smithy-go"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/storage/local"
	"github.com/kbukum/transcribe/transcription"
)

func notFound(what string) error {
	return &smithy.GenericAPIError{
		Code:    "BadRequestException",
		Message: "The requested " + what + " couldn't be found. Check the name and try again.",
	}
}

// fakeAPI keeps vocabularies and jobs in memory. A job completes on its
// first poll.
type fakeAPI struct {
	mu           sync.Mutex
	transcript   string
	vocabularies map[string]types.VocabularyState
	jobs         map[string]*types.TranscriptionJob
	started      []*transcribe.StartTranscriptionJobInput
	deletedJobs  []string
	deletedVocab []string
}

func newFakeAPI(transcriptURI string) *fakeAPI {
	return &fakeAPI{
		transcript:   transcriptURI,
		vocabularies: map[string]types.VocabularyState{},
		jobs:         map[string]*types.TranscriptionJob{},
	}
}

func (f *fakeAPI) CreateVocabulary(_ context.Context, in *transcribe.CreateVocabularyInput, _ ...func(*transcribe.Options)) (*transcribe.CreateVocabularyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vocabularies[awssdk.ToString(in.VocabularyName)] = types.VocabularyStateReady
	return &transcribe.CreateVocabularyOutput{
		VocabularyName:  in.VocabularyName,
		VocabularyState: types.VocabularyStatePending,
	}, nil
}

func (f *fakeAPI) GetVocabulary(_ context.Context, in *transcribe.GetVocabularyInput, _ ...func(*transcribe.Options)) (*transcribe.GetVocabularyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.vocabularies[awssdk.ToString(in.VocabularyName)]
	if !ok {
		return nil, notFound("vocabulary")
	}
	return &transcribe.GetVocabularyOutput{VocabularyName: in.VocabularyName, VocabularyState: state}, nil
}

func (f *fakeAPI) DeleteVocabulary(_ context.Context, in *transcribe.DeleteVocabularyInput, _ ...func(*transcribe.Options)) (*transcribe.DeleteVocabularyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := awssdk.ToString(in.VocabularyName)
	f.deletedVocab = append(f.deletedVocab, name)
	delete(f.vocabularies, name)
	return &transcribe.DeleteVocabularyOutput{}, nil
}

func (f *fakeAPI) StartTranscriptionJob(_ context.Context, in *transcribe.StartTranscriptionJobInput, _ ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, in)
	job := &types.TranscriptionJob{
		TranscriptionJobName:   in.TranscriptionJobName,
		TranscriptionJobStatus: types.TranscriptionJobStatusInProgress,
	}
	f.jobs[awssdk.ToString(in.TranscriptionJobName)] = job
	return &transcribe.StartTranscriptionJobOutput{TranscriptionJob: job}, nil
}

func (f *fakeAPI) GetTranscriptionJob(_ context.Context, in *transcribe.GetTranscriptionJobInput, _ ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[awssdk.ToString(in.TranscriptionJobName)]
	if !ok {
		return nil, notFound("job")
	}
	if job.TranscriptionJobStatus == types.TranscriptionJobStatusInProgress {
		job.TranscriptionJobStatus = types.TranscriptionJobStatusCompleted
		job.Transcript = &types.Transcript{TranscriptFileUri: awssdk.String(f.transcript)}
	}
	return &transcribe.GetTranscriptionJobOutput{TranscriptionJob: job}, nil
}

func (f *fakeAPI) DeleteTranscriptionJob(_ context.Context, in *transcribe.DeleteTranscriptionJobInput, _ ...func(*transcribe.Options)) (*transcribe.DeleteTranscriptionJobOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := awssdk.ToString(in.TranscriptionJobName)
	f.deletedJobs = append(f.deletedJobs, name)
	delete(f.jobs, name)
	return &transcribe.DeleteTranscriptionJobOutput{}, nil
}

func request(cfg *transcription.TranscriptionConfig, channels int) *transcription.TranscriptionRequest {
	return &transcription.TranscriptionRequest{
		RequestID:   "job-1",
		Audio:       []byte("RIFFdata"),
		AudioConfig: transcription.AudioConfig{Format: transcription.FormatWAV, Channels: channels},
		Config:      cfg,
	}
}

func TestStartJobInput(t *testing.T) {
	t.Run("language with model and vocabulary", func(t *testing.T) {
		in := startJobInput(transcription.JobSpec{
			Name:           "job-1",
			MediaURI:       "s3://bucket/job-1/audio.wav",
			VocabularyName: "job-1",
			Request:        request(&transcription.TranscriptionConfig{Language: "en-US", Model: "custom-lm"}, 1),
		})
		if in.LanguageCode != types.LanguageCode("en-US") || in.IdentifyLanguage != nil {
			t.Errorf("unexpected language settings %v %v", in.LanguageCode, in.IdentifyLanguage)
		}
		if in.ModelSettings == nil || awssdk.ToString(in.ModelSettings.LanguageModelName) != "custom-lm" {
			t.Errorf("expected model settings, got %+v", in.ModelSettings)
		}
		if in.Settings == nil || awssdk.ToString(in.Settings.VocabularyName) != "job-1" {
			t.Errorf("expected the vocabulary, got %+v", in.Settings)
		}
		if in.MediaFormat != types.MediaFormatWav || awssdk.ToString(in.Media.MediaFileUri) != "s3://bucket/job-1/audio.wav" {
			t.Errorf("unexpected media %v %v", in.MediaFormat, awssdk.ToString(in.Media.MediaFileUri))
		}
	})

	t.Run("no language identifies it", func(t *testing.T) {
		in := startJobInput(transcription.JobSpec{Name: "job-1", Request: request(nil, 1)})
		if !awssdk.ToBool(in.IdentifyLanguage) || in.LanguageCode != "" {
			t.Errorf("expected language identification, got %v %q", in.IdentifyLanguage, in.LanguageCode)
		}
		if in.Settings != nil || in.ModelSettings != nil {
			t.Errorf("expected no settings, got %+v %+v", in.Settings, in.ModelSettings)
		}
	})

	t.Run("model ignored without language", func(t *testing.T) {
		in := startJobInput(transcription.JobSpec{Name: "job-1", Request: request(&transcription.TranscriptionConfig{Model: "custom-lm"}, 1)})
		if in.ModelSettings != nil {
			t.Errorf("expected no model settings, got %+v", in.ModelSettings)
		}
	})

	t.Run("channel identification", func(t *testing.T) {
		tests := []struct {
			channels int
			multi    bool
			want     bool
		}{
			{2, true, true},
			{2, false, false},
			{1, true, false},
		}
		for _, tt := range tests {
			in := startJobInput(transcription.JobSpec{
				Name:    "job-1",
				Request: request(&transcription.TranscriptionConfig{Language: "en-US", MultiChannel: tt.multi}, tt.channels),
			})
			got := in.Settings != nil && awssdk.ToBool(in.Settings.ChannelIdentification)
			if got != tt.want {
				t.Errorf("channels=%d multi=%v: channel identification = %v", tt.channels, tt.multi, got)
			}
		}
	})

	t.Run("diarization", func(t *testing.T) {
		in := startJobInput(transcription.JobSpec{
			Name: "job-1",
			Request: request(&transcription.TranscriptionConfig{
				Language:    "en-US",
				Diarization: &transcription.Diarization{Enabled: true, MaxSpeakers: 4},
			}, 1),
		})
		if in.Settings == nil || !awssdk.ToBool(in.Settings.ShowSpeakerLabels) || awssdk.ToInt32(in.Settings.MaxSpeakerLabels) != 4 {
			t.Errorf("expected speaker labels, got %+v", in.Settings)
		}
	})
}

func TestService_NotFound(t *testing.T) {
	svc := NewService(newFakeAPI(""), nil)

	_, err := svc.LookupJob(context.Background(), "job-1")
	if !errors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	_, err = svc.GetVocabulary(context.Background(), "job-1")
	if !errors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.ErrorCode
	}{
		{"missing job", notFound("job"), errors.ErrCodeNotFound},
		{"bad request", &smithy.GenericAPIError{Code: "BadRequestException", Message: "invalid media"}, errors.ErrCodeBadRequest},
		{"throttled", &smithy.GenericAPIError{Code: "LimitExceededException", Message: "slow down"}, errors.ErrCodeRateLimited},
		{"conflict", &smithy.GenericAPIError{Code: "ConflictException", Message: "exists"}, errors.ErrCodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Code(classify("job-1", tt.err)); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
	if classify("job-1", nil) != nil {
		t.Error("nil must stay nil")
	}
}

func TestBackendThroughSaga(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jobName":"job-1","results":{"transcripts":[{"transcript":"hello"}]}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	objects, err := local.NewStorage(dir)
	if err != nil {
		t.Fatalf("local.NewStorage: %v", err)
	}
	api := newFakeAPI(srv.URL + "/job-1.json")
	backend, err := NewBackend(api, objects, Config{}, nil)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	saga, err := transcription.NewSaga(backend, transcription.Config{PollInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("NewSaga: %v", err)
	}

	req := request(&transcription.TranscriptionConfig{Language: "en-US", Vocabulary: []string{"gokit"}}, 1)
	resp, err := saga.Transcribe(context.Background(), req)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Provider != ProviderName || resp.AudioSizeBytes != len(req.Audio) {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(api.started) != 1 || awssdk.ToString(api.started[0].Settings.VocabularyName) != "job-1" {
		t.Errorf("expected one job using the vocabulary, got %+v", api.started)
	}
	if len(api.deletedVocab) != 1 {
		t.Errorf("expected the vocabulary to be deleted, got %v", api.deletedVocab)
	}
	if _, err := os.Stat(filepath.Join(dir, "job-1", "audio.wav")); !os.IsNotExist(err) {
		t.Errorf("expected the staged audio to be deleted, stat returned %v", err)
	}
}

func TestBackendRejectsUnsupportedLanguage(t *testing.T) {
	objects, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	api := newFakeAPI("")
	backend, err := NewBackend(api, objects, Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	saga, err := transcription.NewSaga(backend, transcription.Config{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = saga.Transcribe(context.Background(), request(&transcription.TranscriptionConfig{Language: "xx-XX"}, 1))
	if errors.Code(err) != errors.ErrCodeBadRequest {
		t.Errorf("expected BAD_REQUEST, got %v", err)
	}
	if len(api.started) != 0 {
		t.Error("no job may start for an unsupported language")
	}
}
