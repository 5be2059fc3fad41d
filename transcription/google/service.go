package google

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/httpclient"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/transcription"
)

// MaxSyncAudioSize is the largest payload sent to synchronous recognize.
const MaxSyncAudioSize = 10 * 1024 * 1024

// Service talks to the Speech-to-Text v2 REST API. Jobs are long-running
// operations; their provider-generated names reach later invocations
// through the effect journal.
type Service struct {
	client     *httpclient.Client
	recognizer string
	log        *logger.Logger
}

var (
	_ transcription.Recognizer = (*Service)(nil)
	_ transcription.JobService = (*Service)(nil)
)

// Accepts reports whether req qualifies for synchronous recognition.
func (s *Service) Accepts(req *transcription.TranscriptionRequest) bool {
	return len(req.Audio) < MaxSyncAudioSize && strings.EqualFold(req.Model(), "short")
}

// Recognize runs synchronous recognition and returns the raw response.
func (s *Service) Recognize(ctx context.Context, req *transcription.TranscriptionRequest) (json.RawMessage, error) {
	body := recognizeRequest{Config: recognitionConfig(req), Content: req.Audio}
	return httpclient.Post[json.RawMessage](s.client, ctx, s.recognizer+":recognize", body,
		httpclient.WithRequestID(req.RequestID))
}

// StartJob submits a batchRecognize operation for spec.MediaURI.
func (s *Service) StartJob(ctx context.Context, spec transcription.JobSpec) (transcription.JobState, error) {
	body := batchRecognizeRequest{
		Config: recognitionConfig(spec.Request),
		Files:  []fileMetadata{{URI: spec.MediaURI}},
	}
	op, err := httpclient.Post[operation](s.client, ctx, s.recognizer+":batchRecognize", body,
		httpclient.WithRequestID(spec.Name))
	if err != nil {
		return transcription.JobState{}, err
	}
	s.log.Debug("batch recognize started", logger.Fields(
		logger.FieldRequestID, spec.Name,
		logger.FieldJob, op.Name,
	))
	return op.state(spec.Name)
}

// GetJob polls the operation.
func (s *Service) GetJob(ctx context.Context, name string) (transcription.JobState, error) {
	op, err := httpclient.Get[operation](s.client, ctx, name)
	if err != nil {
		return transcription.JobState{}, err
	}
	return op.state("")
}

// DeleteJob deletes the operation record.
func (s *Service) DeleteJob(ctx context.Context, name string) error {
	_, err := httpclient.Delete[json.RawMessage](s.client, ctx, name)
	return err
}

func recognitionConfig(req *transcription.TranscriptionRequest) recognizerConfig {
	cfg := recognizerConfig{
		Model: req.Model(),
		Features: features{
			EnableWordTimeOffsets:      true,
			EnableWordConfidence:       true,
			EnableAutomaticPunctuation: true,
			MaxAlternatives:            1,
		},
	}
	if lang := req.Language(); lang != "" {
		cfg.LanguageCodes = []string{lang}
	}

	audio := req.AudioConfig
	if audio.Format == transcription.FormatPCM {
		cfg.ExplicitDecodingConfig = &explicitDecoding{
			Encoding:          "LINEAR16",
			SampleRateHertz:   audio.SampleRateHertz,
			AudioChannelCount: audio.Channels,
		}
	} else {
		cfg.AutoDecodingConfig = &struct{}{}
	}

	if audio.Channels > 1 && req.MultiChannel() && !strings.EqualFold(req.Model(), "latest_short") {
		cfg.Features.MultiChannelMode = "SEPARATE_RECOGNITION_PER_CHANNEL"
	}
	if d := req.Speakers(); d != nil {
		maxSpeakers := d.MaxSpeakers
		if maxSpeakers == 0 {
			maxSpeakers = 6
		}
		cfg.Features.DiarizationConfig = &diarization{MinSpeakerCount: min(2, maxSpeakers), MaxSpeakerCount: maxSpeakers}
	}
	if terms := req.Terms(); len(terms) > 0 {
		phrases := make([]phrase, len(terms))
		for i, t := range terms {
			phrases[i] = phrase{Value: t}
		}
		cfg.Adaptation = &adaptation{PhraseSets: []phraseSetRef{{InlinePhraseSet: phraseSet{Phrases: phrases}}}}
	}
	return cfg
}

type recognizeRequest struct {
	Config  recognizerConfig `json:"config"`
	Content []byte           `json:"content"`
}

type batchRecognizeRequest struct {
	Config                  recognizerConfig `json:"config"`
	Files                   []fileMetadata   `json:"files"`
	RecognitionOutputConfig outputConfig     `json:"recognitionOutputConfig"`
}

type outputConfig struct {
	InlineResponseConfig struct{} `json:"inlineResponseConfig"`
}

type fileMetadata struct {
	URI string `json:"uri"`
}

type recognizerConfig struct {
	Model                  string            `json:"model,omitempty"`
	LanguageCodes          []string          `json:"languageCodes,omitempty"`
	Features               features          `json:"features"`
	Adaptation             *adaptation       `json:"adaptation,omitempty"`
	AutoDecodingConfig     *struct{}         `json:"autoDecodingConfig,omitempty"`
	ExplicitDecodingConfig *explicitDecoding `json:"explicitDecodingConfig,omitempty"`
}

type features struct {
	EnableWordTimeOffsets      bool         `json:"enableWordTimeOffsets,omitempty"`
	EnableWordConfidence       bool         `json:"enableWordConfidence,omitempty"`
	EnableAutomaticPunctuation bool         `json:"enableAutomaticPunctuation,omitempty"`
	MultiChannelMode           string       `json:"multiChannelMode,omitempty"`
	DiarizationConfig          *diarization `json:"diarizationConfig,omitempty"`
	MaxAlternatives            int          `json:"maxAlternatives,omitempty"`
}

type diarization struct {
	MinSpeakerCount int `json:"minSpeakerCount"`
	MaxSpeakerCount int `json:"maxSpeakerCount"`
}

type explicitDecoding struct {
	Encoding          string `json:"encoding"`
	SampleRateHertz   int    `json:"sampleRateHertz,omitempty"`
	AudioChannelCount int    `json:"audioChannelCount,omitempty"`
}

type adaptation struct {
	PhraseSets []phraseSetRef `json:"phraseSets"`
}

type phraseSetRef struct {
	InlinePhraseSet phraseSet `json:"inlinePhraseSet"`
}

type phraseSet struct {
	Phrases []phrase `json:"phrases"`
}

type phrase struct {
	Value string `json:"value"`
}

// operation is a google.longrunning.Operation carrying a
// BatchRecognizeResponse.
type operation struct {
	Name     string         `json:"name"`
	Done     bool           `json:"done"`
	Error    *status        `json:"error,omitempty"`
	Response *batchResponse `json:"response,omitempty"`
}

type status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *status) String() string {
	return fmt.Sprintf("code %d: %s", s.Code, s.Message)
}

type batchResponse struct {
	Results map[string]fileResult `json:"results"`
}

type fileResult struct {
	Error        *status       `json:"error,omitempty"`
	InlineResult *inlineResult `json:"inlineResult,omitempty"`
}

type inlineResult struct {
	Transcript json.RawMessage `json:"transcript"`
}

// state maps the operation onto a job state. A finished operation either
// fails with INTERNAL_ERROR or carries the single file's inline transcript.
func (op operation) state(requestID string) (transcription.JobState, error) {
	state := transcription.JobState{Name: op.Name, Status: transcription.JobInProgress}
	if !op.Done {
		return state, nil
	}
	if op.Error != nil {
		return state, errors.InternalServerError(requestID, "Operation failed: "+op.Error.String())
	}
	if op.Response == nil {
		return state, errors.Unknown(requestID, "Transcription completed but no transcript found")
	}
	for uri, result := range op.Response.Results {
		if result.Error != nil {
			return state, errors.InternalServerError(requestID, "Operation failed: "+result.Error.String())
		}
		if result.InlineResult == nil || len(result.InlineResult.Transcript) == 0 {
			return state, errors.Unknown(requestID, "Transcription completed but no InlineResult found for "+uri)
		}
		state.Status = transcription.JobCompleted
		state.Transcript = result.InlineResult.Transcript
		return state, nil
	}
	return state, errors.Unknown(requestID, "Transcription completed but no transcript found")
}
