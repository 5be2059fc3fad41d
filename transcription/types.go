package transcription

import (
	"encoding/json"
	"fmt"
)

// AudioFormat is the container or encoding of the submitted audio.
type AudioFormat string

// Supported audio formats.
const (
	FormatWAV  AudioFormat = "wav"
	FormatMP3  AudioFormat = "mp3"
	FormatFLAC AudioFormat = "flac"
	FormatOGG  AudioFormat = "ogg"
	FormatWebM AudioFormat = "webm"
	FormatMP4  AudioFormat = "mp4"
	FormatM4A  AudioFormat = "m4a"
	FormatAMR  AudioFormat = "amr"
	FormatPCM  AudioFormat = "pcm"
)

var contentTypes = map[AudioFormat]string{
	FormatWAV:  "audio/wav",
	FormatMP3:  "audio/mpeg",
	FormatFLAC: "audio/flac",
	FormatOGG:  "audio/ogg",
	FormatWebM: "audio/webm",
	FormatMP4:  "audio/mp4",
	FormatM4A:  "audio/mp4",
	FormatAMR:  "audio/amr",
	FormatPCM:  "audio/l16",
}

// ContentType returns the MIME type used when staging audio of format f.
func (f AudioFormat) ContentType() string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AudioConfig describes the audio bytes of a request.
type AudioConfig struct {
	Format          AudioFormat `json:"format" validate:"required,oneof=wav mp3 flac ogg webm mp4 m4a amr pcm"`
	Channels        int         `json:"channels,omitempty" validate:"gte=0,lte=8"`
	SampleRateHertz int         `json:"sample_rate_hertz,omitempty" validate:"gte=0"`
}

// Diarization enables speaker labelling.
type Diarization struct {
	Enabled     bool `json:"enabled"`
	MaxSpeakers int  `json:"max_speakers,omitempty" validate:"gte=0,lte=30"`
}

// TranscriptionConfig holds the optional recognition settings.
type TranscriptionConfig struct {
	// Language is a BCP-47 code. Empty means automatic language detection.
	Language     string       `json:"language,omitempty"`
	Model        string       `json:"model,omitempty"`
	Diarization  *Diarization `json:"diarization,omitempty"`
	Vocabulary   []string     `json:"vocabulary,omitempty" validate:"dive,required"`
	MultiChannel bool         `json:"multi_channel,omitempty"`
}

// TranscriptionRequest is one unit of work. RequestID names every remote
// artifact the saga creates, so it must satisfy the backend's NamingRules.
type TranscriptionRequest struct {
	RequestID   string               `json:"request_id" validate:"required"`
	Audio       []byte               `json:"audio" validate:"required,min=1"`
	AudioConfig AudioConfig          `json:"audio_config"`
	Config      *TranscriptionConfig `json:"config,omitempty"`
}

// Language returns the requested language, or "" for auto detection.
func (r *TranscriptionRequest) Language() string {
	if r.Config == nil {
		return ""
	}
	return r.Config.Language
}

// Model returns the requested model override, if any.
func (r *TranscriptionRequest) Model() string {
	if r.Config == nil {
		return ""
	}
	return r.Config.Model
}

// Terms returns the custom vocabulary terms.
func (r *TranscriptionRequest) Terms() []string {
	if r.Config == nil {
		return nil
	}
	return r.Config.Vocabulary
}

// Speakers returns the diarization settings, or nil when diarization is off.
func (r *TranscriptionRequest) Speakers() *Diarization {
	if r.Config == nil || r.Config.Diarization == nil || !r.Config.Diarization.Enabled {
		return nil
	}
	return r.Config.Diarization
}

// MultiChannel reports whether per-channel recognition was requested.
func (r *TranscriptionRequest) MultiChannel() bool {
	return r.Config != nil && r.Config.MultiChannel
}

// ObjectKey returns the deterministic staging key for a request.
func ObjectKey(requestID string, format AudioFormat) string {
	return fmt.Sprintf("%s/audio.%s", requestID, format)
}

// TranscriptionResponse carries the provider transcript unmodified.
type TranscriptionResponse struct {
	RequestID      string          `json:"request_id"`
	AudioSizeBytes int             `json:"audio_size_bytes"`
	Language       string          `json:"language"`
	Model          string          `json:"model,omitempty"`
	Provider       string          `json:"provider"`
	Transcript     json.RawMessage `json:"transcript"`
}

// JobStatus is the normalized state of a remote transcription job.
type JobStatus string

// Job statuses.
const (
	JobQueued     JobStatus = "QUEUED"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// VocabularyStatus is the normalized state of a custom vocabulary.
type VocabularyStatus string

// Vocabulary statuses.
const (
	VocabularyPending VocabularyStatus = "PENDING"
	VocabularyReady   VocabularyStatus = "READY"
	VocabularyFailed  VocabularyStatus = "FAILED"
)

// JobState is a snapshot of a remote job. Name is the handle used for
// polling: the request id, or a provider operation name recorded in the
// journal. Transcript holds inline results when the provider returns them.
type JobState struct {
	Name          string          `json:"name"`
	Status        JobStatus       `json:"status"`
	TranscriptURI string          `json:"transcript_uri,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Transcript    json.RawMessage `json:"transcript,omitempty"`
}

// VocabularyState is a snapshot of a remote vocabulary.
type VocabularyState struct {
	Name          string           `json:"name"`
	Status        VocabularyStatus `json:"status"`
	FailureReason string           `json:"failure_reason,omitempty"`
}

// JobSpec is everything a backend needs to start a job.
type JobSpec struct {
	// Name is the job name, always the request id.
	Name string
	// MediaURI points at the staged audio.
	MediaURI string
	// VocabularyName is set when a vocabulary was provisioned. Backends
	// without vocabulary provisioning read the terms from Request instead.
	VocabularyName string
	Request        *TranscriptionRequest
}
