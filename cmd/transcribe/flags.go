package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/transcription"
)

// requestFlags are the flags of the run command.
type requestFlags struct {
	file         string
	id           string
	format       string
	sampleRate   int
	channels     int
	language     string
	model        string
	vocabulary   string
	speakers     int
	multiChannel bool
}

func (f *requestFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.file, "file", "", "audio file to transcribe (required)")
	fs.StringVar(&f.id, "id", "", "request id (default: random uuid)")
	fs.StringVar(&f.format, "format", "", "audio format (default: file extension)")
	fs.IntVar(&f.sampleRate, "sample-rate", 0, "sample rate in hertz, required for pcm")
	fs.IntVar(&f.channels, "channels", 0, "channel count")
	fs.StringVar(&f.language, "lang", "", "language code, e.g. en-US")
	fs.StringVar(&f.model, "model", "", "provider model")
	fs.StringVar(&f.vocabulary, "vocab", "", "comma separated custom vocabulary")
	fs.IntVar(&f.speakers, "speakers", 0, "maximum speakers, enables diarization")
	fs.BoolVar(&f.multiChannel, "multi-channel", false, "transcribe channels separately")
}

// request reads the audio file and builds the transcription request.
func (f *requestFlags) request() (*transcription.TranscriptionRequest, error) {
	id := f.id
	if id == "" {
		id = uuid.NewString()
	}
	if f.file == "" {
		return nil, errors.BadRequest(id, "-file is required")
	}
	audio, err := os.ReadFile(f.file)
	if err != nil {
		return nil, errors.BadRequest(id, "failed to read audio: "+err.Error())
	}

	format := f.format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(f.file)), ".")
	}
	req := &transcription.TranscriptionRequest{
		RequestID: id,
		Audio:     audio,
		AudioConfig: transcription.AudioConfig{
			Format:          transcription.AudioFormat(format),
			SampleRateHertz: f.sampleRate,
			Channels:        f.channels,
		},
	}

	cfg := &transcription.TranscriptionConfig{
		Language:     f.language,
		Model:        f.model,
		MultiChannel: f.multiChannel,
	}
	for _, term := range strings.Split(f.vocabulary, ",") {
		if term = strings.TrimSpace(term); term != "" {
			cfg.Vocabulary = append(cfg.Vocabulary, term)
		}
	}
	if f.speakers > 0 {
		cfg.Diarization = &transcription.Diarization{Enabled: true, MaxSpeakers: f.speakers}
	}
	if cfg.Language != "" || cfg.Model != "" || len(cfg.Vocabulary) > 0 || cfg.Diarization != nil || cfg.MultiChannel {
		req.Config = cfg
	}
	return req, nil
}
