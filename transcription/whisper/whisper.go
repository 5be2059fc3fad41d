// Package whisper is a synchronous backend for a faster-whisper HTTP
// sidecar. Import it for side effects to register the "whisper" backend.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/transcribe/httpclient"
	"github.com/kbukum/transcribe/transcription"
)

const (
	// ProviderName is the registered name for the Whisper backend.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 120 * time.Second
)

func init() {
	transcription.RegisterBackend(ProviderName, func(_ context.Context, opts transcription.BackendOptions) (*transcription.Backend, error) {
		cfg := &Config{}
		if opts.Settings != nil {
			c, ok := opts.Settings.(*Config)
			if !ok {
				return nil, fmt.Errorf("whisper: expected *whisper.Config, got %T", opts.Settings)
			}
			cfg = c
		}
		r, err := New(*cfg)
		if err != nil {
			return nil, err
		}
		return r.Backend(), nil
	})
}

// Config holds configuration for the Whisper sidecar.
type Config struct {
	URL         string        `yaml:"url" mapstructure:"url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Device      string        `yaml:"device" mapstructure:"device"`
	ComputeType string        `yaml:"compute_type" mapstructure:"compute_type"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultWhisperURL
	}
	if c.Model == "" {
		c.Model = defaultWhisperModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultWhisperTimeout
	}
}

// Validate checks the sidecar URL.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("whisper: url must be http(s), got %q", c.URL)
	}
	return nil
}

// Recognizer sends audio to the sidecar's /transcribe endpoint.
type Recognizer struct {
	cfg    Config
	client *httpclient.Client
}

// New creates a recognizer.
func New(cfg Config) (*Recognizer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hc := httpclient.ProviderConfig(ProviderName, cfg.URL)
	hc.Timeout = cfg.Timeout
	client, err := httpclient.New(hc)
	if err != nil {
		return nil, err
	}
	return &Recognizer{cfg: cfg, client: client}, nil
}

// Backend wraps the recognizer. Whisper detects the language itself, so
// any language code is accepted.
func (r *Recognizer) Backend() *transcription.Backend {
	return &transcription.Backend{
		ProviderName: ProviderName,
		Naming:       transcription.NamingRules{MaxLength: 256},
		Recognizer:   r,
		Ping:         r.IsAvailable,
	}
}

// IsAvailable checks if the sidecar answers its health endpoint.
func (r *Recognizer) IsAvailable(ctx context.Context) bool {
	_, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil
}

// Accepts reports true: the sidecar takes any request it can decode.
func (r *Recognizer) Accepts(*transcription.TranscriptionRequest) bool { return true }

// Recognize uploads the audio and returns the sidecar's JSON response.
func (r *Recognizer) Recognize(ctx context.Context, req *transcription.TranscriptionRequest) (json.RawMessage, error) {
	model := r.cfg.Model
	if m := req.Model(); m != "" {
		model = m
	}

	body := &httpclient.MultipartBody{
		Fields: map[string]string{"model": model},
		Files: []httpclient.FileField{{
			FieldName:   "audio",
			FileName:    "audio." + string(req.AudioConfig.Format),
			ContentType: req.AudioConfig.Format.ContentType(),
			Data:        req.Audio,
		}},
	}
	if lang := baseLanguage(req.Language()); lang != "" {
		body.Fields["language"] = lang
	}
	if r.cfg.Device != "" {
		body.Fields["device"] = r.cfg.Device
	}
	if r.cfg.ComputeType != "" {
		body.Fields["compute_type"] = r.cfg.ComputeType
	}
	if len(req.Terms()) > 0 {
		body.Fields["initial_prompt"] = strings.Join(req.Terms(), ", ")
	}

	return httpclient.Post[json.RawMessage](r.client, ctx, "/transcribe", body,
		httpclient.WithRequestID(req.RequestID))
}

// baseLanguage turns "en-US" into the ISO 639-1 code whisper expects.
func baseLanguage(code string) string {
	base, _, _ := strings.Cut(code, "-")
	return strings.ToLower(base)
}
