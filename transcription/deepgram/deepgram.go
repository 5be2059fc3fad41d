// Package deepgram is a synchronous backend for Deepgram's pre-recorded
// API. Import it for side effects to register the "deepgram" backend.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/transcription"
	"github.com/kbukum/transcribe/util"
)

// ProviderName is the registered backend name.
const ProviderName = "deepgram"

const defaultModel = "nova-2"

func init() {
	transcription.RegisterBackend(ProviderName, func(_ context.Context, opts transcription.BackendOptions) (*transcription.Backend, error) {
		cfg := &Config{}
		if opts.Settings != nil {
			c, ok := opts.Settings.(*Config)
			if !ok {
				return nil, fmt.Errorf("deepgram: expected *deepgram.Config, got %T", opts.Settings)
			}
			cfg = c
		}
		r, err := New(*cfg, opts.Log)
		if err != nil {
			return nil, err
		}
		return r.Backend(), nil
	})
}

// Config holds Deepgram settings. An empty APIKey falls back to the
// DEEPGRAM_API_KEY environment variable.
type Config struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	Host        string `yaml:"host" mapstructure:"host"`
	Model       string `yaml:"model" mapstructure:"model"`
	SmartFormat bool   `yaml:"smart_format" mapstructure:"smart_format"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
}

// FromStreamFunc sends audio to the pre-recorded endpoint.
type FromStreamFunc func(ctx context.Context, src io.Reader, opts *interfaces.PreRecordedTranscriptionOptions) (any, error)

// Recognizer transcribes audio in one call.
type Recognizer struct {
	cfg        Config
	fromStream FromStreamFunc
	log        *logger.Logger
}

var _ transcription.Recognizer = (*Recognizer)(nil)

// New creates a recognizer on the Deepgram SDK REST client.
func New(cfg Config, log *logger.Logger) (*Recognizer, error) {
	cfg.ApplyDefaults()
	rest := client.NewREST(cfg.APIKey, &interfaces.ClientOptions{Host: cfg.Host})
	if rest == nil {
		return nil, fmt.Errorf("deepgram: failed to create REST client")
	}
	dg := api.New(rest)
	r := NewWithFunc(cfg, func(ctx context.Context, src io.Reader, opts *interfaces.PreRecordedTranscriptionOptions) (any, error) {
		res, err := dg.FromStream(ctx, src, opts)
		if err != nil {
			return nil, err
		}
		return res, nil
	}, log)
	r.log.Info("Deepgram client created", logger.Fields(
		"host", cfg.Host,
		"model", cfg.Model,
		"api_key", util.MaskSecret(cfg.APIKey, 4),
	))
	return r, nil
}

// NewWithFunc creates a recognizer around fn.
func NewWithFunc(cfg Config, fn FromStreamFunc, log *logger.Logger) *Recognizer {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Recognizer{cfg: cfg, fromStream: fn, log: log.WithComponent(ProviderName)}
}

// Backend wraps the recognizer. Any language is passed through.
func (r *Recognizer) Backend() *transcription.Backend {
	return &transcription.Backend{
		ProviderName: ProviderName,
		Naming:       transcription.NamingRules{MaxLength: 256},
		Recognizer:   r,
	}
}

// Accepts is true for every request.
func (r *Recognizer) Accepts(*transcription.TranscriptionRequest) bool { return true }

// Recognize sends the audio and returns the SDK response as JSON.
func (r *Recognizer) Recognize(ctx context.Context, req *transcription.TranscriptionRequest) (json.RawMessage, error) {
	opts := r.options(req)
	r.log.Debug("pre-recorded request", logger.Fields(
		logger.FieldRequestID, req.RequestID,
		"model", opts.Model,
		"keywords", len(opts.Keywords),
	))

	res, err := r.fromStream(ctx, bytes.NewReader(req.Audio), opts)
	if err != nil {
		return nil, classify(ctx, req.RequestID, err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, errors.Internal(req.RequestID, err)
	}
	return data, nil
}

// options maps the request. Without a language Deepgram detects it.
func (r *Recognizer) options(req *transcription.TranscriptionRequest) *interfaces.PreRecordedTranscriptionOptions {
	opts := &interfaces.PreRecordedTranscriptionOptions{
		Model:       r.cfg.Model,
		Punctuate:   true,
		SmartFormat: r.cfg.SmartFormat,
		Keywords:    req.Terms(),
	}
	if m := req.Model(); m != "" {
		opts.Model = m
	}
	if lang := req.Language(); lang != "" {
		opts.Language = lang
	} else {
		opts.DetectLanguage = true
	}
	if req.Speakers() != nil {
		opts.Diarize = true
	}
	if req.AudioConfig.Channels > 1 && req.MultiChannel() {
		opts.Multichannel = true
	}
	if req.AudioConfig.Format == transcription.FormatPCM {
		opts.Encoding = "linear16"
		opts.SampleRate = req.AudioConfig.SampleRateHertz
		opts.Channels = max(req.AudioConfig.Channels, 1)
	}
	return opts
}

var statusCodes = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusPaymentRequired,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusRequestEntityTooLarge,
	http.StatusUnprocessableEntity,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// classify maps SDK errors. The SDK folds the HTTP status into the error
// text.
func classify(ctx context.Context, requestID string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return err
	}
	msg := err.Error()
	for _, code := range statusCodes {
		if strings.Contains(msg, strconv.Itoa(code)) {
			switch code {
			case http.StatusPaymentRequired:
				return errors.Forbidden(requestID, msg).WithCause(err)
			case http.StatusRequestEntityTooLarge:
				return errors.UnprocessableEntity(requestID, msg).WithCause(err)
			}
			return errors.FromHTTPStatus(code, requestID, msg).WithCause(err)
		}
	}
	return errors.Unknown(requestID, msg).WithCause(err)
}
