// Package azure is a synchronous backend for the Azure AI Speech fast
// transcription REST API. Import it for side effects to register the
// "azure" backend.
package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/httpclient"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/transcription"
	"github.com/kbukum/transcribe/util"
)

// ProviderName is the registered backend name.
const ProviderName = "azure"

const (
	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	transcribePath        = "/speechtotext/transcriptions:transcribe"

	defaultAPIVersion  = "2024-11-15"
	defaultMaxSpeakers = 2
	defaultTimeout     = 2 * time.Minute
)

// Profanity filter modes.
const (
	ProfanityNone    = "None"
	ProfanityMasked  = "Masked"
	ProfanityRemoved = "Removed"
	ProfanityTags    = "Tags"
)

var profanityModes = []string{ProfanityNone, ProfanityMasked, ProfanityRemoved, ProfanityTags}

func init() {
	transcription.RegisterBackend(ProviderName, func(_ context.Context, opts transcription.BackendOptions) (*transcription.Backend, error) {
		cfg := &Config{}
		if opts.Settings != nil {
			c, ok := opts.Settings.(*Config)
			if !ok {
				return nil, fmt.Errorf("azure: expected *azure.Config, got %T", opts.Settings)
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

// Config holds Speech resource settings. An empty SubscriptionKey or
// Region falls back to AZURE_SUBSCRIPTION_KEY and AZURE_REGION.
type Config struct {
	SubscriptionKey string `yaml:"subscription_key" mapstructure:"subscription_key"`
	Region          string `yaml:"region" mapstructure:"region"`
	// Endpoint overrides the regional endpoint derived from Region.
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
	// ProfanityFilter is None, Masked, Removed or Tags. Empty keeps the
	// service default.
	ProfanityFilter string `yaml:"profanity_filter" mapstructure:"profanity_filter"`
	// MaxSpeakers applies when a request enables diarization without a
	// speaker count.
	MaxSpeakers int           `yaml:"max_speakers" mapstructure:"max_speakers"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.SubscriptionKey == "" {
		c.SubscriptionKey = os.Getenv("AZURE_SUBSCRIPTION_KEY")
	}
	if c.Region == "" {
		c.Region = os.Getenv("AZURE_REGION")
	}
	if c.Endpoint == "" && c.Region != "" {
		c.Endpoint = fmt.Sprintf("https://%s.api.cognitive.microsoft.com", c.Region)
	}
	if c.APIVersion == "" {
		c.APIVersion = defaultAPIVersion
	}
	if c.MaxSpeakers == 0 {
		c.MaxSpeakers = defaultMaxSpeakers
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks the credentials and the profanity mode.
func (c *Config) Validate() error {
	if c.SubscriptionKey == "" {
		return fmt.Errorf("azure: subscription_key is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("azure: region or endpoint is required")
	}
	if c.ProfanityFilter != "" && !slices.Contains(profanityModes, c.ProfanityFilter) {
		return fmt.Errorf("azure: profanity_filter must be one of %v (got: %s)", profanityModes, c.ProfanityFilter)
	}
	return nil
}

// Recognizer transcribes audio in one fast transcription call.
type Recognizer struct {
	cfg    Config
	client *httpclient.Client
	log    *logger.Logger
}

var _ transcription.Recognizer = (*Recognizer)(nil)

// New creates a recognizer authenticated with the subscription key.
func New(cfg Config, log *logger.Logger) (*Recognizer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	hc := httpclient.ProviderConfig(ProviderName, cfg.Endpoint)
	hc.Timeout = cfg.Timeout
	hc.Auth = httpclient.APIKeyAuth(cfg.SubscriptionKey, subscriptionKeyHeader)
	client, err := httpclient.New(hc)
	if err != nil {
		return nil, err
	}

	r := &Recognizer{cfg: cfg, client: client, log: log.WithComponent(ProviderName)}
	r.log.Info("Azure Speech client created", logger.Fields(
		"endpoint", cfg.Endpoint,
		"api_version", cfg.APIVersion,
		"subscription_key", util.MaskSecret(cfg.SubscriptionKey, 4),
	))
	return r, nil
}

// Backend wraps the recognizer.
func (r *Recognizer) Backend() *transcription.Backend {
	return &transcription.Backend{
		ProviderName: ProviderName,
		Naming:       transcription.NamingRules{MaxLength: 256},
		Recognizer:   r,
		Languages:    Languages(),
		Formats: []transcription.AudioFormat{
			transcription.FormatWAV,
			transcription.FormatMP3,
			transcription.FormatFLAC,
			transcription.FormatOGG,
		},
	}
}

// Accepts is true for every request; there is no batch path.
func (r *Recognizer) Accepts(*transcription.TranscriptionRequest) bool { return true }

// Recognize uploads the audio with its definition and returns the
// service's JSON result.
func (r *Recognizer) Recognize(ctx context.Context, req *transcription.TranscriptionRequest) (json.RawMessage, error) {
	def, err := json.Marshal(r.definition(req))
	if err != nil {
		return nil, errors.Internal(req.RequestID, err)
	}
	r.log.Debug("fast transcription request", logger.Fields(
		logger.FieldRequestID, req.RequestID,
		"definition", string(def),
	))

	body := &httpclient.MultipartBody{
		Fields: map[string]string{"definition": string(def)},
		Files: []httpclient.FileField{{
			FieldName:   "audio",
			FileName:    "audio." + string(req.AudioConfig.Format),
			ContentType: req.AudioConfig.Format.ContentType(),
			Data:        req.Audio,
		}},
	}
	return httpclient.Post[json.RawMessage](r.client, ctx, transcribePath, body,
		httpclient.WithQueryParam("api-version", r.cfg.APIVersion),
		httpclient.WithRequestID(req.RequestID))
}

// definition is the JSON "definition" form field.
type definition struct {
	Locales         []string     `json:"locales,omitempty"`
	Diarization     *diarization `json:"diarization,omitempty"`
	Channels        []int        `json:"channels,omitempty"`
	ProfanityFilter string       `json:"profanityFilterMode,omitempty"`
	PhraseList      *phraseList  `json:"phraseList,omitempty"`
}

type diarization struct {
	Enabled     bool `json:"enabled"`
	MaxSpeakers int  `json:"maxSpeakers"`
}

type phraseList struct {
	Phrases []string `json:"phrases"`
}

// definition maps the request. Without a locale the service detects the
// language. Stereo audio is split per channel only when diarization is
// off.
func (r *Recognizer) definition(req *transcription.TranscriptionRequest) definition {
	def := definition{ProfanityFilter: r.cfg.ProfanityFilter}
	if lang := req.Language(); lang != "" {
		def.Locales = []string{lang}
	}
	if d := req.Speakers(); d != nil {
		speakers := d.MaxSpeakers
		if speakers == 0 {
			speakers = r.cfg.MaxSpeakers
		}
		def.Diarization = &diarization{Enabled: true, MaxSpeakers: speakers}
	} else if req.MultiChannel() && req.AudioConfig.Channels == 2 {
		def.Channels = []int{0, 1}
	}
	if terms := req.Terms(); len(terms) > 0 {
		def.PhraseList = &phraseList{Phrases: slices.Clone(terms)}
	}
	return def
}
