// Package aws runs transcriptions on Amazon Transcribe: audio is staged in
// S3, an optional custom vocabulary is provisioned, and a batch job is
// polled until its transcript can be downloaded.
//
// Import it for side effects to register the "aws" backend:
//
//	import _ "github.com/kbukum/transcribe/transcription/aws"
package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"

	"github.com/kbukum/transcribe/awsclient"
	"github.com/kbukum/transcribe/httpclient"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/transcription"
)

// ProviderName is the registered backend name.
const ProviderName = "aws"

const defaultDownloadTimeout = 5 * time.Minute

func init() {
	transcription.RegisterBackend(ProviderName, func(ctx context.Context, opts transcription.BackendOptions) (*transcription.Backend, error) {
		cfg := &Config{}
		if opts.Settings != nil {
			c, ok := opts.Settings.(*Config)
			if !ok {
				return nil, fmt.Errorf("aws: expected *aws.Config, got %T", opts.Settings)
			}
			cfg = c
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		awsCfg, err := awsclient.Load(ctx, cfg.Config)
		if err != nil {
			return nil, err
		}
		client := transcribe.NewFromConfig(awsCfg, func(o *transcribe.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = awssdk.String(cfg.Endpoint)
			}
		})
		return NewBackend(client, opts.Objects, *cfg, opts.Log)
	})
}

// Config holds the Transcribe connection settings. Staging uses the
// storage section.
type Config struct {
	awsclient.Config `mapstructure:",squash" yaml:",inline"`

	// DownloadTimeout bounds a single transcript download.
	DownloadTimeout time.Duration `mapstructure:"download_timeout" yaml:"download_timeout"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	c.Config.ApplyDefaults()
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = defaultDownloadTimeout
	}
}

// Validate checks the AWS settings.
func (c *Config) Validate() error {
	return c.Config.Validate()
}

// NewBackend assembles the backend from a Transcribe client and the
// staging store.
func NewBackend(api API, objects transcription.ObjectStore, cfg Config, log *logger.Logger) (*transcription.Backend, error) {
	hc := httpclient.ProviderConfig("aws-transcripts", "")
	hc.Timeout = cfg.DownloadTimeout
	downloads, err := httpclient.New(hc)
	if err != nil {
		return nil, err
	}

	svc := NewService(api, log)
	return &transcription.Backend{
		ProviderName: ProviderName,
		Naming:       transcription.AWSNaming,
		Objects:      objects,
		Vocabulary:   svc,
		Jobs:         svc,
		Transcripts:  downloads,
		Languages:    Languages(),
		Formats: []transcription.AudioFormat{
			transcription.FormatWAV,
			transcription.FormatMP3,
			transcription.FormatFLAC,
			transcription.FormatOGG,
			transcription.FormatWebM,
			transcription.FormatMP4,
			transcription.FormatM4A,
			transcription.FormatAMR,
		},
	}, nil
}
