// Package google runs transcriptions on Cloud Speech-to-Text v2 over REST.
// Short audio with the "short" model is recognized synchronously; anything
// else is staged in Cloud Storage and submitted as a batchRecognize
// operation whose result comes back inline.
//
// Import it for side effects to register the "google" backend.
package google

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"

	"github.com/kbukum/transcribe/httpclient"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/transcription"
)

// ProviderName is the registered backend name.
const ProviderName = "google"

const (
	defaultEndpoint = "https://speech.googleapis.com/v2"
	defaultLocation = "global"
	defaultTimeout  = 2 * time.Minute

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

func init() {
	transcription.RegisterBackend(ProviderName, func(ctx context.Context, opts transcription.BackendOptions) (*transcription.Backend, error) {
		cfg := &Config{}
		if opts.Settings != nil {
			c, ok := opts.Settings.(*Config)
			if !ok {
				return nil, fmt.Errorf("google: expected *google.Config, got %T", opts.Settings)
			}
			cfg = c
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		client, projectID, err := newHTTPClient(ctx, *cfg)
		if err != nil {
			return nil, err
		}
		svc := NewService(client, projectID, cfg.Location, opts.Log)
		return svc.Backend(opts.Objects), nil
	})
}

// Config holds Speech-to-Text settings. Credentials are an API key, a
// service account key (inline JSON or a file path), or, when all are
// empty, the application default credentials.
type Config struct {
	ProjectID       string        `yaml:"project_id" mapstructure:"project_id"`
	Location        string        `yaml:"location" mapstructure:"location"`
	Endpoint        string        `yaml:"endpoint" mapstructure:"endpoint"`
	CredentialsFile string        `yaml:"credentials_file" mapstructure:"credentials_file"`
	CredentialsJSON string        `yaml:"credentials_json" mapstructure:"credentials_json"`
	APIKey          string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Location == "" {
		c.Location = defaultLocation
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that at most one credential source is set. An API key
// carries no project, so it needs ProjectID.
func (c *Config) Validate() error {
	sources := 0
	for _, s := range []string{c.CredentialsFile, c.CredentialsJSON, c.APIKey} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("google: set only one of credentials_file, credentials_json and api_key")
	}
	if c.APIKey != "" && c.ProjectID == "" {
		return fmt.Errorf("google: project_id is required with api_key")
	}
	return nil
}

// newHTTPClient builds the REST client and resolves the project id.
func newHTTPClient(ctx context.Context, cfg Config) (*httpclient.Client, string, error) {
	hc := httpclient.ProviderConfig(ProviderName, cfg.Endpoint)
	hc.Timeout = cfg.Timeout

	if cfg.APIKey != "" {
		hc.Auth = httpclient.APIKeyAuth(cfg.APIKey, "X-Goog-Api-Key")
		client, err := httpclient.New(hc)
		return client, cfg.ProjectID, err
	}

	creds, err := credentials(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, "", fmt.Errorf("google: project_id is not set and the credentials carry none")
	}

	hc.Auth = httpclient.TokenSourceAuth(oauth2.ReuseTokenSource(nil, creds.TokenSource))
	client, err := httpclient.New(hc)
	return client, projectID, err
}

func credentials(ctx context.Context, cfg Config) (*googleauth.Credentials, error) {
	data := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	if cfg.CredentialsFile != "" {
		var err error
		if data, err = os.ReadFile(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("google: read credentials file: %w", err)
		}
	}
	if len(data) == 0 {
		creds, err := googleauth.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("google: find default credentials: %w", err)
		}
		return creds, nil
	}
	creds, err := googleauth.CredentialsFromJSON(ctx, data, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("google: parse credentials: %w", err)
	}
	return creds, nil
}

// Backend wraps the service. Without a staging store only synchronous
// recognition is available.
func (s *Service) Backend(objects transcription.ObjectStore) *transcription.Backend {
	b := &transcription.Backend{
		ProviderName: ProviderName,
		Naming:       transcription.GoogleNaming,
		Recognizer:   s,
		Languages:    Languages(),
		Ping:         s.client.IsAvailable,
	}
	if objects != nil {
		b.Objects = objects
		b.Jobs = s
	}
	return b
}

// NewService creates the REST service for projectID in location.
func NewService(client *httpclient.Client, projectID, location string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if location == "" {
		location = defaultLocation
	}
	return &Service{
		client:     client,
		recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", projectID, location),
		log:        log.WithComponent(ProviderName),
	}
}
