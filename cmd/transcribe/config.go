package main

import (
	"fmt"
	"slices"

	"github.com/kbukum/transcribe/config"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/redis"
	"github.com/kbukum/transcribe/server"
	"github.com/kbukum/transcribe/storage"
	"github.com/kbukum/transcribe/storage/local"
	"github.com/kbukum/transcribe/storage/s3"
	"github.com/kbukum/transcribe/transcription"
	awsbackend "github.com/kbukum/transcribe/transcription/aws"
	"github.com/kbukum/transcribe/transcription/azure"
	"github.com/kbukum/transcribe/transcription/deepgram"
	"github.com/kbukum/transcribe/transcription/google"
	"github.com/kbukum/transcribe/transcription/whisper"
)

// Journal backends.
const (
	JournalMemory = "memory"
	JournalRedis  = "redis"
)

// Config is the transcribe host configuration, loaded from config.yml,
// .env and TRANSCRIBE_* environment variables.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// Provider names the active backend: aws, azure, google, deepgram or
	// whisper.
	Provider string               `yaml:"provider" mapstructure:"provider"`
	Saga     transcription.Config `yaml:"saga" mapstructure:"saga"`

	AWS      awsbackend.Config `yaml:"aws" mapstructure:"aws"`
	Azure    azure.Config      `yaml:"azure" mapstructure:"azure"`
	Google   google.Config     `yaml:"google" mapstructure:"google"`
	Deepgram deepgram.Config   `yaml:"deepgram" mapstructure:"deepgram"`
	Whisper  whisper.Config    `yaml:"whisper" mapstructure:"whisper"`

	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Journal JournalConfig `yaml:"journal" mapstructure:"journal"`
	Redis   redis.Config  `yaml:"redis" mapstructure:"redis"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// StorageConfig selects the staging store and carries each backend's
// settings.
type StorageConfig struct {
	storage.Config `yaml:",inline" mapstructure:",squash"`

	// Enabled turns staging off for synchronous-only backends.
	Enabled bool         `yaml:"enabled" mapstructure:"enabled"`
	S3      s3.Config    `yaml:"s3" mapstructure:"s3"`
	Local   local.Config `yaml:"local" mapstructure:"local"`
}

// ProviderConfig returns the settings of the selected storage backend.
func (c *StorageConfig) ProviderConfig() any {
	if c.Provider == storage.ProviderLocal {
		return &c.Local
	}
	return &c.S3
}

// JournalConfig selects where saga side effects are recorded.
type JournalConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// ApplyDefaults fills zero values in every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "transcribe"
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Provider == "" {
		c.Provider = awsbackend.ProviderName
	}
	c.Saga.ApplyDefaults()
	c.Storage.ApplyDefaults()
	if c.Journal.Backend == "" {
		c.Journal.Backend = JournalMemory
	}
	if c.Journal.KeyPrefix == "" {
		c.Journal.KeyPrefix = "transcribe:journal"
	}
	c.Redis.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks the sections the selected provider uses.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if !slices.Contains(transcription.BackendNames(), c.Provider) {
		return fmt.Errorf("provider must be one of %v (got: %s)", transcription.BackendNames(), c.Provider)
	}
	if err := c.Saga.Validate(); err != nil {
		return fmt.Errorf("saga: %w", err)
	}
	if c.Storage.Enabled {
		if err := c.Storage.Validate(); err != nil {
			return err
		}
	}
	switch c.Journal.Backend {
	case JournalMemory:
	case JournalRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("journal.backend redis needs redis.enabled")
		}
	default:
		return fmt.Errorf("journal.backend must be memory or redis (got: %s)", c.Journal.Backend)
	}
	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}

// backendSettings returns the settings section of the selected provider.
func (c *Config) backendSettings() any {
	switch c.Provider {
	case awsbackend.ProviderName:
		return &c.AWS
	case azure.ProviderName:
		return &c.Azure
	case google.ProviderName:
		return &c.Google
	case deepgram.ProviderName:
		return &c.Deepgram
	case whisper.ProviderName:
		return &c.Whisper
	}
	return nil
}
