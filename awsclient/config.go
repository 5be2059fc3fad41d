// Package awsclient loads the shared AWS SDK configuration and folds SDK
// errors into the error taxonomy. It backs both the S3 object store and the
// Transcribe adapter.
package awsclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Config holds AWS connection settings. Empty credentials fall back to the
// SDK's default chain (environment, shared config, instance role).
type Config struct {
	Region       string `mapstructure:"region" json:"region"`
	AccessKey    string `mapstructure:"access_key" json:"access_key"`
	SecretKey    string `mapstructure:"secret_key" json:"-"`
	SessionToken string `mapstructure:"session_token" json:"-"`
	// Endpoint overrides the service endpoint (MinIO, LocalStack, GCS interop).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// RetryMaxAttempts is handed to the SDK retryer. Zero keeps the SDK default.
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" json:"retry_max_attempts"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.RetryMaxAttempts == 0 {
		c.RetryMaxAttempts = 3
	}
}

// Validate checks that the credentials are either complete or absent.
func (c *Config) Validate() error {
	if c.Region == "" {
		return errors.New("aws: region is required")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("aws: access_key and secret_key must be set together")
	}
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("aws: retry_max_attempts must be non-negative (got %d)", c.RetryMaxAttempts)
	}
	return nil
}

// Load resolves an aws.Config from cfg.
func Load(ctx context.Context, cfg Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		))
	}
	if cfg.RetryMaxAttempts > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.RetryMaxAttempts))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("aws: load config: %w", err)
	}
	return awsCfg, nil
}
