package s3

import (
	"errors"
	"fmt"

	"github.com/kbukum/transcribe/awsclient"
)

// Media URI schemes.
const (
	SchemeS3  = "s3"
	SchemeGCS = "gs"
)

// GCSEndpoint is the S3-interoperable XML API of Google Cloud Storage.
const GCSEndpoint = "https://storage.googleapis.com"

// Config holds S3-specific storage configuration.
type Config struct {
	awsclient.Config `mapstructure:",squash"`

	// Bucket is the staging bucket name.
	Bucket string `mapstructure:"bucket" json:"bucket"`

	// ForcePathStyle forces path-style URLs instead of virtual-hosted-style.
	ForcePathStyle bool `mapstructure:"force_path_style" json:"force_path_style"`

	// Scheme is the media URI scheme handed to the transcription service:
	// "s3" for Amazon, "gs" when Endpoint points at Cloud Storage.
	Scheme string `mapstructure:"scheme" json:"scheme"`
}

// GCSConfig returns a Config for Cloud Storage through HMAC interop keys.
func GCSConfig(bucket, accessKey, secretKey string) Config {
	return Config{
		Config: awsclient.Config{
			Region:    "auto",
			AccessKey: accessKey,
			SecretKey: secretKey,
			Endpoint:  GCSEndpoint,
		},
		Bucket: bucket,
		Scheme: SchemeGCS,
	}
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	c.Config.ApplyDefaults()
	if c.Scheme == "" {
		c.Scheme = SchemeS3
	}
}

// Validate checks that the S3 configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("s3: bucket is required"))
	}
	if c.Scheme != SchemeS3 && c.Scheme != SchemeGCS {
		errs = append(errs, fmt.Errorf("s3: scheme must be %q or %q (got %q)", SchemeS3, SchemeGCS, c.Scheme))
	}
	if err := c.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("s3: invalid config: %w", errors.Join(errs...))
	}
	return nil
}
