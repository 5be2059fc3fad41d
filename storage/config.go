package storage

import "fmt"

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// DefaultMaxObjectSize caps a single staged object.
const DefaultMaxObjectSize = int64(2 * 1024 * 1024 * 1024)

// Config selects the storage backend. Backend settings live in the
// backend package's own Config and are passed to New separately.
type Config struct {
	// Provider selects the storage backend: "local" or "s3".
	Provider string `mapstructure:"provider" json:"provider"`

	// MaxObjectSize rejects uploads above this many bytes.
	MaxObjectSize int64 `mapstructure:"max_object_size" json:"max_object_size"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderS3
	}
	if c.MaxObjectSize <= 0 {
		c.MaxObjectSize = DefaultMaxObjectSize
	}
}

// Validate checks that the configuration names a known provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal, ProviderS3:
		return nil
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
}
