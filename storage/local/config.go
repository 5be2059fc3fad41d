package local

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultBasePath is the default root directory for local storage.
var DefaultBasePath = filepath.Join(os.TempDir(), "transcribe")

// Config holds local filesystem storage configuration.
type Config struct {
	// BasePath is the root directory for staged objects.
	BasePath string `mapstructure:"base_path" json:"base_path"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
}

// Validate checks that the local configuration is valid.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("local: base_path is required")
	}
	return nil
}
