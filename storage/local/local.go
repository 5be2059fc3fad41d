package local

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(_ context.Context, providerCfg any, _ *logger.Logger) (storage.Storage, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("local: expected *local.Config, got %T", providerCfg)
			}
			c = pc
		}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewStorage(c.BasePath)
	})
}

// Storage implements storage.Storage on the local filesystem. Media URIs
// are file:// URLs, readable only by services on the same host.
type Storage struct {
	basePath string
}

// NewStorage creates a new local filesystem storage rooted at basePath.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

// resolve maps key into basePath, rejecting keys that escape it.
func (s *Storage) resolve(key string) (string, error) {
	full := filepath.Join(s.basePath, filepath.Clean("/"+key))
	if full != s.basePath && !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		return "", errors.BadRequest("", fmt.Sprintf("invalid object key %q", key))
	}
	return full, nil
}

// Upload writes data to a file under basePath.
func (s *Storage) Upload(_ context.Context, key string, data []byte, _ string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return errors.Internal("", fmt.Errorf("storage: create directory: %w", err))
	}
	if err := os.WriteFile(full, data, 0o640); err != nil {
		return errors.Internal("", fmt.Errorf("storage: write file: %w", err))
	}
	return nil
}

// Delete removes a file and its request directory once empty.
func (s *Storage) Delete(_ context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Internal("", fmt.Errorf("storage: delete file: %w", err))
	}
	if dir := filepath.Dir(full); dir != s.basePath {
		_ = os.Remove(dir)
	}
	return nil
}

// Exists checks whether a file exists.
func (s *Storage) Exists(_ context.Context, key string) (bool, error) {
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Internal("", fmt.Errorf("storage: stat file: %w", err))
	}
	return true, nil
}

// MediaURI returns a file:// URL for the object.
func (s *Storage) MediaURI(key string) string {
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.basePath, key))}
	return u.String()
}

var _ storage.Storage = (*Storage)(nil)
