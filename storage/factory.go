package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
)

// Factory creates a Storage from provider-specific configuration. Each
// provider type-asserts providerCfg to its own config type.
type Factory func(ctx context.Context, providerCfg any, log *logger.Logger) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a backend available to New. Backend packages call
// it from init, so import them for side effects:
//
//	import _ "github.com/kbukum/transcribe/storage/s3"
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers lists the registered backend names.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the Storage selected by cfg.Provider. The result enforces
// cfg.MaxObjectSize on every upload.
func New(ctx context.Context, cfg Config, providerCfg any, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: provider %q not registered (known: %v)", cfg.Provider, Providers())
	}

	l := log.WithComponent("storage")
	l.Info("initializing storage", logger.Fields(logger.FieldProvider, cfg.Provider))
	s, err := f(ctx, providerCfg, l)
	if err != nil {
		return nil, err
	}
	return &limited{Storage: s, max: cfg.MaxObjectSize}, nil
}

type limited struct {
	Storage
	max int64
}

func (l *limited) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if int64(len(data)) > l.max {
		return errors.UnprocessableEntity("", fmt.Sprintf("object %s is %d bytes, limit is %d", key, len(data), l.max))
	}
	return l.Storage.Upload(ctx, key, data, contentType)
}
