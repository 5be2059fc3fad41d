package provider

import (
	"context"
	"time"
)

// ContextStore persists typed values under string keys. The saga journal
// uses it with keys of the form "<request id>/<step>".
type ContextStore[C any] interface {
	// Load returns (nil, nil) for a missing or expired key.
	Load(ctx context.Context, key string) (*C, error)
	// Save stores val. A zero ttl keeps it until deleted.
	Save(ctx context.Context, key string, val *C, ttl time.Duration) error
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key that starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}
