package storage

import "context"

// Storage is an object store that stages request audio where a batch
// transcription job can read it.
type Storage interface {
	// Upload writes data under key, replacing any existing object.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes the object at key. A missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// MediaURI returns the URI a provider job uses to read the object,
	// e.g. s3://bucket/key or gs://bucket/key.
	MediaURI(key string) string
}
