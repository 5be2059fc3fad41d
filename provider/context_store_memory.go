package provider

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process ContextStore. Entries do not survive a
// restart, so it only makes replays safe within one process.
type MemoryStore[C any] struct {
	mu    sync.RWMutex
	items map[string]memEntry[C]
	now   func() time.Time
}

type memEntry[C any] struct {
	val       *C
	expiresAt time.Time // zero means no expiration
}

// NewMemoryStore creates a new in-memory ContextStore.
func NewMemoryStore[C any]() *MemoryStore[C] {
	return &MemoryStore[C]{
		items: make(map[string]memEntry[C]),
		now:   time.Now,
	}
}

// WithNow replaces the time source used for TTL checks.
func (s *MemoryStore[C]) WithNow(now func() time.Time) *MemoryStore[C] {
	s.now = now
	return s
}

// Load retrieves state. Returns (nil, nil) if key doesn't exist or has expired.
func (s *MemoryStore[C]) Load(_ context.Context, key string) (*C, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.items, key)
		return nil, nil
	}
	return entry.val, nil
}

// Save persists state with optional TTL.
func (s *MemoryStore[C]) Save(_ context.Context, key string, val *C, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memEntry[C]{val: val}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = entry
	return nil
}

// Delete removes state.
func (s *MemoryStore[C]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (s *MemoryStore[C]) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			delete(s.items, k)
		}
	}
	return nil
}

// Keys returns the stored keys that start with prefix, expired ones included.
func (s *MemoryStore[C]) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of entries, including expired ones not yet evicted.
func (s *MemoryStore[C]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var _ ContextStore[any] = (*MemoryStore[any])(nil)
