package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/transcribe/provider"
)

// TypedStore keeps JSON values of type C under a key prefix. The effect
// journal uses it so that every service instance replays the same records.
type TypedStore[C any] struct {
	rdb    goredis.Cmdable
	prefix string
}

var _ provider.ContextStore[any] = (*TypedStore[any])(nil)

// NewTypedStore creates a store on client. Keys are written as
// "{prefix}:{key}"; an empty prefix writes them as given.
func NewTypedStore[C any](client *Client, prefix string) *TypedStore[C] {
	return &TypedStore[C]{rdb: client.rdb, prefix: strings.TrimSuffix(prefix, ":")}
}

func (s *TypedStore[C]) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Load returns nil without an error when the key is missing or expired.
func (s *TypedStore[C]) Load(ctx context.Context, key string) (*C, error) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis: load %s: %w", key, err)
	}

	val := new(C)
	if err := json.Unmarshal(raw, val); err != nil {
		return nil, fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return val, nil
}

// Save writes val. A zero ttl keeps the key until Delete.
func (s *TypedStore[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", key, err)
	}
	return s.wrap("save", key, s.rdb.Set(ctx, s.key(key), raw, ttl).Err())
}

// Delete removes the key. A missing key is not an error.
func (s *TypedStore[C]) Delete(ctx context.Context, key string) error {
	return s.wrap("delete", key, s.rdb.Del(ctx, s.key(key)).Err())
}

// scanBatch is the SCAN page size and the number of keys per DEL.
const scanBatch = 100

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// DeletePrefix removes every key under prefix. It walks the keyspace with
// SCAN, so it is meant for rare cleanups, not the request path.
func (s *TypedStore[C]) DeletePrefix(ctx context.Context, prefix string) error {
	iter := s.rdb.Scan(ctx, 0, globEscaper.Replace(s.key(prefix))+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := s.rdb.Del(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		if batch = append(batch, iter.Val()); len(batch) == scanBatch {
			if err := flush(); err != nil {
				return s.wrap("delete prefix", prefix, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return s.wrap("scan", prefix, err)
	}
	return s.wrap("delete prefix", prefix, flush())
}

func (s *TypedStore[C]) wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("redis: %s %s: %w", op, key, err)
}
