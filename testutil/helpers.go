package testutil

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/redis"
)

// Start starts c and registers a cleanup that stops it. A start failure
// fails the test.
func Start(t testing.TB, c component.Component) {
	t.Helper()
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	t.Cleanup(func() {
		if err := c.Stop(ctx); err != nil {
			t.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// MiniRedis runs an in-memory redis server for the duration of the test.
func MiniRedis(t testing.TB) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

// RedisConfig returns an enabled redis config for mini.
func RedisConfig(mini *miniredis.Miniredis) redis.Config {
	cfg := redis.Config{Enabled: true, Addr: mini.Addr()}
	cfg.ApplyDefaults()
	return cfg
}

// Redis starts a redis component backed by a fresh miniredis server.
func Redis(t testing.TB) (*redis.Component, *miniredis.Miniredis) {
	t.Helper()
	mini := MiniRedis(t)
	c := redis.NewComponent(RedisConfig(mini), logger.Nop())
	Start(t, c)
	return c, mini
}
