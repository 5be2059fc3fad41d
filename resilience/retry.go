package resilience

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kbukum/transcribe/errors"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt. Each later
	// delay grows by BackoffFactor up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	// Jitter spreads each delay by up to this fraction either way.
	Jitter float64
	// RetryIf selects the errors worth another attempt. Defaults to
	// IsTransient.
	RetryIf func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, backoff time.Duration)
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig is the transport policy for provider HTTP calls:
// three attempts with exponential backoff between 100ms and 30s, retrying
// only rate limits and upstream failures.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2,
		Jitter:         0.1,
		RetryIf:        IsTransient,
		Sleep:          sleep,
	}
}

// IsTransient reports whether err is worth another attempt. Only taxonomy
// errors marked retryable qualify; cancellation never does.
func IsTransient(err error) bool {
	switch {
	case err == nil,
		stderrors.Is(err, context.Canceled),
		stderrors.Is(err, context.DeadlineExceeded):
		return false
	}
	return errors.IsRetryable(err)
}

// withDefaults fills zero fields from DefaultRetryConfig. Jitter and
// OnRetry stay as given.
func (cfg RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = def.BackoffFactor
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = def.RetryIf
	}
	if cfg.Sleep == nil {
		cfg.Sleep = def.Sleep
	}
	return cfg
}

// Retry calls fn until it succeeds, fails with an error RetryIf rejects, or
// runs out of attempts. The last error is returned unchanged; a context
// that ends while waiting returns the context error.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt >= cfg.MaxAttempts || !cfg.RetryIf(err) {
			return zero, err
		}

		wait := cfg.backoff(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}
		if err := cfg.Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// RetryFunc is Retry for functions without a result.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// backoff is the wait after the given failed attempt: InitialBackoff
// scaled by BackoffFactor per earlier attempt, jittered, then capped.
func (cfg RetryConfig) backoff(attempt int) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if cfg.Jitter > 0 {
		d *= 1 + cfg.Jitter*(2*rand.Float64()-1)
	}
	d = min(d, float64(cfg.MaxBackoff))
	if d <= 0 {
		return cfg.InitialBackoff
	}
	return time.Duration(d)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
