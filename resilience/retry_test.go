package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/kbukum/transcribe/errors"
)

// recordSleep replaces the timer so tests observe backoffs without waiting.
func recordSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), DefaultRetryConfig(), func() (string, error) {
		calls++
		return "success", nil
	})
	if err != nil || result != "success" {
		t.Fatalf("got %q, %v", result, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"rate limit is retried", errors.RateLimit("r1", "Throttling"), 3},
		{"upstream failure is retried", errors.InternalServerError("r1", "HTTP 503"), 3},
		{"bad request is not retried", errors.BadRequest("r1", "invalid"), 1},
		{"not found is not retried", errors.NotFound("r1", "gone"), 1},
		{"plain error is not retried", stderrors.New("boom"), 1},
		{"cancellation is not retried", context.Canceled, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slept []time.Duration
			cfg := DefaultRetryConfig()
			cfg.Sleep = recordSleep(&slept)

			calls := 0
			_, err := Retry(context.Background(), cfg, func() (int, error) {
				calls++
				return 0, tt.err
			})
			if !stderrors.Is(err, tt.err) {
				t.Errorf("expected last error to be returned unchanged, got %v", err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if len(slept) != tt.wantCalls-1 {
				t.Errorf("sleeps = %d, want %d", len(slept), tt.wantCalls-1)
			}
		})
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	var slept []time.Duration
	cfg := DefaultRetryConfig()
	cfg.Jitter = 0
	cfg.Sleep = recordSleep(&slept)

	calls := 0
	result, err := Retry(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.RateLimit("r1", "slow down")
		}
		return "ok", nil
	})
	if err != nil || result != "ok" {
		t.Fatalf("got %q, %v", result, err)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(slept) != len(want) || slept[0] != want[0] || slept[1] != want[1] {
		t.Errorf("backoffs = %v, want %v", slept, want)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{
		MaxAttempts: 10,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	calls := 0
	_, err := Retry(ctx, cfg, func() (string, error) {
		calls++
		return "", errors.InternalServerError("r1", "HTTP 500")
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := RetryConfig{
		MaxAttempts: 3,
		RetryIf:     func(error) bool { return true },
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			attempts = append(attempts, attempt)
		},
		Sleep: func(context.Context, time.Duration) error { return nil },
	}

	_ = RetryFunc(context.Background(), cfg, func() error {
		return stderrors.New("error")
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", attempts)
	}
}

func TestRetryFunc(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.Sleep = func(context.Context, time.Duration) error { return nil }

	calls := 0
	err := RetryFunc(context.Background(), cfg, func() error {
		calls++
		if calls < 2 {
			return errors.InternalServerError("r1", "HTTP 502")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		BackoffFactor:  2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := cfg.backoff(tt.attempt); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxAttempts != 3 || cfg.InitialBackoff != 100*time.Millisecond || cfg.MaxBackoff != 30*time.Second {
		t.Errorf("unexpected transport policy: %+v", cfg)
	}
}
