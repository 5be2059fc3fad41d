package transcription

import (
	"context"
	"time"
)

// Clock is the time source for the polling loops.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep waits for d, returning ctx.Err() if the context ends first.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// journaledSleep sleeps through the journal so a replayed saga skips
// sleeps it already took.
func journaledSleep(ctx context.Context, j Journal, c Clock, key string, d time.Duration) error {
	_, err := effect(ctx, j, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Sleep(ctx, d)
	})
	return err
}
